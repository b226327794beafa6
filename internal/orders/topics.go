package orders

import "strconv"

const (
	TopicQuoteRequested = "quote.requested"
	TopicOrderConfirmed = "order.confirmed"
)

// Partition key = quote id, so every event of one quote keeps its order.
func PartitionKey(quoteID int64) []byte { return []byte(strconv.FormatInt(quoteID, 10)) }
