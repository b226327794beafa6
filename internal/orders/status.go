package orders

type QuoteStatus string

const (
	QuoteRequested QuoteStatus = "requested"
	QuoteReceived  QuoteStatus = "received"
	QuoteAccepted  QuoteStatus = "accepted"
	QuoteRejected  QuoteStatus = "rejected"
)

var validNext = map[QuoteStatus]map[QuoteStatus]bool{
	QuoteRequested: {QuoteReceived: true, QuoteAccepted: true, QuoteRejected: true},
	QuoteReceived:  {QuoteAccepted: true, QuoteRejected: true},
	QuoteAccepted:  {},
	QuoteRejected:  {},
}

func CanTransition(from, to QuoteStatus) bool {
	return validNext[from][to]
}

func (s QuoteStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Terminal quotes never change again.
func (s QuoteStatus) Terminal() bool {
	return s == QuoteAccepted || s == QuoteRejected
}
