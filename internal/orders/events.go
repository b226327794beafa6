package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventQuoteRequested = "QuoteRequested"
	EventOrderConfirmed = "OrderConfirmed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "allevapp-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // quote id
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, producer, traceID, correlationID string, payload json.RawMessage) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

// ---- payloads ----

type QuoteRequestedPayload struct {
	QuoteID    int64 `json:"quote_id"`
	SupplierID int64 `json:"supplier_id"`
	FarmID     int64 `json:"farm_id"`
}

type OrderConfirmedPayload struct {
	OrderID          int64   `json:"order_id"`
	QuoteID          int64   `json:"quote_id"`
	OrderNumber      string  `json:"order_number"`
	Company          string  `json:"company"`
	TotalAmount      float64 `json:"total_amount"`
	RejectedQuoteIDs []int64 `json:"rejected_quote_ids,omitempty"`
}
