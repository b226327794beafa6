package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		QuoteID int64 `json:"quote_id"`
	}
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, UnmarshalEnvelope(MustMarshal(map[string]any{
		"type":    "QuoteRequested",
		"payload": map[string]any{"quote_id": 42},
	}), &env))

	p, err := UnwrapPayload[payload](env.Payload)
	require.NoError(t, err)
	require.EqualValues(t, 42, p.QuoteID)

	_, err = UnwrapPayload[payload](json.RawMessage(`"nope"`))
	require.Error(t, err)
}

func TestHeader(t *testing.T) {
	m := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("t-1")}}}
	require.Equal(t, "t-1", Header(m, "trace_id"))
	require.Empty(t, Header(m, "missing"))
}
