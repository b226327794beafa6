package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	kafkax "github.com/allevapp/allevapp/internal/kafka"
	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
)

// HandleMessage is the notifier consumer handler. The dedup key is written only after every
// side effect succeeded so a failed message is processed again; steps that already went
// through are not repeated. Errors that a retry cannot fix are logged and dropped.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		log.Printf("notifier: drop undecodable message on %s: %v", m.Topic, err)
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	stepKey := ""
	if s.Marks != nil && env.EventID != "" {
		if seen, _ := s.Marks.Exists(ctx, dkey); seen {
			return nil
		}
		stepKey = dkey
	}

	var err error
	switch env.EventType {
	case orders.EventQuoteRequested:
		p, perr := kafkax.UnwrapPayload[orders.QuoteRequestedPayload](env.Payload)
		if perr != nil {
			log.Printf("notifier: drop %s %s: %v", env.EventType, env.EventID, perr)
			return nil
		}
		err = s.SendQuoteEmail(ctx, QuoteEmailRequest{QuoteID: p.QuoteID})
	case orders.EventOrderConfirmed:
		p, perr := kafkax.UnwrapPayload[orders.OrderConfirmedPayload](env.Payload)
		if perr != nil {
			log.Printf("notifier: drop %s %s: %v", env.EventType, env.EventID, perr)
			return nil
		}
		err = s.confirmOrder(ctx, p.OrderID, stepKey)
	default:
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, orders.ErrNotFound):
		log.Printf("notifier: drop %s %s: %v", env.EventType, env.EventID, err)
	case err != nil:
		return fmt.Errorf("%s %s: %w", env.EventType, env.EventID, err)
	}

	if s.Marks != nil && env.EventID != "" {
		if err := s.Marks.Mark(ctx, dkey, redisx.TTLDedup); err != nil {
			log.Printf("notifier: mark %s: %v", dkey, err)
		}
	}
	return nil
}
