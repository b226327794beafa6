package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/allevapp/allevapp/internal/graph"
	kafkax "github.com/allevapp/allevapp/internal/kafka"
	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func quoteDetails() *orders.QuoteEmail {
	due := date(2024, 6, 20)
	return &orders.QuoteEmail{
		Quote:         orders.Quote{ID: 7, Title: "Replacement pump", Description: "2 inch, 5.5 hp", DueDate: &due},
		SupplierName:  "Agri Parts",
		SupplierEmail: "sales@agriparts.example",
		FarmName:      "North field",
		FarmAddress:   "12 Orchard Rd",
		ReportTitle:   "Irrigation pump leaking",
	}
}

func orderDetails(delivery *time.Time) *orders.OrderEmail {
	return &orders.OrderEmail{
		Order: orders.OrderConfirmation{
			ID: 3, QuoteID: 7, OrderNumber: "NRT-2024-00003", TotalAmount: 1250.5,
			OrderDate: date(2024, 6, 10), DeliveryDate: delivery, Notes: "Gate code 4411",
		},
		QuoteTitle:    "Replacement pump",
		SupplierName:  "Agri Parts",
		SupplierEmail: "sales@agriparts.example",
		FarmName:      "North field",
		FarmAddress:   "12 Orchard Rd",
	}
}

func TestSendQuoteEmailFromStore(t *testing.T) {
	m := &fakeMailer{}
	svc := newService(m, &fakeData{quote: quoteDetails()})

	require.NoError(t, svc.SendQuoteEmail(context.Background(), QuoteEmailRequest{QuoteID: 7}))
	require.Len(t, m.mails, 1)
	mail := m.mails[0]
	require.Equal(t, "sales@agriparts.example", mail.To[0].Address)
	require.Equal(t, "Quote request #7: Replacement pump", mail.Subject)
	require.Contains(t, mail.HTML, "Irrigation pump leaking")
	require.Contains(t, mail.HTML, "Thu 20 Jun 2024")
	require.Contains(t, mail.HTML, "12 Orchard Rd")

	log := svc.EmailLog.(*fakeLog)
	require.Len(t, log.entries, 1)
	require.Equal(t, KindQuoteRequest, log.entries[0].Kind)
	require.Equal(t, StatusSent, log.entries[0].Status)
}

func TestSendQuoteEmailExplicit(t *testing.T) {
	m := &fakeMailer{}
	svc := newService(m, &fakeData{})

	err := svc.SendQuoteEmail(context.Background(), QuoteEmailRequest{
		To: "sales@pumps.example", Title: "Hose <fittings>", FarmName: "South",
	})
	require.NoError(t, err)
	require.Contains(t, m.mails[0].HTML, "Hose &lt;fittings&gt;")

	err = svc.SendQuoteEmail(context.Background(), QuoteEmailRequest{To: "nope", Title: "x"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	err = svc.SendQuoteEmail(context.Background(), QuoteEmailRequest{To: "a@b.example"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	err = svc.SendQuoteEmail(context.Background(), QuoteEmailRequest{QuoteID: 99})
	require.ErrorIs(t, err, orders.ErrNotFound)
}

func TestSendPasswordEmail(t *testing.T) {
	m := &fakeMailer{}
	svc := newService(m, &fakeData{})

	err := svc.SendPasswordEmail(context.Background(), PasswordEmailRequest{
		To: "new.tech@farm.example", FullName: "Dee", TempPassword: "Xk4mPq9wZr",
	})
	require.NoError(t, err)
	require.Contains(t, m.mails[0].HTML, "Xk4mPq9wZr")
	require.Contains(t, m.mails[0].HTML, "https://app.example")

	err = svc.SendPasswordEmail(context.Background(), PasswordEmailRequest{To: "new.tech@farm.example"})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCreateCalendarEvent(t *testing.T) {
	m := &fakeMailer{}
	svc := newService(m, &fakeData{})
	ctx := context.Background()

	_, err := svc.CreateCalendarEvent(ctx, EventRequest{Subject: "Vet visit", Start: "2024-06-12T09:00:00Z", End: "2024-06-12T10:30:00Z",
		Attendees: []string{"vet@clinic.example"}})
	require.NoError(t, err)
	require.False(t, m.events[0].AllDay)
	require.Len(t, m.events[0].Attendees, 1)

	_, err = svc.CreateCalendarEvent(ctx, EventRequest{Subject: "Harvest", Start: "2024-09-01"})
	require.NoError(t, err)
	require.True(t, m.events[1].AllDay)
	require.Equal(t, date(2024, 9, 2), m.events[1].End)

	_, err = svc.CreateCalendarEvent(ctx, EventRequest{Subject: "x", Start: "2024-06-12T10:00:00Z", End: "2024-06-12T09:00:00Z"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.CreateCalendarEvent(ctx, EventRequest{Subject: "x", Start: "tomorrow"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.CreateCalendarEvent(ctx, EventRequest{Start: "2024-06-12"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Len(t, m.events, 2)
}

func TestSendOrderConfirmation(t *testing.T) {
	delivery := date(2024, 6, 14)
	m := &fakeMailer{}
	svc := newService(m, &fakeData{order: orderDetails(&delivery)})

	require.NoError(t, svc.SendOrderConfirmation(context.Background(), 3))
	require.Len(t, m.mails, 1)
	require.Equal(t, "Order confirmation NRT-2024-00003", m.mails[0].Subject)
	require.Contains(t, m.mails[0].HTML, "1250.50")
	require.Contains(t, m.mails[0].HTML, "Gate code 4411")

	require.Len(t, m.events, 1)
	ev := m.events[0]
	require.True(t, ev.AllDay)
	require.Equal(t, delivery, ev.Start)
	require.Equal(t, "North field, 12 Orchard Rd", ev.Location)
}

func TestSendOrderConfirmationWithoutDelivery(t *testing.T) {
	m := &fakeMailer{}
	svc := newService(m, &fakeData{order: orderDetails(nil)})

	require.NoError(t, svc.SendOrderConfirmation(context.Background(), 3))
	require.Len(t, m.mails, 1)
	require.Empty(t, m.events)
}

func envelopeMessage(eventType string, payload any) kafkago.Message {
	env := orders.NewEnvelope(eventType, "allevapp-api", "", "7", kafkax.MustMarshal(payload))
	return kafkago.Message{Topic: orders.TopicQuoteRequested, Value: kafkax.MustMarshal(env)}
}

func TestHandleMessageDedup(t *testing.T) {
	m := &fakeMailer{}
	svc := newService(m, &fakeData{quote: quoteDetails()})
	msg := envelopeMessage(orders.EventQuoteRequested, orders.QuoteRequestedPayload{QuoteID: 7, SupplierID: 1, FarmID: 1})

	require.NoError(t, svc.HandleMessage(context.Background(), msg))
	require.NoError(t, svc.HandleMessage(context.Background(), msg))
	require.Len(t, m.mails, 1, "redelivered event is not sent twice")
}

func TestHandleMessageFailureNotMarked(t *testing.T) {
	m := &fakeMailer{err: context.DeadlineExceeded}
	svc := newService(m, &fakeData{order: orderDetails(nil)})
	msg := envelopeMessage(orders.EventOrderConfirmed, orders.OrderConfirmedPayload{OrderID: 3, QuoteID: 7})

	require.Error(t, svc.HandleMessage(context.Background(), msg))
	require.Empty(t, svc.Marks.(*fakeMarks).keys)

	m.err = nil
	require.NoError(t, svc.HandleMessage(context.Background(), msg))
	require.Len(t, m.mails, 1)
	require.True(t, svc.Marks.(*fakeMarks).keys[eventKey(t, msg)])
}

func eventKey(t *testing.T, msg kafkago.Message) string {
	t.Helper()
	var env orders.Envelope
	require.NoError(t, kafkax.UnmarshalEnvelope(msg.Value, &env))
	return fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
}

func TestHandleMessageRetrySkipsFinishedSteps(t *testing.T) {
	delivery := date(2024, 6, 14)
	m := &fakeMailer{eventErr: &graph.APIError{Status: 403, Code: "ErrorAccessDenied"}}
	svc := newService(m, &fakeData{order: orderDetails(&delivery)})
	msg := envelopeMessage(orders.EventOrderConfirmed, orders.OrderConfirmedPayload{OrderID: 3, QuoteID: 7})
	marks := svc.Marks.(*fakeMarks)

	require.Error(t, svc.HandleMessage(context.Background(), msg))
	require.Len(t, m.mails, 1)
	require.Empty(t, m.events)
	require.True(t, marks.keys[eventKey(t, msg)+":mail"])
	require.False(t, marks.keys[eventKey(t, msg)])

	m.eventErr = nil
	require.NoError(t, svc.HandleMessage(context.Background(), msg))
	require.Len(t, m.mails, 1, "supplier is mailed once per event")
	require.Len(t, m.events, 1)
	require.True(t, marks.keys[eventKey(t, msg)])

	require.NoError(t, svc.HandleMessage(context.Background(), msg))
	require.Len(t, m.mails, 1)
	require.Len(t, m.events, 1)
}

func TestSendOrderConfirmationDirectCallIgnoresMarks(t *testing.T) {
	m := &fakeMailer{}
	svc := newService(m, &fakeData{order: orderDetails(nil)})

	require.NoError(t, svc.SendOrderConfirmation(context.Background(), 3))
	require.NoError(t, svc.SendOrderConfirmation(context.Background(), 3))
	require.Len(t, m.mails, 2)
	require.Empty(t, svc.Marks.(*fakeMarks).keys)
}

func TestHandleMessageDropsPermanentFailures(t *testing.T) {
	m := &fakeMailer{}
	svc := newService(m, &fakeData{})

	// the order no longer exists
	msg := envelopeMessage(orders.EventOrderConfirmed, orders.OrderConfirmedPayload{OrderID: 99, QuoteID: 7})
	require.NoError(t, svc.HandleMessage(context.Background(), msg))
	require.True(t, svc.Marks.(*fakeMarks).keys[eventKey(t, msg)])

	bad := envelopeMessage(orders.EventQuoteRequested, "not an object")
	require.NoError(t, svc.HandleMessage(context.Background(), bad))
	require.Empty(t, m.mails)
}

func TestHandleMessageIgnoresUnknown(t *testing.T) {
	m := &fakeMailer{}
	svc := newService(m, &fakeData{})

	require.NoError(t, svc.HandleMessage(context.Background(), envelopeMessage("Something", map[string]int{})))
	require.NoError(t, svc.HandleMessage(context.Background(), kafkago.Message{Value: []byte("{")}))
	require.Empty(t, m.mails)
}
