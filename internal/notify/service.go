package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/allevapp/allevapp/internal/farms"
	"github.com/allevapp/allevapp/internal/graph"
	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/redisx"
	"github.com/allevapp/allevapp/internal/reports"
	"github.com/allevapp/allevapp/internal/users"
)

type Mailer interface {
	SendMail(ctx context.Context, m graph.Mail) error
	CreateEvent(ctx context.Context, e graph.Event) (*graph.CreatedEvent, error)
}

type QuoteSource interface {
	QuoteEmailDetails(ctx context.Context, quoteID int64) (*orders.QuoteEmail, error)
}

type OrderSource interface {
	OrderEmailDetails(ctx context.Context, orderID int64) (*orders.OrderEmail, error)
}

type ReportSource interface {
	ListActive(ctx context.Context) ([]reports.Report, error)
}

type MaintenanceSource interface {
	ListScheduledMaintenance(ctx context.Context, until time.Time) ([]farms.MaintenanceItem, error)
}

type RecipientSource interface {
	ListSummaryRecipients(ctx context.Context) ([]users.User, error)
}

type EmailLogger interface {
	Record(ctx context.Context, e LogEntry) error
}

// Marks is the Redis-backed dedup store.
type Marks interface {
	Exists(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Service struct {
	Mailer      Mailer
	Quotes      QuoteSource
	Orders      OrderSource
	Reports     ReportSource
	Maintenance MaintenanceSource
	Recipients  RecipientSource
	EmailLog    EmailLogger // optional
	Marks       Marks       // optional
	AppURL      string
	ServiceName string
	Now         func() time.Time
}

var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// send delivers one mail and records the outcome in the email log.
func (s *Service) send(ctx context.Context, kind string, m graph.Mail) error {
	err := s.Mailer.SendMail(ctx, m)
	if s.EmailLog != nil {
		for _, to := range m.To {
			entry := LogEntry{To: to.Address, Subject: m.Subject, Kind: kind, Status: StatusSent}
			if err != nil {
				entry.Status = StatusFailed
				entry.Error = err.Error()
			}
			if lerr := s.EmailLog.Record(ctx, entry); lerr != nil {
				log.Printf("email log %s to %s: %v", kind, to.Address, lerr)
			}
		}
	}
	return err
}

func validEmail(addr string) bool {
	a, err := mail.ParseAddress(addr)
	return err == nil && a.Address == strings.TrimSpace(addr)
}

// QuoteEmailRequest either names a stored quote or carries the fields explicitly.
type QuoteEmailRequest struct {
	QuoteID      int64      `json:"quote_id"`
	To           string     `json:"to"`
	SupplierName string     `json:"supplier_name"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	FarmName     string     `json:"farm_name"`
	FarmAddress  string     `json:"farm_address"`
	DueDate      *time.Time `json:"due_date"`
}

type quoteView struct {
	QuoteID      int64
	SupplierName string
	Title        string
	Description  string
	ReportTitle  string
	FarmName     string
	FarmAddress  string
	DueDate      *time.Time
	AppURL       string
}

func (s *Service) SendQuoteEmail(ctx context.Context, req QuoteEmailRequest) error {
	v := quoteView{
		QuoteID:      req.QuoteID,
		SupplierName: req.SupplierName,
		Title:        req.Title,
		Description:  req.Description,
		FarmName:     req.FarmName,
		FarmAddress:  req.FarmAddress,
		DueDate:      req.DueDate,
		AppURL:       s.AppURL,
	}
	to := req.To
	if req.QuoteID > 0 && s.Quotes != nil {
		d, err := s.Quotes.QuoteEmailDetails(ctx, req.QuoteID)
		if err != nil {
			return err
		}
		v.SupplierName = d.SupplierName
		v.Title = d.Quote.Title
		v.Description = d.Quote.Description
		v.ReportTitle = d.ReportTitle
		v.FarmName = d.FarmName
		v.FarmAddress = d.FarmAddress
		v.DueDate = d.Quote.DueDate
		if to == "" {
			to = d.SupplierEmail
		}
	}
	if !validEmail(to) {
		return invalid("a valid supplier email is required")
	}
	if strings.TrimSpace(v.Title) == "" {
		return invalid("title is required")
	}

	html, err := render("quote_request.html", v)
	if err != nil {
		return err
	}
	subject := "Quote request: " + v.Title
	if v.QuoteID > 0 {
		subject = fmt.Sprintf("Quote request #%d: %s", v.QuoteID, v.Title)
	}
	return s.send(ctx, KindQuoteRequest, graph.Mail{
		Subject: subject,
		HTML:    html,
		To:      []graph.Recipient{{Address: to, Name: v.SupplierName}},
	})
}

type PasswordEmailRequest struct {
	To           string `json:"to"`
	FullName     string `json:"full_name"`
	TempPassword string `json:"temp_password"`
}

func (s *Service) SendPasswordEmail(ctx context.Context, req PasswordEmailRequest) error {
	if !validEmail(req.To) {
		return invalid("a valid recipient email is required")
	}
	if req.TempPassword == "" {
		return invalid("temp_password is required")
	}
	html, err := render("password.html", struct {
		Email, FullName, TempPassword, AppURL string
	}{req.To, req.FullName, req.TempPassword, s.AppURL})
	if err != nil {
		return err
	}
	return s.send(ctx, KindPassword, graph.Mail{
		Subject: "Your AllevApp account",
		HTML:    html,
		To:      []graph.Recipient{{Address: req.To, Name: req.FullName}},
	})
}

// EventRequest is the create-calendar-event input. Date-only values make an all-day event.
type EventRequest struct {
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Location  string   `json:"location"`
	Attendees []string `json:"attendees"`
}

func parseEventTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, true, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, invalid("cannot parse time %q", v)
}

func (s *Service) CreateCalendarEvent(ctx context.Context, req EventRequest) (*graph.CreatedEvent, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, invalid("subject is required")
	}
	start, startDay, err := parseEventTime(req.Start)
	if err != nil {
		return nil, err
	}
	end := start
	endDay := startDay
	if req.End != "" {
		if end, endDay, err = parseEventTime(req.End); err != nil {
			return nil, err
		}
	}
	allDay := startDay && endDay
	if allDay && !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}
	if !start.Before(end) {
		return nil, invalid("start must be before end")
	}

	ev := graph.Event{
		Subject:  req.Subject,
		HTML:     req.Body,
		Start:    start,
		End:      end,
		AllDay:   allDay,
		Location: req.Location,
	}
	for _, a := range req.Attendees {
		if !validEmail(a) {
			return nil, invalid("invalid attendee %q", a)
		}
		ev.Attendees = append(ev.Attendees, graph.Recipient{Address: a})
	}
	return s.Mailer.CreateEvent(ctx, ev)
}

type orderView struct {
	*orders.OrderEmail
	OrderNumber  string
	TotalAmount  float64
	OrderDate    time.Time
	DeliveryDate *time.Time
	Notes        string
	AppURL       string
}

// SendOrderConfirmation emails the supplier and, when a delivery date is set, books the
// delivery in the sender calendar.
func (s *Service) SendOrderConfirmation(ctx context.Context, orderID int64) error {
	return s.confirmOrder(ctx, orderID, "")
}

// confirmOrder runs the mail and calendar steps. With a non-empty stepKey every finished step is
// marked under stepKey:<step> and skipped when the same event comes back.
func (s *Service) confirmOrder(ctx context.Context, orderID int64, stepKey string) error {
	d, err := s.Orders.OrderEmailDetails(ctx, orderID)
	if err != nil {
		return err
	}
	v := orderView{
		OrderEmail:   d,
		OrderNumber:  d.Order.OrderNumber,
		TotalAmount:  d.Order.TotalAmount,
		OrderDate:    d.Order.OrderDate,
		DeliveryDate: d.Order.DeliveryDate,
		Notes:        d.Order.Notes,
		AppURL:       s.AppURL,
	}

	err = s.once(ctx, stepKey, "mail", func() error {
		if !validEmail(d.SupplierEmail) {
			log.Printf("order %s: supplier has no valid email, skipping confirmation", d.Order.OrderNumber)
			return nil
		}
		html, err := render("order_confirmation.html", v)
		if err != nil {
			return err
		}
		return s.send(ctx, KindOrderConfirmation, graph.Mail{
			Subject: fmt.Sprintf("Order confirmation %s", d.Order.OrderNumber),
			HTML:    html,
			To:      []graph.Recipient{{Address: d.SupplierEmail, Name: d.SupplierName}},
		})
	})
	if err != nil || d.Order.DeliveryDate == nil {
		return err
	}

	return s.once(ctx, stepKey, "event", func() error {
		body, err := render("delivery_event.html", v)
		if err != nil {
			return err
		}
		loc := d.FarmName
		if d.FarmAddress != "" {
			loc += ", " + d.FarmAddress
		}
		_, err = s.Mailer.CreateEvent(ctx, graph.Event{
			Subject:  fmt.Sprintf("Delivery %s: %s", d.Order.OrderNumber, d.QuoteTitle),
			HTML:     body,
			Start:    *d.Order.DeliveryDate,
			End:      *d.Order.DeliveryDate,
			AllDay:   true,
			Location: loc,
		})
		return err
	})
}

// once runs fn unless stepKey:step is already marked, and marks it after fn succeeds.
func (s *Service) once(ctx context.Context, stepKey, step string, fn func() error) error {
	if stepKey == "" || s.Marks == nil {
		return fn()
	}
	key := fmt.Sprintf(redisx.KeyDedupStep, stepKey, step)
	if done, _ := s.Marks.Exists(ctx, key); done {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	if err := s.Marks.Mark(ctx, key, redisx.TTLDedup); err != nil {
		log.Printf("notifier: mark %s: %v", key, err)
	}
	return nil
}
