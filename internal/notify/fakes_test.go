package notify

import (
	"context"
	"sync"
	"time"

	"github.com/allevapp/allevapp/internal/farms"
	"github.com/allevapp/allevapp/internal/graph"
	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/reports"
	"github.com/allevapp/allevapp/internal/users"
)

type fakeMailer struct {
	mu      sync.Mutex
	mails   []graph.Mail
	events  []graph.Event
	failFor  map[string]error
	err      error
	eventErr error
}

func (f *fakeMailer) SendMail(_ context.Context, m graph.Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if err := f.failFor[m.To[0].Address]; err != nil {
		return err
	}
	f.mails = append(f.mails, m)
	return nil
}

func (f *fakeMailer) CreateEvent(_ context.Context, e graph.Event) (*graph.CreatedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	f.events = append(f.events, e)
	return &graph.CreatedEvent{ID: "ev-1"}, nil
}

type fakeMarks struct {
	keys map[string]bool
}

func newMarks() *fakeMarks { return &fakeMarks{keys: map[string]bool{}} }

func (f *fakeMarks) Exists(_ context.Context, key string) (bool, error) { return f.keys[key], nil }
func (f *fakeMarks) Mark(_ context.Context, key string, _ time.Duration) error {
	f.keys[key] = true
	return nil
}
func (f *fakeMarks) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}
func (f *fakeMarks) Release(_ context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

type fakeLog struct{ entries []LogEntry }

func (f *fakeLog) Record(_ context.Context, e LogEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakeData struct {
	quote      *orders.QuoteEmail
	order      *orders.OrderEmail
	reports    []reports.Report
	items      []farms.MaintenanceItem
	recipients []users.User
	until      time.Time
}

func (f *fakeData) QuoteEmailDetails(context.Context, int64) (*orders.QuoteEmail, error) {
	if f.quote == nil {
		return nil, orders.ErrNotFound
	}
	return f.quote, nil
}

func (f *fakeData) OrderEmailDetails(context.Context, int64) (*orders.OrderEmail, error) {
	if f.order == nil {
		return nil, orders.ErrNotFound
	}
	return f.order, nil
}

func (f *fakeData) ListActive(context.Context) ([]reports.Report, error) { return f.reports, nil }

func (f *fakeData) ListScheduledMaintenance(_ context.Context, until time.Time) ([]farms.MaintenanceItem, error) {
	f.until = until
	return f.items, nil
}

func (f *fakeData) ListSummaryRecipients(context.Context) ([]users.User, error) {
	return f.recipients, nil
}

func newService(m *fakeMailer, d *fakeData) *Service {
	return &Service{
		Mailer:      m,
		Quotes:      d,
		Orders:      d,
		Reports:     d,
		Maintenance: d,
		Recipients:  d,
		EmailLog:    &fakeLog{},
		Marks:       newMarks(),
		AppURL:      "https://app.example",
		ServiceName: "notifier",
		Now:         func() time.Time { return time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC) },
	}
}
