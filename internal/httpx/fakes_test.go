package httpx

import (
	"context"
	"sort"
	"time"

	"github.com/allevapp/allevapp/internal/farms"
	"github.com/allevapp/allevapp/internal/graph"
	"github.com/allevapp/allevapp/internal/notify"
	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/reports"
	"github.com/allevapp/allevapp/internal/users"
)

type fakeQuotes struct {
	QuoteStore
	quotes    map[int64]orders.Quote
	orders    map[int64]orders.OrderConfirmation
	nextID    int64
	acceptErr error
	createErr error
	accepts   int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{quotes: map[int64]orders.Quote{}, orders: map[int64]orders.OrderConfirmation{}, nextID: 1}
}

func (f *fakeQuotes) CreateQuotes(_ context.Context, in orders.NewQuotes) ([]orders.Quote, error) {
	if len(in.SupplierIDs) == 0 {
		return nil, orders.ErrNoSuppliers
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	var out []orders.Quote
	for _, s := range in.SupplierIDs {
		q := orders.Quote{ID: f.nextID, Title: in.Title, Status: orders.QuoteRequested, SupplierID: s, FarmID: in.FarmID, ReportID: in.ReportID}
		f.quotes[q.ID] = q
		f.nextID++
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeQuotes) GetQuote(_ context.Context, id int64) (orders.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return orders.Quote{}, orders.ErrNotFound
	}
	return q, nil
}

func (f *fakeQuotes) ListQuotes(_ context.Context, fl orders.QuoteFilter) ([]orders.Quote, error) {
	out := []orders.Quote{}
	for _, q := range f.quotes {
		if fl.FarmID == 0 || q.FarmID == fl.FarmID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuotes) UpdateQuoteStatus(_ context.Context, id int64, to orders.QuoteStatus) (orders.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return q, orders.ErrNotFound
	}
	if !orders.CanTransition(q.Status, to) {
		return q, orders.ErrInvalidTransition
	}
	q.Status = to
	f.quotes[id] = q
	return q, nil
}

func (f *fakeQuotes) AcceptQuote(_ context.Context, id int64, in orders.AcceptInput) (*orders.Acceptance, error) {
	f.accepts++
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	q, ok := f.quotes[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if !orders.CanTransition(q.Status, orders.QuoteAccepted) {
		return nil, orders.ErrInvalidTransition
	}
	total := 0.0
	switch {
	case in.TotalAmount != nil:
		total = *in.TotalAmount
	case q.Amount != nil:
		total = *q.Amount
	default:
		return nil, orders.ErrAmountRequired
	}
	q.Status = orders.QuoteAccepted
	f.quotes[id] = q
	o := orders.OrderConfirmation{
		ID: int64(len(f.orders) + 1), QuoteID: id, OrderNumber: "NRT-2024-00001", Company: "North",
		SequentialNumber: 1, TotalAmount: total, OrderDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		DeliveryDate: in.DeliveryDate, Status: orders.OrderStatusConfirmed,
	}
	f.orders[o.ID] = o

	var rejected []int64
	for sid, s := range f.quotes {
		if sid != id && s.Title == q.Title && !s.Status.Terminal() {
			s.Status = orders.QuoteRejected
			f.quotes[sid] = s
			rejected = append(rejected, sid)
		}
	}
	return &orders.Acceptance{Quote: q, Order: o, Rejected: rejected}, nil
}

func (f *fakeQuotes) GetOrder(_ context.Context, id int64) (orders.OrderConfirmation, error) {
	o, ok := f.orders[id]
	if !ok {
		return o, orders.ErrNotFound
	}
	return o, nil
}

func (f *fakeQuotes) ListOrders(_ context.Context, _ orders.OrderFilter) ([]orders.OrderConfirmation, error) {
	out := []orders.OrderConfirmation{}
	for _, o := range f.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeReports struct {
	ReportStore
	created []reports.Report
	filter  reports.Filter
	list    []reports.Report
}

func (f *fakeReports) Create(_ context.Context, rep reports.Report) (reports.Report, error) {
	rep.ID = int64(len(f.created) + 1)
	rep.Status = reports.StatusOpen
	f.created = append(f.created, rep)
	return rep, nil
}

func (f *fakeReports) List(_ context.Context, fl reports.Filter) ([]reports.Report, error) {
	f.filter = fl
	if f.list == nil {
		return []reports.Report{}, nil
	}
	return f.list, nil
}

func (f *fakeReports) UpdateStatus(_ context.Context, id int64, to reports.Status) (reports.Report, error) {
	if id != 1 {
		return reports.Report{}, reports.ErrNotFound
	}
	if !reports.CanTransition(reports.StatusClosed, to) {
		return reports.Report{}, reports.ErrInvalidTransition
	}
	return reports.Report{ID: 1, Status: to}, nil
}

type fakeUsers struct {
	byID map[string]users.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]users.User{}} }

func (f *fakeUsers) add(u users.User, password string) users.User {
	hash, err := users.HashPassword(password)
	if err != nil {
		panic(err)
	}
	u.PasswordHash = hash
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsers) Create(_ context.Context, u users.User) (users.User, error) {
	for _, x := range f.byID {
		if x.Email == u.Email {
			return users.User{}, users.ErrEmailTaken
		}
	}
	u.ID = "11111111-2222-3333-4444-555555555555"
	u.Active = true
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) Get(_ context.Context, id string) (users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return u, users.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (users.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (f *fakeUsers) List(context.Context, int, int) ([]users.User, error) {
	out := []users.User{}
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, id string, c users.Changes) (users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return u, users.ErrNotFound
	}
	if c.Role != nil {
		u.Role = *c.Role
	}
	if c.Active != nil {
		u.Active = *c.Active
	}
	f.byID[id] = u
	return u, nil
}

func (f *fakeUsers) SetPassword(_ context.Context, id, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return users.ErrNotFound
	}
	u.PasswordHash = hash
	f.byID[id] = u
	return nil
}

type fakeFunctions struct {
	err       error
	passwords []notify.PasswordEmailRequest
	quotes    []notify.QuoteEmailRequest
	force     bool
}

func (f *fakeFunctions) SendQuoteEmail(_ context.Context, req notify.QuoteEmailRequest) error {
	f.quotes = append(f.quotes, req)
	return f.err
}

func (f *fakeFunctions) SendPasswordEmail(_ context.Context, req notify.PasswordEmailRequest) error {
	if f.err != nil {
		return f.err
	}
	f.passwords = append(f.passwords, req)
	return nil
}

func (f *fakeFunctions) CreateCalendarEvent(_ context.Context, _ notify.EventRequest) (*graph.CreatedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &graph.CreatedEvent{ID: "ev-9"}, nil
}

func (f *fakeFunctions) SendDailySummary(_ context.Context, force bool) (*notify.SummaryResult, error) {
	f.force = force
	if f.err != nil {
		return nil, f.err
	}
	return &notify.SummaryResult{Date: "2024-06-10", Recipients: 2, Sent: 2, Results: []notify.RecipientResult{}}, nil
}

type fakeDashboard struct {
	calls int
}

func (f *fakeDashboard) CountActiveByUrgency(context.Context) (map[reports.Urgency]int, error) {
	f.calls++
	return map[reports.Urgency]int{reports.UrgencyCritical: 2, reports.UrgencyHigh: 1}, nil
}

func (f *fakeDashboard) CountPendingQuotes(context.Context) (int, error) { return 4, nil }

func (f *fakeDashboard) CountOrdersSince(context.Context, time.Time) (int, error) { return 3, nil }

func (f *fakeDashboard) ListScheduledMaintenance(context.Context, time.Time) ([]farms.MaintenanceItem, error) {
	return []farms.MaintenanceItem{{Name: "Tractor"}, {Name: "Barn"}}, nil
}
