package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/allevapp/allevapp/internal/farms"
	"github.com/allevapp/allevapp/internal/graph"
	"github.com/allevapp/allevapp/internal/redisx"
	"github.com/allevapp/allevapp/internal/reports"
)

const MaintenanceWindowDays = 7

type Summary struct {
	Date    string
	Reports []reports.Report
	Overdue []farms.MaintenanceItem
	DueSoon []farms.MaintenanceItem
	AppURL  string
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BuildSummary keeps open high/critical reports and maintenance overdue or due within
// seven days of now. Dates are compared at day granularity.
func BuildSummary(now time.Time, rs []reports.Report, items []farms.MaintenanceItem) Summary {
	today := day(now)
	limit := today.AddDate(0, 0, MaintenanceWindowDays)

	s := Summary{Date: today.Format(time.DateOnly), Reports: []reports.Report{}, Overdue: []farms.MaintenanceItem{}, DueSoon: []farms.MaintenanceItem{}}
	for _, r := range rs {
		if r.Status.Active() && (r.Urgency == reports.UrgencyHigh || r.Urgency == reports.UrgencyCritical) {
			s.Reports = append(s.Reports, r)
		}
	}
	sort.SliceStable(s.Reports, func(i, j int) bool {
		a, b := s.Reports[i], s.Reports[j]
		if a.Urgency.Rank() != b.Urgency.Rank() {
			return a.Urgency.Rank() < b.Urgency.Rank()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	for _, it := range items {
		if it.Kind == farms.KindEquipment && it.Status == farms.StatusRetired {
			continue
		}
		if it.Kind == farms.KindFacility && it.Status == farms.StatusClosed {
			continue
		}
		due := day(it.NextMaintenanceDate)
		switch {
		case due.Before(today):
			s.Overdue = append(s.Overdue, it)
		case !due.After(limit):
			s.DueSoon = append(s.DueSoon, it)
		}
	}
	return s
}

type RecipientResult struct {
	Email string `json:"email"`
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

type SummaryResult struct {
	Date             string            `json:"date"`
	Reports          int               `json:"reports"`
	MaintenanceItems int               `json:"maintenance_items"`
	Recipients       int               `json:"recipients"`
	Sent             int               `json:"sent"`
	Failed           int               `json:"failed"`
	AlreadySent      bool              `json:"already_sent,omitempty"`
	Results          []RecipientResult `json:"results"`
}

// SendDailySummary mails the summary to every active admin and manager, one call per
// recipient. A failed recipient does not stop the others. Unless force is set, a second run
// on the same day is a no-op.
func (s *Service) SendDailySummary(ctx context.Context, force bool) (*SummaryResult, error) {
	now := s.now()
	res := &SummaryResult{Date: day(now).Format(time.DateOnly), Results: []RecipientResult{}}

	recipients, err := s.Recipients.ListSummaryRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	if len(recipients) == 0 {
		return res, nil
	}

	key := fmt.Sprintf(redisx.KeySummarySent, res.Date)
	claimed := false
	if s.Marks != nil && !force {
		ok, err := s.Marks.Claim(ctx, key, redisx.TTLSummarySent)
		if err != nil {
			log.Printf("daily summary: dedup unavailable: %v", err)
		} else if !ok {
			res.AlreadySent = true
			return res, nil
		}
		claimed = ok
	}
	release := func() {
		if claimed {
			if err := s.Marks.Release(ctx, key); err != nil {
				log.Printf("daily summary: release %s: %v", key, err)
			}
		}
	}

	rs, err := s.Reports.ListActive(ctx)
	if err != nil {
		release()
		return nil, fmt.Errorf("list reports: %w", err)
	}
	items, err := s.Maintenance.ListScheduledMaintenance(ctx, day(now).AddDate(0, 0, MaintenanceWindowDays))
	if err != nil {
		release()
		return nil, fmt.Errorf("list maintenance: %w", err)
	}
	sum := BuildSummary(now, rs, items)
	sum.AppURL = s.AppURL
	res.Reports = len(sum.Reports)
	res.MaintenanceItems = len(sum.Overdue) + len(sum.DueSoon)

	html, err := render("daily_summary.html", sum)
	if err != nil {
		release()
		return nil, err
	}
	subject := fmt.Sprintf("AllevApp daily summary %s: %d urgent reports, %d maintenance items",
		sum.Date, res.Reports, res.MaintenanceItems)

	res.Recipients = len(recipients)
	for _, u := range recipients {
		err := s.send(ctx, KindDailySummary, graph.Mail{
			Subject: subject,
			HTML:    html,
			To:      []graph.Recipient{{Address: u.Email, Name: u.FullName}},
		})
		if errors.Is(err, graph.ErrNotConfigured) {
			release()
			return nil, err
		}
		r := RecipientResult{Email: u.Email, Sent: err == nil}
		if err != nil {
			r.Error = err.Error()
			res.Failed++
		} else {
			res.Sent++
		}
		res.Results = append(res.Results, r)
	}
	if res.Sent == 0 {
		release()
	}
	return res, nil
}
