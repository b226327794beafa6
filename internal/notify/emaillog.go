package notify

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	KindQuoteRequest      = "quote_request"
	KindPassword          = "password"
	KindOrderConfirmation = "order_confirmation"
	KindDailySummary      = "daily_summary"

	StatusSent   = "sent"
	StatusFailed = "failed"
)

type LogEntry struct {
	ID      int64     `json:"id"`
	To      string    `json:"to_address"`
	Subject string    `json:"subject"`
	Kind    string    `json:"kind"`
	Status  string    `json:"status"`
	Error   string    `json:"error,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

type EmailLogRepo struct{ DB *pgxpool.Pool }

func (r *EmailLogRepo) Record(ctx context.Context, e LogEntry) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO email_log (to_address, subject, kind, status, error)
		VALUES ($1, $2, $3, $4, $5)`, e.To, e.Subject, e.Kind, e.Status, e.Error)
	return err
}

// Recent returns the latest log entries, newest first.
func (r *EmailLogRepo) Recent(ctx context.Context, limit, offset int) ([]LogEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, to_address, subject, kind, status, error, sent_at
		FROM email_log ORDER BY sent_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.To, &e.Subject, &e.Kind, &e.Status, &e.Error, &e.SentAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
