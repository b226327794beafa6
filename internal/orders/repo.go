package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid quote status transition")
	ErrAmountRequired    = errors.New("quote has no amount, total_amount is required")
	ErrAlreadyAccepted   = errors.New("another quote for the same subject is already accepted")
	ErrNoSuppliers       = errors.New("at least one supplier is required")
	ErrLocked            = errors.New("quote can no longer be modified")
	// ErrUnknownReference is returned when a farm, supplier or report id does not exist.
	ErrUnknownReference = errors.New("referenced record does not exist")
)

const quoteColumns = `id, title, description, amount, status, due_date, supplier_id, farm_id, report_id, created_at, updated_at`

const orderColumns = `id, quote_id, order_number, company, sequential_number, total_amount,
	order_date, delivery_date, notes, status, created_at`

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	var status string
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.Amount, &status, &q.DueDate,
		&q.SupplierID, &q.FarmID, &q.ReportID, &q.CreatedAt, &q.UpdatedAt)
	q.Status = QuoteStatus(status)
	return q, err
}

func scanOrder(row pgx.Row) (OrderConfirmation, error) {
	var o OrderConfirmation
	err := row.Scan(&o.ID, &o.QuoteID, &o.OrderNumber, &o.Company, &o.SequentialNumber, &o.TotalAmount,
		&o.OrderDate, &o.DeliveryDate, &o.Notes, &o.Status, &o.CreatedAt)
	return o, err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// refErr maps a foreign key violation to ErrUnknownReference.
func refErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%w: %s", ErrUnknownReference, pgErr.ConstraintName)
	}
	return err
}

// CreateQuotes inserts one requested quote per supplier in a single transaction.
func (r *Repo) CreateQuotes(ctx context.Context, in NewQuotes) ([]Quote, error) {
	suppliers := dedupIDs(in.SupplierIDs)
	if len(suppliers) == 0 {
		return nil, ErrNoSuppliers
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]Quote, 0, len(suppliers))
	for _, sid := range suppliers {
		q, err := scanQuote(tx.QueryRow(ctx, `
			INSERT INTO quotes (title, description, status, due_date, supplier_id, farm_id, report_id)
			VALUES ($1, $2, 'requested', $3, $4, $5, $6)
			RETURNING `+quoteColumns,
			in.Title, in.Description, in.DueDate, sid, in.FarmID, in.ReportID,
		))
		if err != nil {
			return nil, fmt.Errorf("insert quote for supplier %d: %w", sid, refErr(err))
		}
		out = append(out, q)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetQuote(ctx context.Context, id int64) (Quote, error) {
	q, err := scanQuote(r.DB.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1`, id))
	return q, notFound(err)
}

func (r *Repo) ListQuotes(ctx context.Context, f QuoteFilter) ([]Quote, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.FarmID > 0 {
		add("farm_id = $%d", f.FarmID)
	}
	if f.ReportID > 0 {
		add("report_id = $%d", f.ReportID)
	}
	if f.SupplierID > 0 {
		add("supplier_id = $%d", f.SupplierID)
	}

	q := `SELECT ` + quoteColumns + ` FROM quotes`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Quote{}
	for rows.Next() {
		qt, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qt)
	}
	return out, rows.Err()
}

// RecordQuoteResponse stores the supplier's price. A received quote may be revised.
func (r *Repo) RecordQuoteResponse(ctx context.Context, id int64, amount float64) (Quote, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Quote{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q, err := scanQuote(tx.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Quote{}, notFound(err)
	}
	if q.Status != QuoteReceived && !CanTransition(q.Status, QuoteReceived) {
		return Quote{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, q.Status, QuoteReceived)
	}

	q, err = scanQuote(tx.QueryRow(ctx, `
		UPDATE quotes SET amount=$2, status='received', updated_at=now()
		WHERE id=$1
		RETURNING `+quoteColumns, id, roundCents(amount)))
	if err != nil {
		return Quote{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// UpdateQuoteStatus moves a quote to received or rejected. Acceptance goes through AcceptQuote
// because it has to create the order confirmation.
func (r *Repo) UpdateQuoteStatus(ctx context.Context, id int64, to QuoteStatus) (Quote, error) {
	if to == QuoteAccepted {
		return Quote{}, fmt.Errorf("%w: accepting requires an order confirmation", ErrInvalidTransition)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Quote{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q, err := scanQuote(tx.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Quote{}, notFound(err)
	}
	if !CanTransition(q.Status, to) {
		return Quote{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, q.Status, to)
	}
	if to == QuoteReceived && q.Amount == nil {
		return Quote{}, ErrAmountRequired
	}

	q, err = scanQuote(tx.QueryRow(ctx, `
		UPDATE quotes SET status=$2, updated_at=now() WHERE id=$1
		RETURNING `+quoteColumns, id, string(to)))
	if err != nil {
		return Quote{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Quote{}, err
	}
	return q, nil
}

func (r *Repo) UpdateQuote(ctx context.Context, id int64, c QuoteChanges) (Quote, error) {
	q, err := scanQuote(r.DB.QueryRow(ctx, `
		UPDATE quotes SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			due_date = COALESCE($4, due_date),
			updated_at = now()
		WHERE id=$1 AND status IN ('requested', 'received')
		RETURNING `+quoteColumns, id, c.Title, c.Description, c.DueDate))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetQuote(ctx, id); getErr != nil {
			return Quote{}, getErr
		}
		return Quote{}, ErrLocked
	}
	return q, err
}

// DeleteQuote removes a quote that has no order confirmation.
func (r *Repo) DeleteQuote(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM quotes WHERE id=$1 AND status <> 'accepted'`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		if _, err := r.GetQuote(ctx, id); err != nil {
			return err
		}
		return ErrLocked
	}
	return nil
}

// AcceptQuote allocates the company order number, writes the order confirmation, accepts the
// quote and rejects its open siblings, all in one transaction.
func (r *Repo) AcceptQuote(ctx context.Context, id int64, in AcceptInput) (*Acceptance, error) {
	q, err := r.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// serialize acceptances that compete for the same subject
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, subjectKey(q)); err != nil {
		return nil, fmt.Errorf("lock subject: %w", err)
	}

	q, err = scanQuote(tx.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err)
	}
	if !CanTransition(q.Status, QuoteAccepted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, q.Status, QuoteAccepted)
	}

	var total float64
	switch {
	case in.TotalAmount != nil:
		total = roundCents(*in.TotalAmount)
	case q.Amount != nil:
		total = roundCents(*q.Amount)
	default:
		return nil, ErrAmountRequired
	}

	var company string
	if err := tx.QueryRow(ctx, `SELECT company FROM farms WHERE id=$1`, q.FarmID).Scan(&company); err != nil {
		return nil, fmt.Errorf("farm %d: %w", q.FarmID, notFound(err))
	}

	var seq int
	if err := tx.QueryRow(ctx, `SELECT get_next_order_number($1)`, company).Scan(&seq); err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}
	var number string
	if err := tx.QueryRow(ctx, `SELECT generate_order_number($1, $2)`, company, seq).Scan(&number); err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}

	orderDate := time.Now().UTC().Truncate(24 * time.Hour)
	if in.OrderDate != nil {
		orderDate = *in.OrderDate
	}

	order, err := scanOrder(tx.QueryRow(ctx, `
		INSERT INTO order_confirmations
			(quote_id, order_number, company, sequential_number, total_amount, order_date, delivery_date, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+orderColumns,
		q.ID, number, company, seq, total, orderDate, in.DeliveryDate, in.Notes, OrderStatusConfirmed,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyAccepted
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	q, err = scanQuote(tx.QueryRow(ctx, `
		UPDATE quotes SET status='accepted', amount=COALESCE(amount, $2), updated_at=now()
		WHERE id=$1
		RETURNING `+quoteColumns, q.ID, total))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyAccepted
		}
		return nil, fmt.Errorf("accept quote: %w", err)
	}

	rejected, err := rejectSiblings(ctx, tx, q)
	if err != nil {
		return nil, fmt.Errorf("reject siblings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &Acceptance{Quote: q, Order: order, Rejected: rejected}, nil
}

func subjectKey(q Quote) string {
	if q.ReportID != nil {
		return fmt.Sprintf("quote-subject:report:%d", *q.ReportID)
	}
	return fmt.Sprintf("quote-subject:farm:%d:%s", q.FarmID, strings.ToLower(q.Title))
}

func rejectSiblings(ctx context.Context, tx pgx.Tx, q Quote) ([]int64, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if q.ReportID != nil {
		rows, err = tx.Query(ctx, `
			UPDATE quotes SET status='rejected', updated_at=now()
			WHERE report_id=$1 AND id<>$2 AND status IN ('requested', 'received')
			RETURNING id`, *q.ReportID, q.ID)
	} else {
		rows, err = tx.Query(ctx, `
			UPDATE quotes SET status='rejected', updated_at=now()
			WHERE report_id IS NULL AND farm_id=$1 AND lower(title)=lower($2) AND id<>$3
			  AND status IN ('requested', 'received')
			RETURNING id`, q.FarmID, q.Title, q.ID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (OrderConfirmation, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM order_confirmations WHERE id=$1`, id))
	return o, notFound(err)
}

func (r *Repo) GetOrderByQuote(ctx context.Context, quoteID int64) (OrderConfirmation, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM order_confirmations WHERE quote_id=$1`, quoteID))
	return o, notFound(err)
}

func (r *Repo) ListOrders(ctx context.Context, f OrderFilter) ([]OrderConfirmation, error) {
	q := `SELECT ` + orderColumns + ` FROM order_confirmations`
	args := []any{}
	if f.Company != "" {
		args = append(args, f.Company)
		q += ` WHERE company = $1`
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY order_date DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []OrderConfirmation{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) QuoteEmailDetails(ctx context.Context, quoteID int64) (*QuoteEmail, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT q.id, q.title, q.description, q.amount, q.status, q.due_date, q.supplier_id, q.farm_id,
		       q.report_id, q.created_at, q.updated_at,
		       s.name, s.email, f.name, f.address, COALESCE(rp.title, '')
		FROM quotes q
		JOIN suppliers s ON s.id = q.supplier_id
		JOIN farms f ON f.id = q.farm_id
		LEFT JOIN reports rp ON rp.id = q.report_id
		WHERE q.id = $1`, quoteID)

	var (
		e      QuoteEmail
		status string
	)
	err := row.Scan(&e.Quote.ID, &e.Quote.Title, &e.Quote.Description, &e.Quote.Amount, &status,
		&e.Quote.DueDate, &e.Quote.SupplierID, &e.Quote.FarmID, &e.Quote.ReportID,
		&e.Quote.CreatedAt, &e.Quote.UpdatedAt,
		&e.SupplierName, &e.SupplierEmail, &e.FarmName, &e.FarmAddress, &e.ReportTitle)
	if err != nil {
		return nil, notFound(err)
	}
	e.Quote.Status = QuoteStatus(status)
	return &e, nil
}

func (r *Repo) OrderEmailDetails(ctx context.Context, orderID int64) (*OrderEmail, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT o.id, o.quote_id, o.order_number, o.company, o.sequential_number, o.total_amount,
		       o.order_date, o.delivery_date, o.notes, o.status, o.created_at,
		       q.title, s.name, s.email, f.name, f.address
		FROM order_confirmations o
		JOIN quotes q ON q.id = o.quote_id
		JOIN suppliers s ON s.id = q.supplier_id
		JOIN farms f ON f.id = q.farm_id
		WHERE o.id = $1`, orderID)

	var e OrderEmail
	o := &e.Order
	err := row.Scan(&o.ID, &o.QuoteID, &o.OrderNumber, &o.Company, &o.SequentialNumber, &o.TotalAmount,
		&o.OrderDate, &o.DeliveryDate, &o.Notes, &o.Status, &o.CreatedAt,
		&e.QuoteTitle, &e.SupplierName, &e.SupplierEmail, &e.FarmName, &e.FarmAddress)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r *Repo) CountPendingQuotes(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM quotes WHERE status IN ('requested', 'received')`).Scan(&n)
	return n, err
}

func (r *Repo) CountOrdersSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM order_confirmations WHERE order_date >= $1`, since).Scan(&n)
	return n, err
}

func dedupIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
