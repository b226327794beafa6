package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var (
	ErrNotFound          = errors.New("report not found")
	ErrInvalidTransition = errors.New("invalid report status transition")
	ErrUnknownReference  = errors.New("referenced farm, equipment or facility does not exist")
)

const columns = `id, farm_id, equipment_id, facility_id, title, description, urgency, status, reported_by, created_at, updated_at`

func scan(row pgx.Row) (Report, error) {
	var (
		r               Report
		urgency, status string
	)
	err := row.Scan(&r.ID, &r.FarmID, &r.EquipmentID, &r.FacilityID, &r.Title, &r.Description,
		&urgency, &status, &r.ReportedBy, &r.CreatedAt, &r.UpdatedAt)
	r.Urgency = Urgency(urgency)
	r.Status = Status(status)
	return r, err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%w: %s", ErrUnknownReference, pgErr.ConstraintName)
	}
	return err
}

func (r *Repo) Create(ctx context.Context, rep Report) (Report, error) {
	if rep.Status == "" {
		rep.Status = StatusOpen
	}
	out, err := scan(r.DB.QueryRow(ctx, `
		INSERT INTO reports (farm_id, equipment_id, facility_id, title, description, urgency, status, reported_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+columns,
		rep.FarmID, rep.EquipmentID, rep.FacilityID, rep.Title, rep.Description,
		string(rep.Urgency), string(rep.Status), rep.ReportedBy))
	return out, notFound(err)
}

func (r *Repo) Get(ctx context.Context, id int64) (Report, error) {
	rep, err := scan(r.DB.QueryRow(ctx, `SELECT `+columns+` FROM reports WHERE id=$1`, id))
	return rep, notFound(err)
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Report, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.FarmID > 0 {
		add("farm_id = $%d", f.FarmID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Urgency != "" {
		add("urgency = $%d", string(f.Urgency))
	}

	q := `SELECT ` + columns + ` FROM reports`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return r.query(ctx, q, args...)
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]Report, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		rep, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, id int64, c Changes) (Report, error) {
	var urgency *string
	if c.Urgency != nil {
		u := string(*c.Urgency)
		urgency = &u
	}
	rep, err := scan(r.DB.QueryRow(ctx, `
		UPDATE reports SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			urgency = COALESCE($4, urgency),
			equipment_id = COALESCE($5, equipment_id),
			facility_id = COALESCE($6, facility_id),
			updated_at = now()
		WHERE id=$1
		RETURNING `+columns, id, c.Title, c.Description, urgency, c.EquipmentID, c.FacilityID))
	return rep, notFound(err)
}

func (r *Repo) UpdateStatus(ctx context.Context, id int64, to Status) (Report, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Report{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from string
	if err := tx.QueryRow(ctx, `SELECT status FROM reports WHERE id=$1 FOR UPDATE`, id).Scan(&from); err != nil {
		return Report{}, notFound(err)
	}
	if !CanTransition(Status(from), to) {
		return Report{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	rep, err := scan(tx.QueryRow(ctx, `
		UPDATE reports SET status=$2, updated_at=now() WHERE id=$1
		RETURNING `+columns, id, string(to)))
	if err != nil {
		return Report{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Report{}, err
	}
	return rep, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM reports WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive returns every report that is not resolved or closed, with its farm name.
func (r *Repo) ListActive(ctx context.Context) ([]Report, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT r.id, r.farm_id, r.equipment_id, r.facility_id, r.title, r.description, r.urgency,
		       r.status, r.reported_by, r.created_at, r.updated_at, f.name
		FROM reports r
		JOIN farms f ON f.id = r.farm_id
		WHERE r.status NOT IN ('resolved', 'closed')
		ORDER BY r.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		var (
			rep             Report
			urgency, status string
		)
		if err := rows.Scan(&rep.ID, &rep.FarmID, &rep.EquipmentID, &rep.FacilityID, &rep.Title,
			&rep.Description, &urgency, &status, &rep.ReportedBy, &rep.CreatedAt, &rep.UpdatedAt,
			&rep.FarmName); err != nil {
			return nil, err
		}
		rep.Urgency = Urgency(urgency)
		rep.Status = Status(status)
		out = append(out, rep)
	}
	return out, rows.Err()
}

// CountActiveByUrgency is used by the dashboard.
func (r *Repo) CountActiveByUrgency(ctx context.Context) (map[Urgency]int, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT urgency, COUNT(*) FROM reports
		WHERE status NOT IN ('resolved', 'closed')
		GROUP BY urgency`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[Urgency]int{UrgencyLow: 0, UrgencyMedium: 0, UrgencyHigh: 0, UrgencyCritical: 0}
	for rows.Next() {
		var (
			u string
			n int
		)
		if err := rows.Scan(&u, &n); err != nil {
			return nil, err
		}
		out[Urgency(u)] = n
	}
	return out, rows.Err()
}
