package farms

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInUse is returned when a delete is blocked by rows that still reference the record.
	ErrInUse = errors.New("record is still referenced")
	// ErrUnknownFarm is returned when an asset points at a farm that does not exist.
	ErrUnknownFarm = errors.New("farm does not exist")
)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func deleteErr(err error) error {
	var pg *pgconn.PgError
	if errors.As(err, &pg) && pg.Code == "23503" {
		return ErrInUse
	}
	return err
}

func insertErr(err error) error {
	var pg *pgconn.PgError
	if errors.As(err, &pg) && pg.Code == "23503" {
		return ErrUnknownFarm
	}
	return notFound(err)
}

func execDelete(ctx context.Context, db *pgxpool.Pool, table string, id int64) error {
	ct, err := db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, table), id)
	if err != nil {
		return deleteErr(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type FarmRepo struct{ DB *pgxpool.Pool }

const farmColumns = `id, name, company, address, latitude, longitude, created_at`

func scanFarm(row pgx.Row) (Farm, error) {
	var f Farm
	err := row.Scan(&f.ID, &f.Name, &f.Company, &f.Address, &f.Latitude, &f.Longitude, &f.CreatedAt)
	return f, err
}

func (r *FarmRepo) Create(ctx context.Context, f Farm) (Farm, error) {
	if f.Company == "" {
		f.Company = "General"
	}
	return scanFarm(r.DB.QueryRow(ctx, `
		INSERT INTO farms (name, company, address, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+farmColumns, f.Name, f.Company, f.Address, f.Latitude, f.Longitude))
}

func (r *FarmRepo) Get(ctx context.Context, id int64) (Farm, error) {
	f, err := scanFarm(r.DB.QueryRow(ctx, `SELECT `+farmColumns+` FROM farms WHERE id=$1`, id))
	return f, notFound(err)
}

func (r *FarmRepo) List(ctx context.Context, f Filter) ([]Farm, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+farmColumns+` FROM farms ORDER BY name, id LIMIT $1 OFFSET $2`,
		f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Farm{}
	for rows.Next() {
		farm, err := scanFarm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, farm)
	}
	return out, rows.Err()
}

func (r *FarmRepo) Update(ctx context.Context, id int64, c FarmChanges) (Farm, error) {
	f, err := scanFarm(r.DB.QueryRow(ctx, `
		UPDATE farms SET
			name = COALESCE($2, name),
			company = COALESCE($3, company),
			address = COALESCE($4, address),
			latitude = COALESCE($5, latitude),
			longitude = COALESCE($6, longitude)
		WHERE id=$1
		RETURNING `+farmColumns, id, c.Name, c.Company, c.Address, c.Latitude, c.Longitude))
	return f, notFound(err)
}

func (r *FarmRepo) Delete(ctx context.Context, id int64) error {
	return execDelete(ctx, r.DB, "farms", id)
}

// SetCompanyPrefix stores the order number prefix used for a company.
func (r *FarmRepo) SetCompanyPrefix(ctx context.Context, company, prefix string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO companies (name, order_prefix) VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (name) DO UPDATE SET order_prefix = EXCLUDED.order_prefix`, company, prefix)
	return err
}
