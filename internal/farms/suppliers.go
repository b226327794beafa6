package farms

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SupplierRepo struct{ DB *pgxpool.Pool }

const supplierColumns = `id, name, email, phone, category, active, created_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Category, &s.Active, &s.CreatedAt)
	return s, err
}

func (r *SupplierRepo) Create(ctx context.Context, s Supplier) (Supplier, error) {
	return scanSupplier(r.DB.QueryRow(ctx, `
		INSERT INTO suppliers (name, email, phone, category, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+supplierColumns, s.Name, s.Email, s.Phone, s.Category, s.Active))
}

func (r *SupplierRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.DB.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id=$1`, id))
	return s, notFound(err)
}

// List returns suppliers by name; activeOnly hides deactivated ones.
func (r *SupplierRepo) List(ctx context.Context, activeOnly bool, f Filter) ([]Supplier, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+supplierColumns+` FROM suppliers
		WHERE ($1 = FALSE OR active)
		ORDER BY name, id LIMIT $2 OFFSET $3`, activeOnly, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SupplierRepo) Update(ctx context.Context, id int64, c SupplierChanges) (Supplier, error) {
	s, err := scanSupplier(r.DB.QueryRow(ctx, `
		UPDATE suppliers SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			category = COALESCE($5, category),
			active = COALESCE($6, active)
		WHERE id=$1
		RETURNING `+supplierColumns, id, c.Name, c.Email, c.Phone, c.Category, c.Active))
	return s, notFound(err)
}

func (r *SupplierRepo) Delete(ctx context.Context, id int64) error {
	return execDelete(ctx, r.DB, "suppliers", id)
}
