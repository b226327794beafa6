package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email already registered")
	ErrInvalidRole = errors.New("invalid role")
)

type Repo struct{ DB *pgxpool.Pool }

const columns = `id, email, full_name, role, active, password_hash, created_at`

func scan(row pgx.Row) (User, error) {
	var (
		u    User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &role, &u.Active, &u.PasswordHash, &u.CreatedAt)
	u.Role = Role(role)
	return u, err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// Create inserts u with a fresh id. PasswordHash must already be set.
func (r *Repo) Create(ctx context.Context, u User) (User, error) {
	if !u.Role.Valid() {
		return User{}, ErrInvalidRole
	}
	out, err := scan(r.DB.QueryRow(ctx, `
		INSERT INTO users (id, email, full_name, role, active, password_hash)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING `+columns,
		uuid.NewString(), normalizeEmail(u.Email), u.FullName, string(u.Role), u.PasswordHash))
	if err != nil {
		var pg *pgconn.PgError
		if errors.As(err, &pg) && pg.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	u, err := scan(r.DB.QueryRow(ctx, `SELECT `+columns+` FROM users WHERE id=$1`, id))
	return u, notFound(err)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	u, err := scan(r.DB.QueryRow(ctx, `SELECT `+columns+` FROM users WHERE email=$1`, normalizeEmail(email)))
	return u, notFound(err)
}

func (r *Repo) List(ctx context.Context, limit, offset int) ([]User, error) {
	return r.query(ctx, `SELECT `+columns+` FROM users ORDER BY email LIMIT $1 OFFSET $2`, limit, offset)
}

// ListSummaryRecipients returns the active admins and managers.
func (r *Repo) ListSummaryRecipients(ctx context.Context) ([]User, error) {
	return r.query(ctx, `
		SELECT `+columns+` FROM users
		WHERE active AND role IN ('admin', 'manager')
		ORDER BY email`)
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]User, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, id string, c Changes) (User, error) {
	if c.Role != nil && !c.Role.Valid() {
		return User{}, ErrInvalidRole
	}
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	var role *string
	if c.Role != nil {
		s := string(*c.Role)
		role = &s
	}
	u, err := scan(r.DB.QueryRow(ctx, `
		UPDATE users SET
			full_name = COALESCE($2, full_name),
			role = COALESCE($3, role),
			active = COALESCE($4, active)
		WHERE id=$1
		RETURNING `+columns, id, c.FullName, role, c.Active))
	return u, notFound(err)
}

func (r *Repo) SetPassword(ctx context.Context, id, hash string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE users SET password_hash=$2 WHERE id=$1`, id, hash)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
