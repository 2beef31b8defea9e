package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
)

// Repository is the credential store.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (Principal, error)
	FindByID(ctx context.Context, id int64) (Principal, error)
	Create(ctx context.Context, p NewPrincipal) (Principal, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]Principal, error)
	CountByRole(ctx context.Context, role rbac.Role) (int, error)
	RecordLogin(ctx context.Context, id int64, at time.Time) error
}

const uniqueViolation = "23505"

const principalColumns = `id, username, first_name, last_name, hashed_password, role, is_active, last_login_at, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUsername fetches a principal by its unique username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (Principal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM users WHERE username = $1`, username)
	return scanPrincipal(row)
}

// FindByID fetches a principal by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Principal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM users WHERE id = $1`, id)
	return scanPrincipal(row)
}

// Create inserts a principal. A taken username yields httpx.ErrDuplicate.
func (r *PGRepository) Create(ctx context.Context, p NewPrincipal) (Principal, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, first_name, last_name, hashed_password, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+principalColumns,
		p.Username, p.FirstName, p.LastName, p.PasswordHash, string(p.Role), p.IsActive)
	created, err := scanPrincipal(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Principal{}, fmt.Errorf("username %q already registered: %w", p.Username, httpx.ErrDuplicate)
		}
		return Principal{}, err
	}
	return created, nil
}

// Delete removes a principal.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// List returns every principal ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Principal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+principalColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var principals []Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return principals, nil
}

// CountByRole counts principals holding role.
func (r *PGRepository) CountByRole(ctx context.Context, role rbac.Role) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&n)
	return n, err
}

// RecordLogin stamps the last successful login time.
func (r *PGRepository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanPrincipal(row pgx.Row) (Principal, error) {
	var (
		p         Principal
		role      string
		first     *string
		last      *string
		lastLogin *time.Time
	)
	err := row.Scan(&p.ID, &p.Username, &first, &last, &p.PasswordHash, &role, &p.IsActive, &lastLogin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, httpx.ErrNotFound
		}
		return Principal{}, err
	}
	p.Role, err = rbac.ParseRole(role)
	if err != nil {
		return Principal{}, fmt.Errorf("auth: user %d: %w", p.ID, err)
	}
	if first != nil {
		p.FirstName = *first
	}
	if last != nil {
		p.LastName = *last
	}
	p.LastLoginAt = lastLogin
	return p, nil
}

var _ Repository = (*PGRepository)(nil)
