package assets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airportops/assetapi/internal/platform/httpx"
)

// Repository persists assets.
type Repository interface {
	List(ctx context.Context, page Page) ([]Asset, error)
	Get(ctx context.Context, id int64) (Asset, error)
	Create(ctx context.Context, in CreateInput) (Asset, error)
	Update(ctx context.Context, id int64, in UpdateInput) (Asset, error)
	Delete(ctx context.Context, id int64) error
}

const assetColumns = `id, name, description, status, location, asset_type, created_at, updated_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, page Page) ([]Asset, error) {
	page = page.Normalize()
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY id LIMIT $1 OFFSET $2`, page.Limit, page.Skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	assets := []Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Asset, error) {
	return scanAsset(r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, in CreateInput) (Asset, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO assets (name, description, status, location, asset_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+assetColumns,
		in.Name, in.Description, string(in.Status), in.Location, in.Type)
	return scanAsset(row)
}

// Update builds the SET clause from the provided fields only.
func (r *repository) Update(ctx context.Context, id int64, in UpdateInput) (Asset, error) {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Status != nil {
		add("status", string(*in.Status))
	}
	if in.Location != nil {
		add("location", *in.Location)
	}
	if in.Type != nil {
		add("asset_type", *in.Type)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)
	query := `UPDATE assets SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + assetColumns
	return scanAsset(r.pool.QueryRow(ctx, query, args...))
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanAsset(row pgx.Row) (Asset, error) {
	var (
		a      Asset
		status string
	)
	err := row.Scan(&a.ID, &a.Name, &a.Description, &status, &a.Location, &a.Type, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, httpx.ErrNotFound
		}
		return Asset{}, err
	}
	a.Status, err = ParseStatus(status)
	if err != nil {
		return Asset{}, fmt.Errorf("asset %d: %w", a.ID, err)
	}
	return a, nil
}
