package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("tenant not found")

type Repository interface {
	GetAll(ctx context.Context) ([]Tenant, error)
	Get(ctx context.Context, id string) (*Tenant, error)
	GetByName(ctx context.Context, name string) (*Tenant, error)
	Create(ctx context.Context, tx *sqlx.Tx, t *Tenant) error
}

type repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &repo{db: db}
}

func (r *repo) GetAll(ctx context.Context) ([]Tenant, error) {
	var out []Tenant
	if err := r.db.SelectContext(ctx, &out, getAllTenantsSQL); err != nil {
		return nil, fmt.Errorf("get all tenants: %w", err)
	}
	return out, nil
}

func (r *repo) Get(ctx context.Context, id string) (*Tenant, error) {
	var t Tenant
	err := r.db.GetContext(ctx, &t, getTenantSQL, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w (%s)", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (r *repo) GetByName(ctx context.Context, name string) (*Tenant, error) {
	var t Tenant
	err := r.db.GetContext(ctx, &t, getTenantByNameSQL, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w (%s)", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant by name: %w", err)
	}
	return &t, nil
}

func (r *repo) Create(ctx context.Context, tx *sqlx.Tx, t *Tenant) error {
	_, err := tx.ExecContext(ctx, createTenantSQL, t.TenantID, t.TenantName, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}
