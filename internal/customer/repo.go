package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("customer not found")

type Repository interface {
	GetAll(ctx context.Context, tenantID string) ([]Customer, error)
	Get(ctx context.Context, tenantID, id string) (*Customer, error)
	Create(ctx context.Context, tx *sqlx.Tx, c *Customer) error
	Update(ctx context.Context, tx *sqlx.Tx, c *Customer) error
	Delete(ctx context.Context, tx *sqlx.Tx, tenantID, id string) error
	Exists(ctx context.Context, tenantID, id string) (bool, error)
}

type repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &repo{db: db}
}

func (r *repo) GetAll(ctx context.Context, tenantID string) ([]Customer, error) {
	var out []Customer
	err := r.db.SelectContext(ctx, &out, getAllCustomersSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get all customers: %w", err)
	}
	return out, nil
}

func (r *repo) Get(ctx context.Context, tenantID, id string) (*Customer, error) {
	var c Customer
	err := r.db.GetContext(ctx, &c, getCustomerSQL, tenantID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w (%s)", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (r *repo) Create(ctx context.Context, tx *sqlx.Tx, c *Customer) error {
	_, err := tx.ExecContext(ctx, createCustomerSQL,
		c.CustomerID,
		c.TenantID,
		c.CustomerName,
		c.ContactName,
		c.Phone,
		c.Email,
		c.Notes,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (r *repo) Update(ctx context.Context, tx *sqlx.Tx, c *Customer) error {
	_, err := tx.ExecContext(ctx, updateCustomerSQL,
		c.CustomerName,
		c.ContactName,
		c.Phone,
		c.Email,
		c.Notes,
		c.TenantID,
		c.CustomerID,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, tx *sqlx.Tx, tenantID, id string) error {
	_, err := tx.ExecContext(ctx, deleteCustomerSQL, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return nil
}

func (r *repo) Exists(ctx context.Context, tenantID, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, customerExistsSQL, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("customer exists: %w", err)
	}
	return exists, nil
}
