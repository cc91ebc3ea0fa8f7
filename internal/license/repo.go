package license

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Get(ctx context.Context, tenantID, licenseID string) (*License, error)
	GetByKey(ctx context.Context, licenseKey string) (*License, error)
	ListForTenant(ctx context.Context, tenantID string) ([]License, error)

	Create(ctx context.Context, tx *sqlx.Tx, lic *License) error
	Update(ctx context.Context, tx *sqlx.Tx, lic *License) error
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, tenantID, licenseID string, status Status, at time.Time) (bool, error)
}

type repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, tenantID, licenseID string) (*License, error) {
	var lic License
	err := r.db.GetContext(ctx, &lic, getLicenseSQL, tenantID, licenseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w (%s)", ErrNotFound, licenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("get license: %w", err)
	}
	return &lic, nil
}

func (r *repo) GetByKey(ctx context.Context, licenseKey string) (*License, error) {
	var lic License
	err := r.db.GetContext(ctx, &lic, getLicenseByKeySQL, licenseKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, licenseKey)
	}
	if err != nil {
		return nil, fmt.Errorf("get license by key: %w", err)
	}
	return &lic, nil
}

func (r *repo) ListForTenant(ctx context.Context, tenantID string) ([]License, error) {
	var out []License
	if err := r.db.SelectContext(ctx, &out, listLicensesForTenantSQL, tenantID); err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	return out, nil
}

func (r *repo) Create(ctx context.Context, tx *sqlx.Tx, lic *License) error {
	_, err := tx.ExecContext(ctx, createLicenseSQL,
		lic.LicenseID,
		lic.TenantID,
		lic.CustomerID,
		lic.SubscriptionID,
		lic.LicenseKey,
		lic.Plan,
		lic.Status,
		lic.MaxDevices,
		lic.ValidFrom,
		lic.ValidUntil,
		lic.CreatedAt,
		lic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create license: %w", err)
	}
	return nil
}

func (r *repo) Update(ctx context.Context, tx *sqlx.Tx, lic *License) error {
	_, err := tx.ExecContext(ctx, updateLicenseSQL,
		lic.CustomerID,
		lic.SubscriptionID,
		lic.Plan,
		lic.Status,
		lic.MaxDevices,
		lic.ValidFrom,
		lic.ValidUntil,
		lic.UpdatedAt,
		lic.TenantID,
		lic.LicenseID,
	)
	if err != nil {
		return fmt.Errorf("update license: %w", err)
	}
	return nil
}

// UpdateStatus reports whether a row changed.
func (r *repo) UpdateStatus(ctx context.Context, tx *sqlx.Tx, tenantID, licenseID string, status Status, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, updateLicenseStatusSQL, status, at, tenantID, licenseID, status)
	if err != nil {
		return false, fmt.Errorf("update license status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update license status: %w", err)
	}
	return n > 0, nil
}
