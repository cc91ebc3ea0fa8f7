package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Lookups take a sqlx.QueryerContext so the binder can read inside its write transaction.
type Repository interface {
	GetByID(ctx context.Context, q sqlx.QueryerContext, deviceID string) (*Device, error)
	GetByFingerprint(ctx context.Context, q sqlx.QueryerContext, tenantID, fingerprint string) (*Device, error)
	CountForLicense(ctx context.Context, q sqlx.QueryerContext, tenantID, licenseID string) (int, error)
	ListForLicense(ctx context.Context, tenantID, licenseID string) ([]Device, error)

	Create(ctx context.Context, tx *sqlx.Tx, d *Device) error
	UpdateBinding(ctx context.Context, tx *sqlx.Tx, d *Device) error
	Touch(ctx context.Context, tx *sqlx.Tx, tenantID, deviceID string, at time.Time) error
}

type repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &repo{db: db}
}

func (r *repo) GetByID(ctx context.Context, q sqlx.QueryerContext, deviceID string) (*Device, error) {
	var d Device
	err := sqlx.GetContext(ctx, q, &d, getDeviceByIDSQL, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device by id: %w", err)
	}
	return &d, nil
}

func (r *repo) GetByFingerprint(ctx context.Context, q sqlx.QueryerContext, tenantID, fingerprint string) (*Device, error) {
	var d Device
	err := sqlx.GetContext(ctx, q, &d, getDeviceByFingerprintSQL, tenantID, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device by fingerprint: %w", err)
	}
	return &d, nil
}

func (r *repo) CountForLicense(ctx context.Context, q sqlx.QueryerContext, tenantID, licenseID string) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, countDevicesForLicenseSQL, tenantID, licenseID); err != nil {
		return 0, fmt.Errorf("count devices: %w", err)
	}
	return n, nil
}

func (r *repo) ListForLicense(ctx context.Context, tenantID, licenseID string) ([]Device, error) {
	var out []Device
	if err := r.db.SelectContext(ctx, &out, listDevicesForLicenseSQL, tenantID, licenseID); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return out, nil
}

func (r *repo) Create(ctx context.Context, tx *sqlx.Tx, d *Device) error {
	_, err := tx.ExecContext(ctx, createDeviceSQL,
		d.DeviceID,
		d.TenantID,
		d.CustomerID,
		d.LicenseID,
		d.DeviceName,
		d.DeviceType,
		d.Status,
		d.Fingerprint,
		d.LastHeartbeatAt,
		d.LastSeenAt,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

func (r *repo) UpdateBinding(ctx context.Context, tx *sqlx.Tx, d *Device) error {
	_, err := tx.ExecContext(ctx, updateBindingSQL,
		d.LicenseID,
		d.CustomerID,
		d.DeviceName,
		d.DeviceType,
		d.Status,
		d.LastHeartbeatAt,
		d.LastSeenAt,
		d.UpdatedAt,
		d.TenantID,
		d.DeviceID,
	)
	if err != nil {
		return fmt.Errorf("update device binding: %w", err)
	}
	return nil
}

func (r *repo) Touch(ctx context.Context, tx *sqlx.Tx, tenantID, deviceID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, touchDeviceSQL, at, at, at, tenantID, deviceID)
	if err != nil {
		return fmt.Errorf("touch device: %w", err)
	}
	return nil
}
