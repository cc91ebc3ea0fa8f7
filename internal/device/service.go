package device

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Service struct {
	repo Repository
	db   *sqlx.DB
}

func NewService(db *sqlx.DB) *Service {
	return &Service{
		db:   db,
		repo: New(db),
	}
}

func (s *Service) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Get returns nil when the device does not exist.
func (s *Service) Get(ctx context.Context, deviceID string) (*Device, error) {
	return s.repo.GetByID(ctx, s.db, deviceID)
}

func (s *Service) ListForLicense(ctx context.Context, tenantID, licenseID string) ([]Device, error) {
	return s.repo.ListForLicense(ctx, tenantID, licenseID)
}

// FindByFingerprint returns nil when no device in the tenant has the fingerprint.
func (s *Service) FindByFingerprint(ctx context.Context, tx *sqlx.Tx, tenantID, fingerprint string) (*Device, error) {
	return s.repo.GetByFingerprint(ctx, tx, tenantID, fingerprint)
}

func (s *Service) CountForLicense(ctx context.Context, tx *sqlx.Tx, tenantID, licenseID string) (int, error) {
	return s.repo.CountForLicense(ctx, tx, tenantID, licenseID)
}

// Create inserts d with a fresh id, stamping creation and heartbeat times with at.
func (s *Service) Create(ctx context.Context, tx *sqlx.Tx, d *Device, at time.Time) error {
	d.DeviceID = uuid.NewString()
	d.Status = StatusActive
	d.LastHeartbeatAt = &at
	d.LastSeenAt = &at
	d.CreatedAt = at
	d.UpdatedAt = at
	return s.repo.Create(ctx, tx, d)
}

// Rebind stores d's license, name and type and marks it active as of at.
func (s *Service) Rebind(ctx context.Context, tx *sqlx.Tx, d *Device, at time.Time) error {
	d.Status = StatusActive
	d.LastHeartbeatAt = &at
	d.LastSeenAt = &at
	d.UpdatedAt = at
	return s.repo.UpdateBinding(ctx, tx, d)
}

// Touch records a heartbeat and revives the device's active status.
func (s *Service) Touch(ctx context.Context, tx *sqlx.Tx, d *Device, at time.Time) error {
	if err := s.repo.Touch(ctx, tx, d.TenantID, d.DeviceID, at); err != nil {
		return err
	}
	d.Status = StatusActive
	d.LastHeartbeatAt = &at
	d.LastSeenAt = &at
	d.UpdatedAt = at
	return nil
}
