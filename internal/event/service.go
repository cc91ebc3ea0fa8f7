package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
)

type Service struct {
	repo Repository
	db   *sqlx.DB
	now  func() time.Time
}

func NewService(db *sqlx.DB) *Service {
	return &Service{
		db:   db,
		repo: New(db),
		now:  time.Now,
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

// Record appends an event in its own transaction.
func (s *Service) Record(ctx context.Context, tenantID, licenseID string, t Type, meta Metadata) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.RecordTx(ctx, tx, tenantID, licenseID, t, meta)
	})
}

// RecordTx appends an event as part of the caller's transaction.
func (s *Service) RecordTx(ctx context.Context, tx *sqlx.Tx, tenantID, licenseID string, t Type, meta Metadata) error {
	if !t.IsValid() {
		return fmt.Errorf("invalid event type %q", t)
	}
	if meta == nil {
		meta = Metadata{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode event metadata: %w", err)
	}

	return s.repo.Append(ctx, tx, &Event{
		EventID:   ulid.Make().String(),
		TenantID:  tenantID,
		LicenseID: licenseID,
		EventType: t,
		Metadata:  string(raw),
		CreatedAt: s.now().UTC(),
	})
}

func (s *Service) ListForLicense(ctx context.Context, tenantID, licenseID string) ([]Event, error) {
	return s.repo.ListForLicense(ctx, tenantID, licenseID)
}
