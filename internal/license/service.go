package license

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"castypos.com/posserver/internal/event"
	"castypos.com/posserver/internal/plan"
	"castypos.com/posserver/internal/sqlite"
)

// maxKeyAttempts bounds retries when a generated key collides with an existing one.
const maxKeyAttempts = 5

type Service struct {
	repo      Repository
	db        *sqlx.DB
	events    *event.Service
	plans     *plan.Catalog
	trialDays int
	now       func() time.Time
	newKey    func() (string, error)
}

func NewService(db *sqlx.DB, plans *plan.Catalog, events *event.Service, trialDays int) *Service {
	return &Service{
		db:        db,
		repo:      New(db),
		events:    events,
		plans:     plans,
		trialDays: trialDays,
		now:       time.Now,
		newKey:    GenerateKey,
	}
}

// WithClock replaces the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
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

func (s *Service) Get(ctx context.Context, tenantID, licenseID string) (*License, error) {
	return s.repo.Get(ctx, tenantID, licenseID)
}

// GetByKey looks a license up by key. ErrNotFound is returned when no row matches.
func (s *Service) GetByKey(ctx context.Context, licenseKey string) (*License, error) {
	return s.repo.GetByKey(ctx, NormalizeKey(licenseKey))
}

// UpdateStatus writes status unless the row already has it.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, licenseID string, status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid license status %q", status)
	}
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.repo.UpdateStatus(ctx, tx, tenantID, licenseID, status, s.now().UTC())
		return err
	})
}

// ListForTenant returns the tenant's licenses, writing back expired status
// for any whose window has elapsed since it was last checked.
func (s *Service) ListForTenant(ctx context.Context, tenantID string) ([]License, error) {
	list, err := s.repo.ListForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	for i := range list {
		if !list[i].NeedsExpiryWriteBack(now) {
			continue
		}
		if err := s.UpdateStatus(ctx, tenantID, list[i].LicenseID, StatusExpired); err != nil {
			return nil, err
		}
		list[i].Status = StatusExpired
		list[i].UpdatedAt = now
	}
	return list, nil
}

type IssueInput struct {
	TenantID       string
	CustomerID     string
	SubscriptionID string
	Plan           plan.ID
	Status         Status     // defaults to active
	MaxDevices     *int       // defaults to the plan's seat limit
	ValidFrom      time.Time  // defaults to now
	ValidUntil     *time.Time // trial licenses default to now + trial days
	Key            string     // generated when empty
}

// Issue creates a license and records an issued event.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*License, error) {
	now := s.now().UTC()

	lic := &License{
		LicenseID:  uuid.NewString(),
		TenantID:   in.TenantID,
		Plan:       in.Plan,
		Status:     in.Status,
		MaxDevices: in.MaxDevices,
		ValidFrom:  in.ValidFrom.UTC(),
		ValidUntil: in.ValidUntil,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.CustomerID != "" {
		lic.CustomerID = &in.CustomerID
	}
	if in.SubscriptionID != "" {
		lic.SubscriptionID = &in.SubscriptionID
	}
	if lic.Status == "" {
		lic.Status = StatusActive
	}
	if in.ValidFrom.IsZero() {
		lic.ValidFrom = now
	}
	if lic.ValidUntil != nil {
		until := lic.ValidUntil.UTC()
		lic.ValidUntil = &until
	} else if lic.Plan == plan.Trial && s.trialDays > 0 {
		until := lic.ValidFrom.AddDate(0, 0, s.trialDays)
		lic.ValidUntil = &until
	}
	if lic.MaxDevices == nil {
		if p, ok := s.plans.Lookup(lic.Plan); ok {
			seats := p.MaxDevices
			lic.MaxDevices = &seats
		}
	}

	if err := lic.Validate(); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		key := NormalizeKey(in.Key)
		if key == "" {
			var err error
			if key, err = s.newKey(); err != nil {
				return nil, err
			}
		}
		lic.LicenseKey = key

		err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := s.repo.Create(ctx, tx, lic); err != nil {
				return err
			}
			return s.events.RecordTx(ctx, tx, lic.TenantID, lic.LicenseID, event.Issued, event.Metadata{
				"plan":       lic.Plan,
				"maxDevices": lic.MaxDevices,
			})
		})
		if err == nil {
			break
		}
		// explicit keys are never regenerated
		if in.Key != "" || !sqlite.IsUniqueConstraintError(err) || attempt >= maxKeyAttempts {
			return nil, err
		}
	}

	return s.repo.Get(ctx, lic.TenantID, lic.LicenseID)
}

// Activate marks payment as captured: the license becomes active on plan p with
// the plan's seat limit. A nil validUntil leaves the window open-ended.
func (s *Service) Activate(ctx context.Context, tenantID, licenseID string, p plan.ID, validUntil *time.Time) (*License, error) {
	cfg, ok := s.plans.Lookup(p)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrInvalidPlan, p)
	}

	lic, err := s.repo.Get(ctx, tenantID, licenseID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	previous := lic.Status
	seats := cfg.MaxDevices

	lic.Plan = p
	lic.Status = StatusActive
	lic.MaxDevices = &seats
	if lic.ValidFrom.After(now) {
		lic.ValidFrom = now
	}
	lic.ValidUntil = nil
	if validUntil != nil {
		until := validUntil.UTC()
		lic.ValidUntil = &until
	}
	lic.UpdatedAt = now

	if err := lic.Validate(); err != nil {
		return nil, err
	}

	err = s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.Update(ctx, tx, lic); err != nil {
			return err
		}
		return s.events.RecordTx(ctx, tx, tenantID, licenseID, event.Updated, event.Metadata{
			"change":         "activated",
			"previousStatus": previous,
			"plan":           p,
			"maxDevices":     seats,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, tenantID, licenseID)
}

// Revoke takes a license out of service. Revocation wins over any validity window.
func (s *Service) Revoke(ctx context.Context, tenantID, licenseID, reason string) error {
	lic, err := s.repo.Get(ctx, tenantID, licenseID)
	if err != nil {
		return err
	}
	if lic.Status == StatusRevoked {
		return nil
	}

	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		changed, err := s.repo.UpdateStatus(ctx, tx, tenantID, licenseID, StatusRevoked, s.now().UTC())
		if err != nil {
			return err
		}
		if !changed {
			return errors.New("license status unchanged")
		}
		return s.events.RecordTx(ctx, tx, tenantID, licenseID, event.Updated, event.Metadata{
			"change":         "revoked",
			"previousStatus": lic.Status,
			"reason":         reason,
		})
	})
}
