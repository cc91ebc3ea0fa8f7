package license

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"castypos.com/posserver/internal/plan"
)

// Status is the stored license status.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
	StatusBlocked  Status = "blocked"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusExpired, StatusRevoked, StatusBlocked:
		return true
	default:
		return false
	}
}

// IsBlocked reports whether an operator has taken the license out of service.
func (s Status) IsBlocked() bool {
	return s == StatusRevoked || s == StatusBlocked
}

func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", fmt.Errorf("invalid license status %q", value)
	}
	return s, nil
}

var (
	ErrNotFound        = errors.New("license not found")
	ErrTenantRequired  = errors.New("tenant id is required")
	ErrInvalidPlan     = errors.New("invalid plan")
	ErrInvalidWindow   = errors.New("valid_until must be after valid_from")
	ErrNegativeDevices = errors.New("max devices must not be negative")
)

type License struct {
	LicenseID      string     `db:"license_id"`
	TenantID       string     `db:"tenant_id"`
	CustomerID     *string    `db:"customer_id"`
	SubscriptionID *string    `db:"subscription_id"`
	LicenseKey     string     `db:"license_key"`
	Plan           plan.ID    `db:"plan"`
	Status         Status     `db:"status"`
	MaxDevices     *int       `db:"max_devices"`
	ValidFrom      time.Time  `db:"valid_from"`
	ValidUntil     *time.Time `db:"valid_until"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// EffectiveStatus evaluates the license at now. Revocation wins over the validity
// window, an elapsed window reports expired, and a license that has not started or
// is not stored as active reports inactive.
func (l *License) EffectiveStatus(now time.Time) Status {
	switch {
	case l.Status.IsBlocked():
		return l.Status
	case l.ValidUntil != nil && l.ValidUntil.Before(now):
		return StatusExpired
	case l.ValidFrom.After(now) || l.Status != StatusActive:
		return StatusInactive
	default:
		return StatusActive
	}
}

// NeedsExpiryWriteBack reports whether the stored status lags behind an elapsed window.
func (l *License) NeedsExpiryWriteBack(now time.Time) bool {
	return l.EffectiveStatus(now) == StatusExpired && l.Status != StatusExpired
}

// Validate checks business rules for a license before it is written.
func (l *License) Validate() error {
	if l.TenantID == "" {
		return ErrTenantRequired
	}
	if !l.Plan.IsValid() {
		return fmt.Errorf("%w %q", ErrInvalidPlan, l.Plan)
	}
	if !l.Status.IsValid() {
		return fmt.Errorf("invalid license status %q", l.Status)
	}
	if l.MaxDevices != nil && *l.MaxDevices < 0 {
		return ErrNegativeDevices
	}
	if l.ValidUntil != nil && !l.ValidUntil.After(l.ValidFrom) {
		return ErrInvalidWindow
	}
	return nil
}
