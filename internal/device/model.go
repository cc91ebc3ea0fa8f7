package device

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DefaultType is used when a bind request leaves the device type out.
const DefaultType = "pos"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Device is one POS installation. It counts against a license's seats
// exactly when LicenseID names that license.
type Device struct {
	DeviceID        string     `db:"device_id"`
	TenantID        string     `db:"tenant_id"`
	CustomerID      *string    `db:"customer_id"`
	LicenseID       *string    `db:"license_id"`
	DeviceName      string     `db:"device_name"`
	DeviceType      string     `db:"device_type"`
	Status          Status     `db:"status"`
	Fingerprint     *string    `db:"fingerprint"`
	LastHeartbeatAt *time.Time `db:"last_heartbeat_at"`
	LastSeenAt      *time.Time `db:"last_seen_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// BoundTo reports whether the device holds a seat on licenseID.
func (d *Device) BoundTo(licenseID string) bool {
	return d.LicenseID != nil && *d.LicenseID == licenseID
}

// NormalizeName trims and NFC-normalizes a display name so visually identical
// names from different keyboards compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// NormalizeType lower-cases the device type, defaulting to DefaultType.
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return DefaultType
	}
	return t
}
