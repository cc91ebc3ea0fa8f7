// Package verify decides whether a POS client may run under a license key.
package verify

import (
	"context"
	"errors"
	"time"

	"castypos.com/posserver/internal/device"
	"castypos.com/posserver/internal/license"
	"castypos.com/posserver/internal/logging"
	"castypos.com/posserver/internal/plan"
)

// LicenseStore reads licenses by key and writes back status corrections.
// GetByKey must return an error wrapping license.ErrNotFound when no row matches.
type LicenseStore interface {
	GetByKey(ctx context.Context, licenseKey string) (*license.License, error)
	UpdateStatus(ctx context.Context, tenantID, licenseID string, status license.Status) error
}

type DeviceStore interface {
	ListForLicense(ctx context.Context, tenantID, licenseID string) ([]device.Device, error)
}

type PlanCatalog interface {
	Lookup(id plan.ID) (plan.Plan, bool)
	Label(id plan.ID) string
}

// defaultSeatLimit applies when neither the license nor its plan sets one.
const defaultSeatLimit = 1

type Verifier struct {
	licenses  LicenseStore
	devices   DeviceStore
	plans     PlanCatalog
	graceDays int
	log       *logging.Logger
	now       func() time.Time
}

func New(licenses LicenseStore, devices DeviceStore, plans PlanCatalog, offlineGraceDays int, log *logging.Logger) *Verifier {
	return &Verifier{
		licenses:  licenses,
		devices:   devices,
		plans:     plans,
		graceDays: offlineGraceDays,
		log:       log,
		now:       time.Now,
	}
}

// WithClock replaces the verifier clock.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Now returns the verifier's current time in UTC.
func (v *Verifier) Now() time.Time {
	return v.now().UTC()
}

// Verify checks licenseKey and, when deviceID is not empty, whether that device
// holds a seat on the license. Business outcomes are reported through Result.Code;
// the returned error is reserved for store failures.
func (v *Verifier) Verify(ctx context.Context, licenseKey, deviceID string) (*Result, error) {
	now := v.Now()
	res := &Result{
		DeviceID:         deviceID,
		CheckedAt:        now,
		OfflineGraceDays: v.graceDays,
	}

	lic, code, err := v.resolve(ctx, licenseKey, now)
	if err != nil {
		return nil, err
	}
	res.Code = code
	if lic == nil {
		return res, nil
	}
	res.License = lic
	res.PlanLabel = v.plans.Label(lic.Plan)
	res.MaxDevices = v.SeatLimit(lic)
	if code != OK {
		return res, nil
	}

	bound, err := v.devices.ListForLicense(ctx, lic.TenantID, lic.LicenseID)
	if err != nil {
		return nil, err
	}
	res.Seats = &Seats{Used: len(bound), Limit: res.MaxDevices}

	if deviceID == "" {
		return res, nil
	}
	for i := range bound {
		if bound[i].DeviceID == deviceID {
			res.Device = &bound[i]
			return res, nil
		}
	}
	res.Code = DeviceMismatch
	return res, nil
}

// Resolve runs the license checks without looking at devices. The license is nil
// only for NotFound.
func (v *Verifier) Resolve(ctx context.Context, licenseKey string) (*license.License, Code, error) {
	return v.resolve(ctx, licenseKey, v.Now())
}

func (v *Verifier) resolve(ctx context.Context, licenseKey string, now time.Time) (*license.License, Code, error) {
	lic, err := v.licenses.GetByKey(ctx, licenseKey)
	if errors.Is(err, license.ErrNotFound) {
		return nil, NotFound, nil
	}
	if err != nil {
		return nil, "", err
	}

	switch v.materialize(ctx, lic, now) {
	case license.StatusRevoked, license.StatusBlocked:
		return lic, Blocked, nil
	case license.StatusExpired:
		return lic, Expired, nil
	case license.StatusInactive:
		return lic, Inactive, nil
	default:
		return lic, OK, nil
	}
}

// materialize evaluates the license at now and, when the window has elapsed but the
// stored status has not caught up, writes expired back. The write is best-effort:
// a failure is logged and the computed status is still returned.
func (v *Verifier) materialize(ctx context.Context, lic *license.License, now time.Time) license.Status {
	effective := lic.EffectiveStatus(now)
	if !lic.NeedsExpiryWriteBack(now) {
		return effective
	}

	if err := v.licenses.UpdateStatus(ctx, lic.TenantID, lic.LicenseID, license.StatusExpired); err != nil {
		ctx = v.log.WithFields(ctx, map[string]any{
			"license_id":  lic.LicenseID,
			"license_key": lic.LicenseKey,
		})
		v.log.Warn(ctx, "expired status write-back failed", err)
		return effective
	}
	lic.Status = license.StatusExpired
	return effective
}

// SeatLimit is the license's own limit, else its plan's, else one seat.
func (v *Verifier) SeatLimit(lic *license.License) int {
	if lic.MaxDevices != nil {
		return *lic.MaxDevices
	}
	if p, ok := v.plans.Lookup(lic.Plan); ok {
		return p.MaxDevices
	}
	return defaultSeatLimit
}
