// Package activation binds POS devices to license seats and records their heartbeats.
package activation

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"castypos.com/posserver/internal/device"
	"castypos.com/posserver/internal/event"
	"castypos.com/posserver/internal/license"
	"castypos.com/posserver/internal/logging"
	"castypos.com/posserver/internal/verify"
)

type Service struct {
	db       *sqlx.DB
	verifier *verify.Verifier
	devices  *device.Service
	licenses *license.Service
	events   *event.Service
	log      *logging.Logger
}

func NewService(
	db *sqlx.DB,
	verifier *verify.Verifier,
	devices *device.Service,
	licenses *license.Service,
	events *event.Service,
	log *logging.Logger,
) *Service {
	return &Service{
		db:       db,
		verifier: verifier,
		devices:  devices,
		licenses: licenses,
		events:   events,
		log:      log,
	}
}

// WithTx opens the write transaction. The database is opened with
// _txlock=immediate, so the seat count and the write that follows see no
// concurrent binder.
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

// Bind attaches a device to the license behind req.LicenseKey. A fingerprint
// already bound to the license is refreshed without a seat check; any other
// device consumes a seat.
func (s *Service) Bind(ctx context.Context, req BindRequest) (*BindResult, error) {
	key := strings.TrimSpace(req.LicenseKey)
	name := device.NormalizeName(req.DeviceName)
	if key == "" || name == "" {
		return &BindResult{Reason: MissingFields}, nil
	}
	devType := device.NormalizeType(req.DeviceType)
	fingerprint := strings.TrimSpace(req.Fingerprint)

	lic, code, err := s.verifier.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	if reason := reasonFor(code); reason != Success {
		return &BindResult{Reason: reason}, nil
	}

	now := s.verifier.Now()
	res := &BindResult{License: lic}

	err = s.WithTx(ctx, func(tx *sqlx.Tx) error {
		var existing *device.Device
		if fingerprint != "" {
			var err error
			if existing, err = s.devices.FindByFingerprint(ctx, tx, lic.TenantID, fingerprint); err != nil {
				return err
			}
		}

		if existing != nil && existing.BoundTo(lic.LicenseID) {
			existing.DeviceName = name
			existing.DeviceType = devType
			if err := s.devices.Rebind(ctx, tx, existing, now); err != nil {
				return err
			}
			res.Device = existing
			return s.events.RecordTx(ctx, tx, lic.TenantID, lic.LicenseID, event.Updated, event.Metadata{
				"change":   "device_refreshed",
				"deviceId": existing.DeviceID,
			})
		}

		used, err := s.devices.CountForLicense(ctx, tx, lic.TenantID, lic.LicenseID)
		if err != nil {
			return err
		}
		// unset or zero means no limit when binding
		if limit := seatLimit(lic); limit > 0 && used >= limit {
			res.Reason = MaxDevicesReached
			res.Seats = &verify.Seats{Used: used, Limit: limit}
			res.License = nil
			return nil
		}

		if existing != nil {
			res.PreviousLicenseID = existing.LicenseID
			existing.LicenseID = &lic.LicenseID
			existing.CustomerID = lic.CustomerID
			existing.DeviceName = name
			existing.DeviceType = devType
			if err := s.devices.Rebind(ctx, tx, existing, now); err != nil {
				return err
			}
			res.Device = existing
			return s.events.RecordTx(ctx, tx, lic.TenantID, lic.LicenseID, event.Activated, event.Metadata{
				"deviceId":          existing.DeviceID,
				"fingerprint":       fingerprint,
				"previousLicenseId": res.PreviousLicenseID,
			})
		}

		d := &device.Device{
			TenantID:   lic.TenantID,
			CustomerID: lic.CustomerID,
			LicenseID:  &lic.LicenseID,
			DeviceName: name,
			DeviceType: devType,
		}
		if fingerprint != "" {
			d.Fingerprint = &fingerprint
		}
		if err := s.devices.Create(ctx, tx, d, now); err != nil {
			return err
		}
		res.Device = d
		res.Created = true
		return s.events.RecordTx(ctx, tx, lic.TenantID, lic.LicenseID, event.Activated, event.Metadata{
			"deviceId":    d.DeviceID,
			"fingerprint": d.Fingerprint,
			"created":     true,
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func seatLimit(lic *license.License) int {
	if lic.MaxDevices == nil {
		return 0
	}
	return *lic.MaxDevices
}

// Heartbeat records that a device is alive and revives its active status.
func (s *Service) Heartbeat(ctx context.Context, deviceID string) (*HeartbeatResult, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return &HeartbeatResult{Reason: MissingFields}, nil
	}

	d, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return &HeartbeatResult{Reason: DeviceNotFound}, nil
	}

	now := s.verifier.Now()
	err = s.devices.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.devices.Touch(ctx, tx, d, now)
	})
	if err != nil {
		return nil, err
	}

	res := &HeartbeatResult{Device: d}
	if d.LicenseID == nil {
		return res, nil
	}

	lic, err := s.licenses.Get(ctx, d.TenantID, *d.LicenseID)
	switch {
	case errors.Is(err, license.ErrNotFound):
		return res, nil
	case err != nil:
		return nil, err
	}
	res.License = lic

	err = s.events.Record(ctx, d.TenantID, lic.LicenseID, event.Heartbeat, event.Metadata{"deviceId": d.DeviceID})
	if err != nil {
		ctx = s.log.WithDeviceID(ctx, d.DeviceID)
		s.log.Warn(ctx, "heartbeat event not recorded", err)
	}
	return res, nil
}
