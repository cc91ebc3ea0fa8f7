package activation

import (
	"castypos.com/posserver/internal/device"
	"castypos.com/posserver/internal/license"
	"castypos.com/posserver/internal/verify"
)

// Reason tags a failed bind or heartbeat. The zero value means success.
type Reason string

const (
	Success           Reason = ""
	MissingFields     Reason = "MISSING_FIELDS"
	LicenseNotFound   Reason = "LICENSE_NOT_FOUND"
	LicenseInactive   Reason = "LICENSE_INACTIVE"
	InvalidOrExpired  Reason = "invalid_or_expired"
	MaxDevicesReached Reason = "MAX_DEVICES_REACHED"
	DeviceNotFound    Reason = "DEVICE_NOT_FOUND"
)

var messages = map[Reason]string{
	MissingFields:     "required fields are missing",
	LicenseNotFound:   "license key not found",
	LicenseInactive:   "license is not active",
	InvalidOrExpired:  "license is invalid or expired",
	MaxDevicesReached: "maximum number of devices reached for this license",
	DeviceNotFound:    "device not found",
}

func (r Reason) Message() string {
	return messages[r]
}

// reasonFor maps a verification outcome onto the bind error taxonomy.
func reasonFor(code verify.Code) Reason {
	switch code {
	case verify.OK:
		return Success
	case verify.NotFound:
		return LicenseNotFound
	case verify.Inactive:
		return LicenseInactive
	default:
		return InvalidOrExpired
	}
}

type BindRequest struct {
	LicenseKey  string
	DeviceName  string
	DeviceType  string
	Fingerprint string
}

// BindResult carries Seats only for MaxDevicesReached; successful binds report
// the device and license without seat counts.
type BindResult struct {
	Reason            Reason
	Device            *device.Device
	License           *license.License
	Seats             *verify.Seats
	Created           bool
	PreviousLicenseID *string
}

func (r *BindResult) OK() bool {
	return r.Reason == Success
}

// HeartbeatResult carries License when the device is bound.
type HeartbeatResult struct {
	Reason  Reason
	Device  *device.Device
	License *license.License
}

func (r *HeartbeatResult) OK() bool {
	return r.Reason == Success
}
