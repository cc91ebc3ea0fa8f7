package verify

import (
	"time"

	"castypos.com/posserver/internal/device"
	"castypos.com/posserver/internal/license"
)

// Code is the outcome of a verification. The zero value means the client may run.
type Code string

const (
	OK             Code = ""
	NotFound       Code = "NOT_FOUND"
	Blocked        Code = "BLOCKED"
	Expired        Code = "EXPIRED"
	Inactive       Code = "INACTIVE"
	DeviceMismatch Code = "DEVICE_MISMATCH"
)

var reasons = map[Code]struct{ reason, message string }{
	NotFound:       {"license_not_found", "license key not found"},
	Blocked:        {"license_blocked", "license has been revoked"},
	Expired:        {"license_expired", "license has expired"},
	Inactive:       {"license_inactive", "license is not active"},
	DeviceMismatch: {"device_not_bound", "device not bound to this license"},
}

// Reason is the machine-readable string shown to clients.
func (c Code) Reason() string {
	return reasons[c].reason
}

// Message is the human-readable explanation shown to clients.
func (c Code) Message() string {
	return reasons[c].message
}

// Seats reports device usage against a license's limit.
type Seats struct {
	Used  int
	Limit int
}

// Result is the outcome of Verify. License is nil only for NotFound; Seats is set
// for success and DeviceMismatch; Device is set only on success with a device id.
type Result struct {
	Code             Code
	DeviceID         string
	License          *license.License
	PlanLabel        string
	MaxDevices       int
	Seats            *Seats
	Device           *device.Device
	CheckedAt        time.Time
	OfflineGraceDays int
}

func (r *Result) OK() bool {
	return r.Code == OK
}
