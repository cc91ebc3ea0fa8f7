package client

import (
	"net/http"
	"time"

	"castypos.com/posserver/internal/activation"
	"castypos.com/posserver/internal/device"
	"castypos.com/posserver/internal/license"
	"castypos.com/posserver/internal/verify"
)

type VerifyRequest struct {
	LicenseKey string `json:"licenseKey" validate:"required"`
	DeviceID   string `json:"deviceId"`
}

type BindRequest struct {
	LicenseKey  string `json:"licenseKey" validate:"required"`
	DeviceName  string `json:"deviceName" validate:"required"`
	DeviceType  string `json:"deviceType"`
	Fingerprint string `json:"fingerprint"`
}

type HeartbeatRequest struct {
	DeviceID string `json:"deviceId" validate:"required"`
}

type Period struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end"`
}

type LicenseView struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Plan       string    `json:"plan"`
	PlanLabel  string    `json:"planLabel"`
	Status     string    `json:"status"`
	Period     Period    `json:"period"`
	MaxDevices int       `json:"maxDevices"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SeatsView struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

type DeviceView struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	LastHeartbeatAt *time.Time `json:"lastHeartbeatAt"`
	LastSeenAt      *time.Time `json:"lastSeenAt"`
}

type VerifyResponse struct {
	OK               bool         `json:"ok"`
	OfflineGraceDays int          `json:"offlineGraceDays"`
	LastVerified     time.Time    `json:"lastVerified"`
	DeviceID         *string      `json:"deviceId"`
	License          *LicenseView `json:"license"`
	Devices          *SeatsView   `json:"devices"`
	Device           *DeviceView  `json:"device"`
}

type VerifyFailure struct {
	OK               bool         `json:"ok"`
	Code             string       `json:"code"`
	Reason           string       `json:"reason"`
	Message          string       `json:"message"`
	OfflineGraceDays int          `json:"offlineGraceDays"`
	License          *LicenseView `json:"license,omitempty"`
	Devices          *SeatsView   `json:"devices,omitempty"`
}

// BoundDevice and BoundLicense are the trimmed shapes returned by bind and heartbeat.
type BoundDevice struct {
	ID              string     `json:"id"`
	Name            string     `json:"name,omitempty"`
	Type            string     `json:"type,omitempty"`
	LastHeartbeatAt *time.Time `json:"lastHeartbeatAt,omitempty"`
}

type BoundLicense struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Plan string `json:"plan"`
}

type BindResponse struct {
	OK      bool          `json:"ok"`
	Device  *BoundDevice  `json:"device"`
	License *BoundLicense `json:"license"`
}

type HeartbeatResponse struct {
	OK      bool          `json:"ok"`
	Device  *BoundDevice  `json:"device"`
	License *BoundLicense `json:"license,omitempty"`
}

// Failure is the error body shared by bind, heartbeat and request validation.
type Failure struct {
	OK      bool       `json:"ok"`
	Reason  string     `json:"reason"`
	Message string     `json:"message"`
	Devices *SeatsView `json:"devices,omitempty"`
}

const (
	reasonInternal  = "INTERNAL_ERROR"
	messageInternal = "internal server error"
)

func verifyStatus(code verify.Code) int {
	switch code {
	case verify.OK:
		return http.StatusOK
	case verify.NotFound:
		return http.StatusNotFound
	case verify.DeviceMismatch:
		return http.StatusConflict
	default:
		return http.StatusForbidden
	}
}

func activationStatus(reason activation.Reason) int {
	switch reason {
	case activation.Success:
		return http.StatusOK
	case activation.MissingFields:
		return http.StatusBadRequest
	case activation.LicenseNotFound, activation.DeviceNotFound:
		return http.StatusNotFound
	case activation.MaxDevicesReached:
		return http.StatusConflict
	default:
		return http.StatusForbidden
	}
}

func newVerifyResponse(res *verify.Result) VerifyResponse {
	out := VerifyResponse{
		OK:               true,
		OfflineGraceDays: res.OfflineGraceDays,
		LastVerified:     res.CheckedAt,
		License:          newLicenseView(res),
		Devices:          newSeatsView(res.Seats),
	}
	if res.DeviceID != "" {
		id := res.DeviceID
		out.DeviceID = &id
	}
	if res.Device != nil {
		out.Device = newDeviceView(res.Device)
	}
	return out
}

func newVerifyFailure(res *verify.Result) VerifyFailure {
	return VerifyFailure{
		Code:             string(res.Code),
		Reason:           res.Code.Reason(),
		Message:          res.Code.Message(),
		OfflineGraceDays: res.OfflineGraceDays,
		License:          newLicenseView(res),
		Devices:          newSeatsView(res.Seats),
	}
}

func newLicenseView(res *verify.Result) *LicenseView {
	lic := res.License
	if lic == nil {
		return nil
	}
	return &LicenseView{
		ID:         lic.LicenseID,
		Key:        lic.LicenseKey,
		Plan:       string(lic.Plan),
		PlanLabel:  res.PlanLabel,
		Status:     string(lic.Status),
		Period:     Period{Start: lic.ValidFrom, End: lic.ValidUntil},
		MaxDevices: res.MaxDevices,
		CreatedAt:  lic.CreatedAt,
	}
}

func newSeatsView(s *verify.Seats) *SeatsView {
	if s == nil {
		return nil
	}
	return &SeatsView{Used: s.Used, Limit: s.Limit}
}

func newDeviceView(d *device.Device) *DeviceView {
	return &DeviceView{
		ID:              d.DeviceID,
		Name:            d.DeviceName,
		Type:            d.DeviceType,
		Status:          string(d.Status),
		LastHeartbeatAt: d.LastHeartbeatAt,
		LastSeenAt:      d.LastSeenAt,
	}
}

func newBoundLicense(lic *license.License) *BoundLicense {
	if lic == nil {
		return nil
	}
	return &BoundLicense{ID: lic.LicenseID, Key: lic.LicenseKey, Plan: string(lic.Plan)}
}

func newFailure(reason activation.Reason, seats *verify.Seats) Failure {
	return Failure{
		Reason:  string(reason),
		Message: reason.Message(),
		Devices: newSeatsView(seats),
	}
}
