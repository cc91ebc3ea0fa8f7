package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"castypos.com/posserver/internal/activation"
	"castypos.com/posserver/internal/logging"
	"castypos.com/posserver/internal/metrics"
	"castypos.com/posserver/internal/verify"
)

type Handler struct {
	Verifier          *verify.Verifier
	ActivationService *activation.Service
	Metrics           *metrics.API
	Log               *logging.Logger
}

func NewHandler(v *verify.Verifier, a *activation.Service, m *metrics.API, log *logging.Logger) *Handler {
	return &Handler{
		Verifier:          v,
		ActivationService: a,
		Metrics:           m,
		Log:               log,
	}
}

// POST /licenses/verify
func (h *Handler) Verify(c echo.Context) error {
	var req VerifyRequest
	err := bindRequest(c, &req)
	req.LicenseKey = strings.TrimSpace(req.LicenseKey)
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if err != nil || req.LicenseKey == "" {
		h.Metrics.ObserveVerify(string(activation.MissingFields))
		return c.JSON(http.StatusBadRequest, newFailure(activation.MissingFields, nil))
	}

	ctx := h.Log.WithLicenseKey(c.Request().Context(), req.LicenseKey)
	if req.DeviceID != "" {
		ctx = h.Log.WithDeviceID(ctx, req.DeviceID)
	}

	res, err := h.Verifier.Verify(ctx, req.LicenseKey, req.DeviceID)
	if err != nil {
		return h.internalError(c, ctx, "verify", err)
	}

	h.Metrics.ObserveVerify(string(res.Code))
	if !res.OK() {
		return c.JSON(verifyStatus(res.Code), newVerifyFailure(res))
	}
	return c.JSON(http.StatusOK, newVerifyResponse(res))
}

// POST /devices/bind
func (h *Handler) Bind(c echo.Context) error {
	var req BindRequest
	if err := bindRequest(c, &req); err != nil {
		h.Metrics.ObserveBind(string(activation.MissingFields))
		return c.JSON(http.StatusBadRequest, newFailure(activation.MissingFields, nil))
	}

	ctx := h.Log.WithLicenseKey(c.Request().Context(), req.LicenseKey)
	res, err := h.ActivationService.Bind(ctx, activation.BindRequest{
		LicenseKey:  req.LicenseKey,
		DeviceName:  req.DeviceName,
		DeviceType:  req.DeviceType,
		Fingerprint: req.Fingerprint,
	})
	if err != nil {
		return h.internalError(c, ctx, "bind", err)
	}

	h.Metrics.ObserveBind(string(res.Reason))
	if !res.OK() {
		return c.JSON(activationStatus(res.Reason), newFailure(res.Reason, res.Seats))
	}
	if res.Created {
		h.Log.Info(h.Log.WithDeviceID(ctx, res.Device.DeviceID), "device bound")
	}
	return c.JSON(http.StatusOK, BindResponse{
		OK: true,
		Device: &BoundDevice{
			ID:   res.Device.DeviceID,
			Name: res.Device.DeviceName,
			Type: res.Device.DeviceType,
		},
		License: newBoundLicense(res.License),
	})
}

// POST /devices/heartbeat
func (h *Handler) Heartbeat(c echo.Context) error {
	var req HeartbeatRequest
	if err := bindRequest(c, &req); err != nil {
		h.Metrics.ObserveHeartbeat(string(activation.MissingFields))
		return c.JSON(http.StatusBadRequest, newFailure(activation.MissingFields, nil))
	}

	ctx := h.Log.WithDeviceID(c.Request().Context(), req.DeviceID)
	res, err := h.ActivationService.Heartbeat(ctx, req.DeviceID)
	if err != nil {
		return h.internalError(c, ctx, "heartbeat", err)
	}

	h.Metrics.ObserveHeartbeat(string(res.Reason))
	if !res.OK() {
		return c.JSON(activationStatus(res.Reason), newFailure(res.Reason, nil))
	}
	return c.JSON(http.StatusOK, HeartbeatResponse{
		OK: true,
		Device: &BoundDevice{
			ID:              res.Device.DeviceID,
			LastHeartbeatAt: res.Device.LastHeartbeatAt,
		},
		License: newBoundLicense(res.License),
	})
}

// internalError logs err with the request's license/device context and hides it from the client.
func (h *Handler) internalError(c echo.Context, ctx context.Context, route string, err error) error {
	h.Metrics.IncInternalError(route)
	h.Log.Error(ctx, route+" failed", err)
	return c.JSON(http.StatusInternalServerError, Failure{
		Reason:  reasonInternal,
		Message: messageInternal,
	})
}
