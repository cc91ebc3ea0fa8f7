// Package posclient is the POS-side client for license verification, device
// binding and heartbeats.
package posclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/dnscache"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultDNSRefresh = 5 * time.Minute
	apiPrefix         = "/api/v1"
)

// Client calls a posserver instance.
type Client struct {
	baseURL string
	http    *http.Client

	resolver   *dnscache.Resolver
	dnsRefresh time.Duration
	stop       chan struct{}
	closeOnce  sync.Once
}

type Option func(*Client)

// WithHTTPClient replaces the default client (cached DNS, 15s timeout).
// No DNS refresh loop runs for a replaced client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithDNSRefresh sets how often cached host lookups are re-resolved (default 5m).
func WithDNSRefresh(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dnsRefresh = d
		}
	}
}

// WithResolver sets the DNS cache used by the default transport.
func WithResolver(r *dnscache.Resolver) Option {
	return func(c *Client) { c.resolver = r }
}

// New returns a client for baseURL. Call Close to stop the DNS refresh loop.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		dnsRefresh: defaultDNSRefresh,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		if c.resolver == nil {
			c.resolver = &dnscache.Resolver{}
		}
		c.http = &http.Client{
			Timeout:   defaultTimeout,
			Transport: cachedDNSTransport(c.resolver),
		}
		go c.refreshDNS()
	}
	return c
}

// refreshDNS re-resolves hosts in use and drops the ones that are not,
// so a moved server is picked up without restarting the till.
func (c *Client) refreshDNS() {
	ticker := time.NewTicker(c.dnsRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.resolver.Refresh(true)
		case <-c.stop:
			return
		}
	}
}

// Close stops the DNS refresh loop and closes idle connections.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.http.CloseIdleConnections()
	})
}

// cachedDNSTransport resolves hosts through r. Tills verify on every start and
// heartbeat on a timer, so lookups are repeated often.
func cachedDNSTransport(r *dnscache.Resolver) *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, err
		}
		ips, err := r.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}
		var lastErr error
		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = &net.DNSError{Err: "no IP addresses found", Name: host}
		}
		return nil, lastErr
	}
	return t
}

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int
	Code    string // verify only
	Reason  string
	Message string
	Devices *Seats
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("posserver: %d %s (%s): %s", e.Status, e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("posserver: %d %s: %s", e.Status, e.Reason, e.Message)
}

// IsReason reports whether err is a server Error with the given reason or code.
func IsReason(err error, reason string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Reason == reason || e.Code == reason
}

type Seats struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

type Period struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end"`
}

type License struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Plan       string    `json:"plan"`
	PlanLabel  string    `json:"planLabel,omitempty"`
	Status     string    `json:"status,omitempty"`
	Period     *Period   `json:"period,omitempty"`
	MaxDevices int       `json:"maxDevices,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

type Device struct {
	ID              string     `json:"id"`
	Name            string     `json:"name,omitempty"`
	Type            string     `json:"type,omitempty"`
	Status          string     `json:"status,omitempty"`
	LastHeartbeatAt *time.Time `json:"lastHeartbeatAt,omitempty"`
	LastSeenAt      *time.Time `json:"lastSeenAt,omitempty"`
}

type Verification struct {
	OfflineGraceDays int       `json:"offlineGraceDays"`
	LastVerified     time.Time `json:"lastVerified"`
	DeviceID         *string   `json:"deviceId"`
	License          License   `json:"license"`
	Devices          Seats     `json:"devices"`
	Device           *Device   `json:"device"`
}

// OfflineUntil is the last moment the till may keep running without another
// successful verification.
func (v *Verification) OfflineUntil() time.Time {
	return v.LastVerified.AddDate(0, 0, v.OfflineGraceDays)
}

type Binding struct {
	Device  Device  `json:"device"`
	License License `json:"license"`
}

type Heartbeat struct {
	Device  Device   `json:"device"`
	License *License `json:"license"`
}

// Verify checks licenseKey; deviceID may be empty.
func (c *Client) Verify(ctx context.Context, licenseKey, deviceID string) (*Verification, error) {
	body := map[string]string{"licenseKey": licenseKey}
	if deviceID != "" {
		body["deviceId"] = deviceID
	}
	var out Verification
	if err := c.post(ctx, "/licenses/verify", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type BindRequest struct {
	LicenseKey  string `json:"licenseKey"`
	DeviceName  string `json:"deviceName"`
	DeviceType  string `json:"deviceType,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

func (c *Client) Bind(ctx context.Context, req BindRequest) (*Binding, error) {
	var out Binding
	if err := c.post(ctx, "/devices/bind", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Heartbeat(ctx context.Context, deviceID string) (*Heartbeat, error) {
	var out Heartbeat
	if err := c.post(ctx, "/devices/heartbeat", map[string]string{"deviceId": deviceID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		var failure struct {
			Code    string `json:"code"`
			Reason  string `json:"reason"`
			Message string `json:"message"`
			Devices *Seats `json:"devices"`
		}
		if json.Unmarshal(data, &failure) == nil {
			apiErr.Code = failure.Code
			apiErr.Reason = failure.Reason
			apiErr.Message = failure.Message
			apiErr.Devices = failure.Devices
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
