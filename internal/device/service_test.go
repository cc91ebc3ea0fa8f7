package device_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"castypos.com/posserver/internal/device"
	"castypos.com/posserver/internal/event"
	"castypos.com/posserver/internal/license"
	"castypos.com/posserver/internal/plan"
	"castypos.com/posserver/internal/sqlite"
	"castypos.com/posserver/internal/tenant"
	"castypos.com/posserver/internal/testutil"
)

type fixture struct {
	db       *sqlx.DB
	svc      *device.Service
	tenantID string
	license  *license.License
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewTestDB(t)

	tn, err := tenant.NewService(db).Create(ctx, "Corner Cafe")
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	catalog, _ := plan.NewCatalog(nil)
	lic, err := license.NewService(db, catalog, event.NewService(db), 30).
		Issue(ctx, license.IssueInput{TenantID: tn.TenantID, Plan: plan.Pro})
	if err != nil {
		t.Fatalf("issue license: %v", err)
	}

	return &fixture{db: db, svc: device.NewService(db), tenantID: tn.TenantID, license: lic}
}

func (f *fixture) create(t *testing.T, name, fingerprint string, bound bool) *device.Device {
	t.Helper()
	d := &device.Device{
		TenantID:   f.tenantID,
		DeviceName: name,
		DeviceType: device.DefaultType,
	}
	if fingerprint != "" {
		d.Fingerprint = &fingerprint
	}
	if bound {
		d.LicenseID = &f.license.LicenseID
	}
	err := f.svc.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return f.svc.Create(context.Background(), tx, d, time.Now().UTC())
	})
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	return d
}

func TestDeviceCreateAndGet(t *testing.T) {
	f := setup(t)
	created := f.create(t, "Till 1", "fp-1", true)

	got, err := f.svc.Get(context.Background(), created.DeviceID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected device")
	}
	if got.Status != device.StatusActive {
		t.Errorf("expected active, got %s", got.Status)
	}
	if !got.BoundTo(f.license.LicenseID) {
		t.Errorf("expected device bound to %s", f.license.LicenseID)
	}
	if got.LastHeartbeatAt == nil || got.LastSeenAt == nil {
		t.Error("expected heartbeat timestamps")
	}

	missing, err := f.svc.Get(context.Background(), "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing device, got %v, %v", missing, err)
	}
}

func TestDeviceCountAndList(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.create(t, "Till 1", "fp-1", true)
	f.create(t, "Till 2", "fp-2", true)
	f.create(t, "Kitchen", "fp-3", false)

	list, err := f.svc.ListForLicense(ctx, f.tenantID, f.license.LicenseID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 bound devices, got %d", len(list))
	}

	err = f.svc.WithTx(ctx, func(tx *sqlx.Tx) error {
		n, err := f.svc.CountForLicense(ctx, tx, f.tenantID, f.license.LicenseID)
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("expected count 2, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
}

func TestDeviceFingerprintUniquePerTenant(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.create(t, "Till 1", "fp-1", true)

	fp := "fp-1"
	err := f.svc.WithTx(ctx, func(tx *sqlx.Tx) error {
		return f.svc.Create(ctx, tx, &device.Device{TenantID: f.tenantID, DeviceName: "dup", DeviceType: "pos", Fingerprint: &fp}, time.Now())
	})
	if !sqlite.IsUniqueConstraintError(err) {
		t.Errorf("expected unique constraint error, got %v", err)
	}

	err = f.svc.WithTx(ctx, func(tx *sqlx.Tx) error {
		d, err := f.svc.FindByFingerprint(ctx, tx, f.tenantID, "fp-1")
		if err != nil {
			return err
		}
		if d == nil || d.DeviceName != "Till 1" {
			t.Errorf("expected Till 1, got %+v", d)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
}

func TestDeviceRebindAndTouch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	d := f.create(t, "Till 1", "fp-1", false)

	later := time.Now().UTC().Add(time.Minute)
	d.LicenseID = &f.license.LicenseID
	d.DeviceName = "Front Till"
	d.Status = device.StatusInactive
	err := f.svc.WithTx(ctx, func(tx *sqlx.Tx) error {
		return f.svc.Rebind(ctx, tx, d, later)
	})
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}

	got, _ := f.svc.Get(ctx, d.DeviceID)
	if !got.BoundTo(f.license.LicenseID) || got.DeviceName != "Front Till" || got.Status != device.StatusActive {
		t.Errorf("unexpected device after rebind: %+v", got)
	}

	// force inactive then heartbeat
	if _, err := f.db.Exec(`UPDATE device SET status = 'inactive' WHERE device_id = ?`, d.DeviceID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	beat := later.Add(time.Minute)
	err = f.svc.WithTx(ctx, func(tx *sqlx.Tx) error {
		return f.svc.Touch(ctx, tx, got, beat)
	})
	if err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, _ = f.svc.Get(ctx, d.DeviceID)
	if got.Status != device.StatusActive {
		t.Errorf("expected heartbeat to revive status, got %s", got.Status)
	}
	if got.LastHeartbeatAt == nil || !got.LastHeartbeatAt.Equal(beat) {
		t.Errorf("expected heartbeat at %v, got %v", beat, got.LastHeartbeatAt)
	}
}

func TestNormalizeName(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune
	if got := device.NormalizeName("  Cafe\u0301 Till "); got != "Caf\u00e9 Till" {
		t.Errorf("expected NFC composed name, got %q", got)
	}
	if got := device.NormalizeType(""); got != device.DefaultType {
		t.Errorf("expected default type, got %q", got)
	}
	if got := device.NormalizeType(" Kiosk "); got != "kiosk" {
		t.Errorf("expected lower-cased type, got %q", got)
	}
}
