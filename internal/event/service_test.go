package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"castypos.com/posserver/internal/event"
	"castypos.com/posserver/internal/testutil"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)

	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO tenant (tenant_id, tenant_name, created_at) VALUES ('t1', 'Corner Cafe', ?)`, now)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO license (license_id, tenant_id, license_key, plan, status, valid_from, created_at, updated_at)
		VALUES ('l1', 't1', 'CSTY-AAAA-BBBB-CCCC', 'starter', 'active', ?, ?, ?)`, now, now, now)
	require.NoError(t, err)

	svc := event.NewService(db)
	require.NoError(t, svc.Record(ctx, "t1", "l1", event.Activated, event.Metadata{"previousLicenseId": "l0"}))
	require.NoError(t, svc.Record(ctx, "t1", "l1", event.Heartbeat, nil))

	evs, err := svc.ListForLicense(ctx, "t1", "l1")
	require.NoError(t, err)
	require.Len(t, evs, 2)

	assert.Equal(t, event.Activated, evs[0].EventType)
	assert.Equal(t, event.Heartbeat, evs[1].EventType)
	assert.Len(t, evs[0].EventID, 26)
	assert.Less(t, evs[0].EventID, evs[1].EventID)

	meta, err := evs[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "l0", meta["previousLicenseId"])

	meta, err = evs[1].Decode()
	require.NoError(t, err)
	assert.Empty(t, meta)

	other, err := svc.ListForLicense(ctx, "t2", "l1")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRecordRejectsUnknownType(t *testing.T) {
	svc := event.NewService(testutil.NewTestDB(t))
	err := svc.Record(context.Background(), "t1", "l1", event.Type("deleted"), nil)
	assert.Error(t, err)
}

func TestRecordRequiresLicense(t *testing.T) {
	svc := event.NewService(testutil.NewTestDB(t))
	// foreign keys are on, so an unknown license cannot collect events
	err := svc.Record(context.Background(), "t1", "missing", event.Issued, nil)
	assert.Error(t, err)
}
