package license_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"castypos.com/posserver/internal/license"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name       string
		status     license.Status
		validFrom  time.Time
		validUntil *time.Time
		want       license.Status
	}{
		{"active in window", license.StatusActive, past, &future, license.StatusActive},
		{"active open ended", license.StatusActive, past, nil, license.StatusActive},
		{"revoked wins over valid window", license.StatusRevoked, past, &future, license.StatusRevoked},
		{"blocked wins over elapsed window", license.StatusBlocked, past, &past, license.StatusBlocked},
		{"elapsed window", license.StatusActive, past.Add(-time.Hour), &past, license.StatusExpired},
		{"already expired", license.StatusExpired, past.Add(-time.Hour), &past, license.StatusExpired},
		{"not started", license.StatusActive, future, nil, license.StatusInactive},
		{"paused", license.StatusInactive, past, &future, license.StatusInactive},
		{"expired status with open window", license.StatusExpired, past, &future, license.StatusInactive},
		{"until equal to now is still valid", license.StatusActive, past, &now, license.StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lic := &license.License{Status: tt.status, ValidFrom: tt.validFrom, ValidUntil: tt.validUntil}
			assert.Equal(t, tt.want, lic.EffectiveStatus(now))
		})
	}
}

func TestNeedsExpiryWriteBack(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	lic := &license.License{Status: license.StatusActive, ValidFrom: past.Add(-time.Hour), ValidUntil: &past}
	assert.True(t, lic.NeedsExpiryWriteBack(now))

	lic.Status = license.StatusExpired
	assert.False(t, lic.NeedsExpiryWriteBack(now))

	lic.Status = license.StatusRevoked
	assert.False(t, lic.NeedsExpiryWriteBack(now))
}

func TestParseStatus(t *testing.T) {
	s, err := license.ParseStatus(" Revoked")
	assert.NoError(t, err)
	assert.Equal(t, license.StatusRevoked, s)
	assert.True(t, s.IsBlocked())

	_, err = license.ParseStatus("paused")
	assert.Error(t, err)
}
