package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type tags a license event.
type Type string

const (
	Issued    Type = "issued"
	Activated Type = "activated"
	Heartbeat Type = "heartbeat"
	Updated   Type = "updated"
	Created   Type = "created"
)

func (t Type) IsValid() bool {
	switch t {
	case Issued, Activated, Heartbeat, Updated, Created:
		return true
	default:
		return false
	}
}

// Metadata is free-form context stored with an event as JSON.
type Metadata map[string]any

// Event is one append-only audit record. Ids are ULIDs so rows sort by creation.
type Event struct {
	EventID   string    `db:"event_id"`
	TenantID  string    `db:"tenant_id"`
	LicenseID string    `db:"license_id"`
	EventType Type      `db:"event_type"`
	Metadata  string    `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}

// Decode returns the stored metadata.
func (e *Event) Decode() (Metadata, error) {
	m := Metadata{}
	if e.Metadata == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(e.Metadata), &m); err != nil {
		return nil, fmt.Errorf("decode event metadata: %w", err)
	}
	return m, nil
}
