package event

const appendEventSQL = `
INSERT INTO license_event (event_id, tenant_id, license_id, event_type, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const listEventsForLicenseSQL = `
SELECT event_id, tenant_id, license_id, event_type, metadata, created_at
FROM license_event
WHERE tenant_id = ? AND license_id = ?
ORDER BY event_id
`
