package device

const deviceColumns = `device_id, tenant_id, customer_id, license_id, device_name, device_type, status,
    fingerprint, last_heartbeat_at, last_seen_at, created_at, updated_at`

const getDeviceByIDSQL = `
SELECT ` + deviceColumns + `
FROM device
WHERE device_id = ?
`

const getDeviceByFingerprintSQL = `
SELECT ` + deviceColumns + `
FROM device
WHERE tenant_id = ? AND fingerprint = ?
`

const listDevicesForLicenseSQL = `
SELECT ` + deviceColumns + `
FROM device
WHERE tenant_id = ? AND license_id = ?
ORDER BY created_at, device_id
`

const countDevicesForLicenseSQL = `
SELECT COUNT(*)
FROM device
WHERE tenant_id = ? AND license_id = ?
`

const createDeviceSQL = `
INSERT INTO device (
    device_id, tenant_id, customer_id, license_id, device_name, device_type, status,
    fingerprint, last_heartbeat_at, last_seen_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateBindingSQL = `
UPDATE device
SET license_id = ?, customer_id = ?, device_name = ?, device_type = ?, status = ?,
    last_heartbeat_at = ?, last_seen_at = ?, updated_at = ?
WHERE tenant_id = ? AND device_id = ?
`

const touchDeviceSQL = `
UPDATE device
SET last_heartbeat_at = ?, last_seen_at = ?, status = 'active', updated_at = ?
WHERE tenant_id = ? AND device_id = ?
`
