package license

const licenseColumns = `license_id, tenant_id, customer_id, subscription_id, license_key, plan, status,
    max_devices, valid_from, valid_until, created_at, updated_at`

const getLicenseSQL = `
SELECT ` + licenseColumns + `
FROM license
WHERE tenant_id = ? AND license_id = ?
`

const getLicenseByKeySQL = `
SELECT ` + licenseColumns + `
FROM license
WHERE license_key = ?
`

const listLicensesForTenantSQL = `
SELECT ` + licenseColumns + `
FROM license
WHERE tenant_id = ?
ORDER BY created_at, license_key
`

const createLicenseSQL = `
INSERT INTO license (
    license_id, tenant_id, customer_id, subscription_id, license_key, plan, status,
    max_devices, valid_from, valid_until, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateLicenseSQL = `
UPDATE license
SET customer_id = ?, subscription_id = ?, plan = ?, status = ?, max_devices = ?,
    valid_from = ?, valid_until = ?, updated_at = ?
WHERE tenant_id = ? AND license_id = ?
`

// only touches rows whose status differs, so repeated write-backs are no-ops
const updateLicenseStatusSQL = `
UPDATE license
SET status = ?, updated_at = ?
WHERE tenant_id = ? AND license_id = ? AND status <> ?
`
