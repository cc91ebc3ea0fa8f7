package tenant

const getAllTenantsSQL = `
SELECT tenant_id, tenant_name, created_at
FROM tenant
ORDER BY tenant_name
`

const getTenantSQL = `
SELECT tenant_id, tenant_name, created_at
FROM tenant
WHERE tenant_id = ?
`

const getTenantByNameSQL = `
SELECT tenant_id, tenant_name, created_at
FROM tenant
WHERE tenant_name = ? COLLATE NOCASE
`

const createTenantSQL = `
INSERT INTO tenant (tenant_id, tenant_name, created_at)
VALUES (?, ?, ?)
`
