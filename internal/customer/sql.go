package customer

const customerColumns = `customer_id, tenant_id, customer_name, contact_name, phone, email, notes, created_at`

const getAllCustomersSQL = `
SELECT ` + customerColumns + `
FROM customer
WHERE tenant_id = ?
ORDER BY customer_name
`

const getCustomerSQL = `
SELECT ` + customerColumns + `
FROM customer
WHERE tenant_id = ? AND customer_id = ?
`

const createCustomerSQL = `
INSERT INTO customer (
    customer_id, tenant_id, customer_name, contact_name, phone, email, notes, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const updateCustomerSQL = `
UPDATE customer
SET customer_name = ?, contact_name = ?, phone = ?, email = ?, notes = ?
WHERE tenant_id = ? AND customer_id = ?
`

const deleteCustomerSQL = `
DELETE FROM customer
WHERE tenant_id = ? AND customer_id = ?
`

const customerExistsSQL = `
SELECT EXISTS(
    SELECT 1 FROM customer WHERE tenant_id = ? AND customer_id = ?
)
`
