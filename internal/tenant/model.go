package tenant

import "time"

// Tenant owns customers, licenses and devices. Every license mutation is scoped by tenant id.
type Tenant struct {
	TenantID   string    `db:"tenant_id"`
	TenantName string    `db:"tenant_name"`
	CreatedAt  time.Time `db:"created_at"`
}
