package customer

import "time"

type Customer struct {
	CustomerID   string    `db:"customer_id"`
	TenantID     string    `db:"tenant_id"`
	CustomerName string    `db:"customer_name"`
	ContactName  string    `db:"contact_name"`
	Phone        string    `db:"phone"`
	Email        string    `db:"email"`
	Notes        string    `db:"notes"`
	CreatedAt    time.Time `db:"created_at"`
}
