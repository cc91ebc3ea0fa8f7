// Package demodata provides sample data for demo deployments.
package demodata

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"

	"castypos.com/posserver/internal/license"
	"castypos.com/posserver/internal/plan"
)

const (
	TenantID   = "00000000-0000-4000-8000-000000000001"
	CustomerID = "00000000-0000-4000-8000-000000000002"

	// LicenseKey is the fixed key of the demo starter license.
	LicenseKey = "CSTY-DEMA-2345-PQRS"
)

//go:embed sample.sql
var sampleSQL string

// Load inserts demo data into the database and issues the demo license.
// This should only be called on a freshly created database after migrations.
func Load(ctx context.Context, db *sqlx.DB, licenses *license.Service) (*license.License, error) {
	if _, err := db.ExecContext(ctx, sampleSQL); err != nil {
		return nil, fmt.Errorf("load sample rows: %w", err)
	}

	lic, err := licenses.Issue(ctx, license.IssueInput{
		TenantID:   TenantID,
		CustomerID: CustomerID,
		Plan:       plan.Starter,
		Key:        LicenseKey,
	})
	if err != nil {
		return nil, fmt.Errorf("issue demo license: %w", err)
	}
	return lic, nil
}
