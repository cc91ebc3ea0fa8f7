package event

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Append(ctx context.Context, tx *sqlx.Tx, e *Event) error
	ListForLicense(ctx context.Context, tenantID, licenseID string) ([]Event, error)
}

type repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Append(ctx context.Context, tx *sqlx.Tx, e *Event) error {
	_, err := tx.ExecContext(ctx, appendEventSQL,
		e.EventID,
		e.TenantID,
		e.LicenseID,
		e.EventType,
		e.Metadata,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append license event: %w", err)
	}
	return nil
}

func (r *repo) ListForLicense(ctx context.Context, tenantID, licenseID string) ([]Event, error) {
	var out []Event
	if err := r.db.SelectContext(ctx, &out, listEventsForLicenseSQL, tenantID, licenseID); err != nil {
		return nil, fmt.Errorf("list license events: %w", err)
	}
	return out, nil
}
