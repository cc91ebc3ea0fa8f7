package server

import (
	"context"
	"os"

	"github.com/jmoiron/sqlx"

	"castypos.com/posserver/internal/activation"
	"castypos.com/posserver/internal/backup"
	"castypos.com/posserver/internal/config"
	"castypos.com/posserver/internal/customer"
	"castypos.com/posserver/internal/device"
	"castypos.com/posserver/internal/event"
	"castypos.com/posserver/internal/license"
	"castypos.com/posserver/internal/logging"
	"castypos.com/posserver/internal/plan"
	"castypos.com/posserver/internal/sqlite"
	"castypos.com/posserver/internal/tenant"
	"castypos.com/posserver/internal/verify"
)

// Services is the opened database plus every domain service over it.
// The CLI uses it directly; Build puts HTTP on top.
type Services struct {
	DB    *sqlx.DB
	IsNew bool // the database file did not exist before opening

	Plans      *plan.Catalog
	Tenants    *tenant.Service
	Customers  *customer.Service
	Licenses   *license.Service
	Devices    *device.Service
	Events     *event.Service
	Verifier   *verify.Verifier
	Activation *activation.Service
	Backup     *backup.Service
}

// OpenServices opens (creating and migrating if needed) the database named by cfg.
func OpenServices(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Services, error) {
	plans, err := plan.NewCatalog(cfg.Plans)
	if err != nil {
		return nil, err
	}

	isNew := false
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		isNew = true
	}
	dbCtx := log.WithFields(ctx, map[string]any{"db_path": cfg.DBPath, "source": cfg.DBPathSource})
	if isNew {
		log.Info(dbCtx, "creating database")
	} else {
		log.Info(dbCtx, "opening database")
	}

	db, info, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	log.Info(log.WithField(dbCtx, "schema", info), "database ready")

	events := event.NewService(db)
	licenses := license.NewService(db, plans, events, cfg.TrialDays)
	devices := device.NewService(db)
	verifier := verify.New(licenses, devices, plans, cfg.OfflineGraceDays, log)

	return &Services{
		DB:         db,
		IsNew:      isNew,
		Plans:      plans,
		Tenants:    tenant.NewService(db),
		Customers:  customer.NewService(db),
		Licenses:   licenses,
		Devices:    devices,
		Events:     events,
		Verifier:   verifier,
		Activation: activation.NewService(db, verifier, devices, licenses, events, log),
		Backup:     backup.NewService(db, cfg.DBPath),
	}, nil
}

func (s *Services) Close() error {
	return s.DB.Close()
}
