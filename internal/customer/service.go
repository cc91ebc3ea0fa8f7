package customer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Service struct {
	repo Repository
	db   *sqlx.DB
	now  func() time.Time
}

func NewService(db *sqlx.DB) *Service {
	return &Service{
		db:   db,
		repo: New(db),
		now:  time.Now,
	}
}

func (s *Service) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Service) GetAll(ctx context.Context, tenantID string) ([]Customer, error) {
	return s.repo.GetAll(ctx, tenantID)
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*Customer, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// Create assigns a new id to c and stores it under c.TenantID.
func (s *Service) Create(ctx context.Context, c *Customer) (*Customer, error) {
	c.CustomerID = uuid.NewString()
	c.CreatedAt = s.now().UTC()

	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.repo.Create(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, c.TenantID, c.CustomerID)
}

func (s *Service) Update(ctx context.Context, c *Customer) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.repo.Update(ctx, tx, c)
	})
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.repo.Delete(ctx, tx, tenantID, id)
	})
}

func (s *Service) Exists(ctx context.Context, tenantID, id string) (bool, error) {
	return s.repo.Exists(ctx, tenantID, id)
}
