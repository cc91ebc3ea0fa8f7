package tenant

import (
	"context"
	"errors"
	"strings"
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

func (s *Service) GetAll(ctx context.Context) ([]Tenant, error) {
	return s.repo.GetAll(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByName(ctx context.Context, name string) (*Tenant, error) {
	return s.repo.GetByName(ctx, strings.TrimSpace(name))
}

// Create adds a tenant with a fresh id.
func (s *Service) Create(ctx context.Context, name string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tenant name is required")
	}

	t := &Tenant{
		TenantID:   uuid.NewString(),
		TenantName: name,
		CreatedAt:  s.now().UTC(),
	}
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.repo.Create(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, t.TenantID)
}
