package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
)

// Service is the asset CRUD collaborator. Authorization has already been
// decided by the access guard; actor is carried for attribution.
type Service struct {
	repo      Repository
	logger    *slog.Logger
	validator *validator.Validate
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, validator: httpx.NewValidator()}
}

func (s *Service) List(ctx context.Context, _ rbac.Identity, page Page) ([]Asset, error) {
	return s.repo.List(ctx, page.Normalize())
}

func (s *Service) Get(ctx context.Context, _ rbac.Identity, id int64) (Asset, error) {
	if id <= 0 {
		return Asset{}, notFound(id)
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Asset{}, translate(id, err)
	}
	return a, nil
}

func (s *Service) Create(ctx context.Context, actor rbac.Identity, in CreateInput) (Asset, error) {
	if in.Status == "" {
		in.Status = StatusUnknown
	}
	if err := httpx.Validate(s.validator, in); err != nil {
		return Asset{}, err
	}
	a, err := s.repo.Create(ctx, in)
	if err != nil {
		return Asset{}, err
	}
	s.logger.Info("asset created", slog.Int64("asset_id", a.ID), slog.Int64("actor_id", actor.PrincipalID))
	return a, nil
}

func (s *Service) Update(ctx context.Context, actor rbac.Identity, id int64, in UpdateInput) (Asset, error) {
	if err := httpx.Validate(s.validator, in); err != nil {
		return Asset{}, err
	}
	if id <= 0 {
		return Asset{}, notFound(id)
	}
	if in.Empty() {
		return s.Get(ctx, actor, id)
	}
	a, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Asset{}, translate(id, err)
	}
	s.logger.Info("asset updated", slog.Int64("asset_id", id), slog.Int64("actor_id", actor.PrincipalID))
	return a, nil
}

func (s *Service) Delete(ctx context.Context, actor rbac.Identity, id int64) error {
	if id <= 0 {
		return notFound(id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translate(id, err)
	}
	s.logger.Info("asset deleted", slog.Int64("asset_id", id), slog.Int64("actor_id", actor.PrincipalID))
	return nil
}

func translate(id int64, err error) error {
	if errors.Is(err, httpx.ErrNotFound) {
		return notFound(id)
	}
	return err
}

func notFound(id int64) error {
	return fmt.Errorf("asset with id %d not found: %w", id, httpx.ErrNotFound)
}
