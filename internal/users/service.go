package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/airportops/assetapi/internal/auth"
	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
	"github.com/airportops/assetapi/internal/security"
)

// Service handles user administration. Callers are authorised by the
// access guard before reaching it; principals are created and deleted but
// never updated in place.
type Service struct {
	repo      auth.Repository
	hasher    *security.Hasher
	validator *validator.Validate
}

// NewService builds Service instance.
func NewService(repo auth.Repository, hasher *security.Hasher) *Service {
	return &Service{repo: repo, hasher: hasher, validator: httpx.NewValidator()}
}

// Register validates in and creates a principal.
func (s *Service) Register(ctx context.Context, actor rbac.Identity, in RegisterInput) (auth.Principal, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := httpx.Validate(s.validator, in); err != nil {
		return auth.Principal{}, err
	}
	role := in.Role
	if role == "" {
		role = rbac.RoleViewer
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	hash, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return auth.Principal{}, err
	}
	return s.repo.Create(ctx, auth.NewPrincipal{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	})
}

// List returns all principals.
func (s *Service) List(ctx context.Context) ([]auth.Principal, error) {
	return s.repo.List(ctx)
}

// Delete removes the principal id on behalf of actor.
func (s *Service) Delete(ctx context.Context, actor rbac.Identity, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid user id: %w", httpx.ErrValidation)
	}
	if actor.PrincipalID == id {
		return ErrSelfDelete
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return fmt.Errorf("user with id %d not found: %w", id, httpx.ErrNotFound)
		}
		return err
	}
	return nil
}
