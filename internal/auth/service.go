package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
	"github.com/airportops/assetapi/internal/security"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	hasher   *security.Hasher
	tokens   *security.TokenService
	recorder LoginRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a new Service. recorder may be nil to skip login
// bookkeeping.
func NewService(repo Repository, hasher *security.Hasher, tokens *security.TokenService, recorder LoginRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Hasher exposes the password hasher for callers that create principals.
func (s *Service) Hasher() *security.Hasher {
	return s.hasher
}

// Login verifies credentials and issues an access token. Unknown users,
// wrong secrets and inactive accounts all return ErrInvalidCredentials and
// all cost one hash comparison.
func (s *Service) Login(ctx context.Context, username, secret, clientIP string) (security.Token, Principal, error) {
	p, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			s.hasher.VerifyDummy([]byte(secret))
			return security.Token{}, Principal{}, ErrInvalidCredentials
		}
		return security.Token{}, Principal{}, fmt.Errorf("auth: find principal: %w", err)
	}
	if !s.hasher.Verify([]byte(secret), p.PasswordHash) || !p.IsActive {
		return security.Token{}, Principal{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(p.Identity())
	if err != nil {
		return security.Token{}, Principal{}, fmt.Errorf("auth: issue token: %w", err)
	}
	s.recordLogin(ctx, LoginEvent{PrincipalID: p.ID, Username: p.Username, At: s.now().UTC(), ClientIP: clientIP})
	return token, p, nil
}

func (s *Service) recordLogin(ctx context.Context, event LoginEvent) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordLogin(ctx, event); err != nil {
		s.logger.Warn("record login", slog.Any("error", err), slog.Int64("principal_id", event.PrincipalID))
	}
}

// ResolvePrincipal implements rbac.PrincipalResolver. Deleted and inactive
// principals resolve to rbac.ErrPrincipalNotFound.
func (s *Service) ResolvePrincipal(ctx context.Context, id int64) (rbac.Identity, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, httpx.ErrNotFound) {
		return rbac.Identity{}, rbac.ErrPrincipalNotFound
	}
	if err != nil {
		return rbac.Identity{}, err
	}
	if !p.IsActive {
		return rbac.Identity{}, rbac.ErrPrincipalNotFound
	}
	return p.Identity(), nil
}

// Profile returns the stored principal for an authenticated identity.
func (s *Service) Profile(ctx context.Context, id rbac.Identity) (Principal, error) {
	return s.repo.FindByID(ctx, id.PrincipalID)
}

// SeedInput describes the bootstrap administrator.
type SeedInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	// Force creates another admin even when one exists.
	Force bool
}

// Seed creates the first admin account.
func (s *Service) Seed(ctx context.Context, in SeedInput) (Principal, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return Principal{}, fmt.Errorf("username and password required: %w", httpx.ErrValidation)
	}
	if !in.Force {
		n, err := s.repo.CountByRole(ctx, rbac.RoleAdmin)
		if err != nil {
			return Principal{}, fmt.Errorf("auth: count admins: %w", err)
		}
		if n > 0 {
			return Principal{}, ErrAdminExists
		}
	}
	if _, err := s.repo.FindByUsername(ctx, in.Username); err == nil {
		return Principal{}, fmt.Errorf("user %q already exists: %w", in.Username, httpx.ErrDuplicate)
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return Principal{}, fmt.Errorf("auth: find principal: %w", err)
	}
	hash, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return Principal{}, err
	}
	return s.repo.Create(ctx, NewPrincipal{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         rbac.RoleAdmin,
		IsActive:     true,
	})
}
