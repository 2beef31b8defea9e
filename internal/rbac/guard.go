package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/airportops/assetapi/internal/platform/httpx"
)

// Authentication and authorization outcomes. Callers distinguish 401 from
// 403 with errors.Is against ErrUnauthenticated and ErrForbidden.
var (
	ErrUnauthenticated = fmt.Errorf("authentication required: %w", httpx.ErrUnauthorized)
	ErrNoCredentials   = fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	ErrMalformedHeader = fmt.Errorf("%w: malformed authorization header", ErrUnauthenticated)
	ErrUnknownIdentity = fmt.Errorf("%w: principal no longer active", ErrUnauthenticated)
	ErrForbidden       = fmt.Errorf("insufficient role: %w", httpx.ErrForbidden)
)

// ErrPrincipalNotFound is returned by a PrincipalResolver when the token
// subject no longer maps to an active principal.
var ErrPrincipalNotFound = errors.New("rbac: principal not found")

const bearerScheme = "bearer"

// TokenValidator verifies a raw bearer token.
type TokenValidator interface {
	Validate(raw string) (Identity, error)
}

// PrincipalResolver re-reads a principal from the credential store.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, id int64) (Identity, error)
}

// Guard authenticates callers and authorizes them against role sets.
type Guard struct {
	tokens   TokenValidator
	resolver PrincipalResolver
}

// NewGuard constructs a Guard. resolver may be nil, in which case the token
// alone determines the identity.
func NewGuard(tokens TokenValidator, resolver PrincipalResolver) *Guard {
	return &Guard{tokens: tokens, resolver: resolver}
}

// Authenticate resolves the caller from an Authorization header value.
func (g *Guard) Authenticate(ctx context.Context, header string) (Identity, error) {
	raw, err := BearerToken(header)
	if err != nil {
		return Identity{}, err
	}
	id, err := g.tokens.Validate(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if g.resolver == nil {
		return id, nil
	}
	current, err := g.resolver.ResolvePrincipal(ctx, id.PrincipalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Identity{}, ErrUnknownIdentity
		}
		return Identity{}, fmt.Errorf("rbac: resolve principal: %w", err)
	}
	current.IssuedAt = id.IssuedAt
	current.ExpiresAt = id.ExpiresAt
	return current, nil
}

// Authorize checks exact membership of id.Role in allowed.
func Authorize(id Identity, allowed RoleSet) error {
	if allowed.Contains(id.Role) {
		return nil
	}
	return ErrForbidden
}

// BearerToken extracts the token from "Bearer <token>". An empty header is
// ErrNoCredentials; anything else that does not parse is ErrMalformedHeader.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", ErrMalformedHeader
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedHeader
	}
	return token, nil
}
