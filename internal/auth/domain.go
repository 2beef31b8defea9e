package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
)

// Principal is a stored user account.
type Principal struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         rbac.Role
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity projects the principal onto the fields carried by tokens.
func (p Principal) Identity() rbac.Identity {
	return rbac.Identity{PrincipalID: p.ID, Username: p.Username, Role: p.Role}
}

// NewPrincipal holds the fields required to insert a principal. The
// password must already be hashed.
type NewPrincipal struct {
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         rbac.Role
	IsActive     bool
}

var (
	// ErrInvalidCredentials is the single outcome for every failed login.
	ErrInvalidCredentials = fmt.Errorf("incorrect username or password: %w", httpx.ErrUnauthorized)
	// ErrAdminExists is returned by Seed when an admin is already present.
	ErrAdminExists = errors.New("auth: admin user already exists")
)
