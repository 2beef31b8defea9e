package users

import (
	"fmt"

	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
)

// RegisterInput is the payload accepted by the register endpoint.
type RegisterInput struct {
	Username  string    `json:"username" validate:"required,min=3,max=25"`
	FirstName string    `json:"first_name" validate:"required,min=2,max=25"`
	LastName  string    `json:"last_name" validate:"required,min=1,max=25"`
	Password  string    `json:"password" validate:"required,min=4,max=72"`
	Role      rbac.Role `json:"role" validate:"omitempty,oneof=admin manager staff viewer"`
	IsActive  *bool     `json:"is_active"`
}

// ErrSelfDelete rejects an administrator deleting their own account.
var ErrSelfDelete = fmt.Errorf("cannot delete your own account: %w", httpx.ErrValidation)
