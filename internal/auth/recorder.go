package auth

import (
	"context"
	"time"
)

// LoginEvent describes a successful login.
type LoginEvent struct {
	PrincipalID int64     `json:"principal_id"`
	Username    string    `json:"username"`
	At          time.Time `json:"at"`
	ClientIP    string    `json:"client_ip,omitempty"`
}

// LoginRecorder persists login events out of band of the token response.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, event LoginEvent) error
}

// RepositoryRecorder writes login events straight to the credential store.
type RepositoryRecorder struct {
	Repo Repository
}

// RecordLogin implements LoginRecorder.
func (r RepositoryRecorder) RecordLogin(ctx context.Context, event LoginEvent) error {
	return r.Repo.RecordLogin(ctx, event.PrincipalID, event.At)
}
