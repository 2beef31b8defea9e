// Package limiter implements fixed-window request budgets keyed by client
// and endpoint.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Endpoint keys used by the HTTP surface.
const (
	EndpointLogin       = "auth.login"
	EndpointRegister    = "auth.register"
	EndpointDeleteUser  = "auth.users.delete"
	EndpointListAssets  = "assets.list"
	EndpointReadAsset   = "assets.read"
	EndpointCreateAsset = "assets.create"
	EndpointUpdateAsset = "assets.update"
	EndpointDeleteAsset = "assets.delete"
)

// ErrUnknownEndpoint is returned when no rule is configured for an endpoint.
var ErrUnknownEndpoint = errors.New("limiter: unknown endpoint")

// Limiter admits or rejects a request for a (client, endpoint) pair. A
// rejection is a Decision with Allowed false and a nil error; errors are
// reserved for configuration and store failures. Implementations never
// block waiting for budget.
type Limiter interface {
	Admit(ctx context.Context, clientKey, endpointKey string) (Decision, error)
}

// Decision is the outcome of a single Admit call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below one.
func (d Decision) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func unknownEndpoint(endpoint string) error {
	return fmt.Errorf("%w: %q", ErrUnknownEndpoint, endpoint)
}
