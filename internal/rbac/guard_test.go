package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airportops/assetapi/internal/platform/httpx"
)

var errBadToken = errors.New("token rejected")

type stubTokens map[string]Identity

func (s stubTokens) Validate(raw string) (Identity, error) {
	id, ok := s[raw]
	if !ok {
		return Identity{}, errBadToken
	}
	return id, nil
}

type stubResolver struct {
	principals map[int64]Identity
	err        error
	calls      int
}

func (s *stubResolver) ResolvePrincipal(_ context.Context, id int64) (Identity, error) {
	s.calls++
	if s.err != nil {
		return Identity{}, s.err
	}
	p, ok := s.principals[id]
	if !ok {
		return Identity{}, ErrPrincipalNotFound
	}
	return p, nil
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		err    error
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"bearer abc", "abc", nil},
		{"BEARER  abc ", "abc", nil},
		{"", "", ErrNoCredentials},
		{"   ", "", ErrNoCredentials},
		{"Bearer", "", ErrMalformedHeader},
		{"Bearer ", "", ErrMalformedHeader},
		{"Basic dXNlcjpwYXNz", "", ErrMalformedHeader},
		{"Token abc", "", ErrMalformedHeader},
		{"Bearer abc def", "", ErrMalformedHeader},
	}
	for _, tc := range cases {
		token, err := BearerToken(tc.header)
		if tc.err != nil {
			assert.ErrorIs(t, err, tc.err, "header %q", tc.header)
			assert.ErrorIs(t, err, ErrUnauthenticated)
			continue
		}
		require.NoError(t, err, "header %q", tc.header)
		assert.Equal(t, tc.token, token)
	}
}

func TestGuardAuthenticateFromToken(t *testing.T) {
	want := Identity{PrincipalID: 7, Username: "ops", Role: RoleStaff}
	guard := NewGuard(stubTokens{"good": want}, nil)

	got, err := guard.Authenticate(context.Background(), "Bearer good")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = guard.Authenticate(context.Background(), "Bearer forged")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, err, errBadToken)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = guard.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestGuardResolverOverridesRole(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := Identity{PrincipalID: 3, Username: "kim", Role: RoleAdmin, IssuedAt: issued, ExpiresAt: issued.Add(30 * time.Minute)}
	resolver := &stubResolver{principals: map[int64]Identity{
		3: {PrincipalID: 3, Username: "kim", Role: RoleViewer},
	}}
	guard := NewGuard(stubTokens{"t": token}, resolver)

	got, err := guard.Authenticate(context.Background(), "Bearer t")
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, got.Role)
	assert.Equal(t, issued, got.IssuedAt)
	assert.Equal(t, token.ExpiresAt, got.ExpiresAt)
	assert.Equal(t, 1, resolver.calls)
}

func TestGuardResolverFailures(t *testing.T) {
	token := Identity{PrincipalID: 9, Role: RoleAdmin}

	gone := NewGuard(stubTokens{"t": token}, &stubResolver{principals: map[int64]Identity{}})
	_, err := gone.Authenticate(context.Background(), "Bearer t")
	assert.ErrorIs(t, err, ErrUnknownIdentity)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	storeDown := errors.New("connection refused")
	broken := NewGuard(stubTokens{"t": token}, &stubResolver{err: storeDown})
	_, err = broken.Authenticate(context.Background(), "Bearer t")
	assert.ErrorIs(t, err, storeDown)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "forbidden", failureReason(ErrForbidden))
	assert.Equal(t, "missing_token", failureReason(ErrNoCredentials))
	assert.Equal(t, "malformed_header", failureReason(ErrMalformedHeader))
	assert.Equal(t, "unknown_principal", failureReason(ErrUnknownIdentity))
	assert.Equal(t, "invalid_token", failureReason(errors.Join(ErrUnauthenticated, errBadToken)))
	assert.Equal(t, "internal", failureReason(errors.New("boom")))
}
