package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaDefinesAuthTables(t *testing.T) {
	ddl := Schema()
	for _, fragment := range []string{
		"CREATE TABLE IF NOT EXISTS users",
		"username        VARCHAR(25)  NOT NULL UNIQUE",
		"last_login_at",
		"CREATE TABLE IF NOT EXISTS assets",
		"'Needs Repair'",
	} {
		assert.True(t, strings.Contains(ddl, fragment), "schema missing %q", fragment)
	}
}

type failingBeginner struct{ err error }

func (f failingBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return nil, f.err
}

func TestWithTxReportsBeginFailure(t *testing.T) {
	cause := errors.New("pool closed")
	called := false
	err := WithTx(context.Background(), failingBeginner{err: cause}, func(pgx.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, cause)
	assert.False(t, called)
	assert.ErrorIs(t, Migrate(context.Background(), failingBeginner{err: cause}), cause)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthCheckWrapsPingError(t *testing.T) {
	ok := HealthCheck(pingFunc(func(context.Context) error { return nil }))
	assert.NoError(t, ok(context.Background()))

	down := HealthCheck(pingFunc(func(context.Context) error { return errors.New("refused") }))
	assert.ErrorContains(t, down(context.Background()), "platform/db: ping")
}
