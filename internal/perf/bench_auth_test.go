package perf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/airportops/assetapi/internal/limiter"
	"github.com/airportops/assetapi/internal/rbac"
	"github.com/airportops/assetapi/internal/security"
)

func newTokens(b *testing.B) *security.TokenService {
	b.Helper()
	tokens, err := security.NewTokenService(security.TokenConfig{Secret: []byte("benchmark-signing-secret-0123456789")})
	require.NoError(b, err)
	return tokens
}

func BenchmarkTokenValidate(b *testing.B) {
	tokens := newTokens(b)
	tok, err := tokens.Issue(rbac.Identity{PrincipalID: 42, Username: "ops", Role: rbac.RoleStaff})
	require.NoError(b, err)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tokens.Validate(tok.AccessToken); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGuardedRequest(b *testing.B) {
	tokens := newTokens(b)
	tok, err := tokens.Issue(rbac.Identity{PrincipalID: 7, Username: "mgr", Role: rbac.RoleManager})
	require.NoError(b, err)

	mw := rbac.Middleware{Guard: rbac.NewGuard(tokens, nil)}
	handler := mw.Require(rbac.ActionUpdateAsset)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPut, "/assets/update/1", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}

func benchRules() limiter.Rules {
	return limiter.Rules{limiter.EndpointListAssets: {Limit: 1 << 30, Window: time.Hour}}
}

func BenchmarkMemoryLimiterAdmit(b *testing.B) {
	l, err := limiter.NewMemoryLimiter(benchRules())
	require.NoError(b, err)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := l.Admit(ctx, "10.0.0."+strconv.Itoa(i%64), limiter.EndpointListAssets); err != nil {
				b.Fatal(err)
			}
			i++
		}
	})
}

func BenchmarkRedisLimiterAdmit(b *testing.B) {
	mr := miniredis.RunT(b)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.Cleanup(func() { _ = client.Close() })
	l, err := limiter.NewRedisLimiter(client, benchRules(), "bench")
	require.NoError(b, err)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := l.Admit(ctx, "10.0.0.1", limiter.EndpointListAssets); err != nil {
			b.Fatal(err)
		}
	}
}
