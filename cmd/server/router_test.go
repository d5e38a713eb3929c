package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/internal/chain"
	"landledger/internal/outbox"
	"landledger/internal/platform/config"
	"landledger/pkg/testutil"
)

func TestHealthWithoutOptionalBackends(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(&infra{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, healthResponse{Status: "ok", Postgres: "disabled", Redis: "disabled"}, body)
}

func TestDependencyStatus(t *testing.T) {
	assert.Equal(t, "up", dependencyStatus(nil))
	assert.Equal(t, "down", dependencyStatus(http.ErrServerClosed))
}

// newInMemoryRouter wires the whole server on in-memory stores and the
// simulated chain, the way it runs without DATABASE_URL or REDIS_URL.
func newInMemoryRouter(t *testing.T) http.Handler {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "REGISTRY_CONTRACT_ADDRESS", "EVENTS_BROKER", "REGISTRAR_ADDRESSES", "RATE_LIMIT_DISABLED", "RATE_LIMIT_AUTH_PER_MINUTE"} {
		t.Setenv(key, "")
	}
	t.Setenv("SEED_DEMO_PROPERTIES", "true")
	t.Setenv("ADMIN_API_TOKEN", "admin-secret")
	cfg := config.FromEnv()
	require.NoError(t, cfg.Validate())

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	in := &infra{
		network:   chain.NewNetwork(cfg.Chain.ChainID, cfg.Chain.ChainName, cfg.Chain.ResolvedRPCURL(), cfg.Chain.ExplorerURL),
		publisher: outbox.NewLogPublisher(log),
	}
	a, err := buildApp(context.Background(), cfg, in, reg, log)
	require.NoError(t, err)
	return newRouter(cfg, a, in, reg, log)
}

func TestRouterWiring(t *testing.T) {
	testutil.Given(t, "a server on in-memory stores with demo data", func(t *testing.T) {
		router := newInMemoryRouter(t)

		testutil.When(t, "reading a seeded property", func(t *testing.T) {
			rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/properties/PROP003", nil))

			testutil.Then(t, "it is blocked", func(t *testing.T) {
				testutil.AssertStatusOK(t, rec)
				testutil.AssertJSONContains(t, rec, "status", "blocked")
			})
		})

		testutil.When(t, "registering without a bearer token", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/properties", strings.NewReader(`{}`))
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "it is unauthorized", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
			})
		})

		testutil.When(t, "listing registrars without the admin token", func(t *testing.T) {
			rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/admin/registrars", nil))

			testutil.Then(t, "it is rejected", func(t *testing.T) {
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
			})
		})

		testutil.When(t, "requesting a sign-in nonce", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/nonce?address=0x742d35cc6634c0532925a3b844bc454e4438f44e", nil)
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "it carries rate limit headers", func(t *testing.T) {
				testutil.AssertStatusOK(t, rec)
				assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
			})
		})

		testutil.When(t, "scraping metrics", func(t *testing.T) {
			rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			testutil.Then(t, "registry and http series are exposed", func(t *testing.T) {
				testutil.AssertStatusOK(t, rec)
				assert.Contains(t, rec.Body.String(), "landledger_http_requests_total")
			})
		})
	})
}
