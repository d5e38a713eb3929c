package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "landledger/internal/auth/handler"
	chainhandler "landledger/internal/chain/handler"
	"landledger/internal/content"
	"landledger/internal/platform/config"
	"landledger/internal/platform/middleware"
	ratelimit "landledger/internal/ratelimit/models"
	registryhandler "landledger/internal/registry/handler"
	"landledger/pkg/platform/httputil"
	"landledger/pkg/platform/middleware/metadata"
	"landledger/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

func newRouter(cfg config.Config, a *app, in *infra, reg *prometheus.Registry, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.LatencyMiddleware(a.httpMetrics))

	r.Get("/health", healthHandler(in))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Group(func(r chi.Router) {
		// Ethereum writes wait for a receipt inside the request.
		r.Use(middleware.Timeout(cfg.Chain.ReceiptTimeout + txReceiptSlack))

		registryhandler.New(a.registry, log, a.tokens, cfg.Server.AdminAPIToken).Register(r)

		r.Group(func(r chi.Router) {
			r.Use(a.rateLimits.RateLimit(ratelimit.ClassAuth))
			authhandler.New(a.auth, log).Register(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(a.rateLimits.RateLimit(ratelimit.ClassWrite))
			chainhandler.New(a.chain, a.registry, log).Register(r)
			content.NewHandler(a.content, log).Register(r)
		})
	})
	return r
}

type healthResponse struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

func healthHandler(in *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Postgres: "disabled", Redis: "disabled"}
		if in.db != nil {
			resp.Postgres = dependencyStatus(in.db.PingContext(ctx))
		}
		if in.redis != nil {
			resp.Redis = dependencyStatus(in.redis.Health(ctx))
		}
		status := http.StatusOK
		if resp.Postgres == "down" || resp.Redis == "down" {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}

func dependencyStatus(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}
