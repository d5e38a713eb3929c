package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"landledger/internal/platform/config"
	"landledger/internal/platform/httpserver"
	"landledger/internal/platform/logger"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "landledger: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Format, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close(log)

	app, err := buildApp(ctx, cfg, infra, reg, log)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server.Addr, newRouter(cfg, app, infra, reg, log), cfg.Chain.ReceiptTimeout+txReceiptSlack)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := app.outbox.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starting landledger",
			"addr", cfg.Server.Addr,
			"environment", cfg.Server.Environment,
			"chain", app.chain.Backend(),
			"network", app.chain.Network().Name,
			"events_broker", cfg.Events.Broker,
			"postgres", infra.db != nil,
			"redis", infra.redis != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("landledger stopped with error", "error", err)
		return err
	}
	return nil
}

func logClose(log *slog.Logger, what string, err error) {
	if err != nil {
		log.Warn("close failed", "resource", what, "error", err)
	}
}
