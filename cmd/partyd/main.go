package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/sylvanite/partyhub/internal/config"
	"github.com/sylvanite/partyhub/internal/leaderboard"
	"github.com/sylvanite/partyhub/internal/metrics"
	"github.com/sylvanite/partyhub/internal/middleware"
	"github.com/sylvanite/partyhub/internal/party"
	"github.com/sylvanite/partyhub/internal/registry"
	"github.com/sylvanite/partyhub/internal/service"
	"github.com/sylvanite/partyhub/internal/storage"
	"github.com/sylvanite/partyhub/internal/storage/jsonfile"
	"github.com/sylvanite/partyhub/internal/storage/sqlite"
	"github.com/sylvanite/partyhub/pkg/logging"
)

const shutdownTimeout = 15 * time.Second

// nameResolver turns persisted world names back into name-only refs. A
// game-server embedding would supply live worlds instead.
type nameResolver struct{}

func (nameResolver) WorldByName(name string) (party.WorldRef, bool) {
	if name == "" {
		return nil, false
	}
	return party.NamedWorld(name), true
}

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var store storage.Store
	switch cfg.Backend {
	case "sqlite":
		store, err = sqlite.New(cfg.DBPath)
	default:
		store, err = jsonfile.New(cfg.DataPath)
	}
	if err != nil {
		slog.Error("Failed to initialize storage", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "backend", cfg.Backend)

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	tracker := registry.NewTracker()
	reg := registry.New(store, tracker, cfg.Tunables, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reg.Load(ctx, nameResolver{}); err != nil {
		slog.Error("Failed to load parties", "error", err)
		os.Exit(1)
	}
	slog.Info("Parties loaded", "count", reg.PartyCount())

	reg.Start(ctx, registry.Intervals{
		Sweep:    cfg.SweepInterval,
		Distance: cfg.DistanceInterval,
		PlayTime: cfg.PlayTimeInterval,
		Cleanup:  cfg.CleanupInterval,
		Autosave: cfg.AutosaveInterval,
	})

	mux := http.NewServeMux()

	svc := service.New(reg, leaderboard.New(reg), tracker, cfg.Backend)
	svc.Register(mux, connect.WithInterceptors(middleware.LoggingInterceptor()))

	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	// h2c allows HTTP/2 without TLS, which Connect clients use.
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		slog.Error("Server failed", "error", err)
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := reg.Shutdown(shutdownCtx); err != nil {
		slog.Error("Registry shutdown failed", "error", err)
		os.Exit(1)
	}
}
