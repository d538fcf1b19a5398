package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"poetryhub/internal/api"
	"poetryhub/internal/app"
	synchub "poetryhub/internal/sync"
	"poetryhub/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "TOML config file (default $POETRYHUB_CONFIG)")
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == utils.DefaultJWTSecret {
		slog.Warn("using the development JWT secret; set POETRYHUB_JWT_SECRET")
	}

	a, err := app.Build(cfg)
	if err != nil {
		slog.Error("build backends", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Start TCP sync first so binding errors show up early.
	hub := synchub.NewHub()
	a.Dispatcher.Observe(hub.OnSwitch)
	tcpSrv := synchub.NewServer(cfg.Server.SyncAddr, hub)

	deps := api.Deps{Dispatcher: a.Dispatcher, Tokens: a.Tokens, Hub: hub}
	if db := a.DB(); db != nil {
		deps.DB = db.DB
	}
	httpSrv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: api.NewRouter(deps),
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("HTTP API server listening", "addr", cfg.Server.HTTPAddr, "backend", a.Dispatcher.Current())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}

	slog.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	if err := tcpSrv.Close(); err != nil {
		slog.Warn("tcp shutdown", "error", err)
	}
	hub.Close()

	wg.Wait()
	slog.Info("servers stopped")
}
