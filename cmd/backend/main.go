package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	configloader "github.com/medtalklab/duoscribe/external/config"
	recognizerimpl "github.com/medtalklab/duoscribe/external/recognizer"
	repositoryimpl "github.com/medtalklab/duoscribe/external/repository"
	webhookimpl "github.com/medtalklab/duoscribe/external/webhook"
	"github.com/medtalklab/duoscribe/internal/config"
	"github.com/medtalklab/duoscribe/internal/metrics"
	"github.com/medtalklab/duoscribe/internal/repository"
	"github.com/medtalklab/duoscribe/internal/server"
	"github.com/medtalklab/duoscribe/internal/session"
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "backend", cfg.RecognizerBackend)

	slog.Info("startup: building dependency graph")
	registry := prometheus.NewRegistry()
	injector := setupDI(cfg, registry)

	slog.Info("startup: launching http server")
	runServer(cfg, injector, registry)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config, registry *prometheus.Registry) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, metrics.New(registry))
	repositoryimpl.RegisterDI(injector)
	recognizerimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}

func runServer(cfg *config.Config, injector do.Injector, registry *prometheus.Registry) {
	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve session manager", "error", err)
		os.Exit(1)
	}
	repo, err := do.Invoke[repository.Repository](injector)
	if err != nil {
		slog.Error("failed to resolve repository", "error", err)
		os.Exit(1)
	}

	srv := server.New(cfg, manager, repo, registry)

	done := make(chan struct{})
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("http server failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	manager.StopAllSessions(session.StopReasonServerClosed)
	if err := srv.Shutdown(context.Background()); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
}
