// Package main runs the Smolville mini app client: it syncs the stores from
// the backend and serves the local REST surface the rendering layer reads.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	app "github.com/smolville/miniapp/internal/app"
	"github.com/smolville/miniapp/internal/app/httpapi"
	"github.com/smolville/miniapp/internal/app/metrics"
	"github.com/smolville/miniapp/internal/config"
	"github.com/smolville/miniapp/internal/host"
	"github.com/smolville/miniapp/pkg/logger"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	backend := flag.String("backend", "", "backend base URL (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("miniapp").WithError(err).Error("load config")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *backend != "" {
		cfg.BackendURL = *backend
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	runtime := buildHostRuntime(cfg, log)

	application, err := app.New(app.Options{
		Config: cfg,
		Host:   runtime,
		Log:    log,
	})
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application.Sync(ctx)

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", httpapi.NewHandler(application))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           metrics.InstrumentHandler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("HTTP API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.WithError(err).Error("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop")
	}
}

// buildHostRuntime selects the host implementation once at startup: a
// validated Telegram WebApp session when init data and the bot token are
// both present, the no-op runtime otherwise.
func buildHostRuntime(cfg *config.Config, log *logger.Logger) host.Runtime {
	initData := strings.TrimSpace(cfg.InitData)
	if initData == "" || cfg.BotToken == "" {
		log.Info("no Telegram init data; running with guest identity")
		return host.NewNop(log)
	}

	runtime, err := host.NewWebAppFromInitData(initData, cfg.BotToken, log)
	if err != nil {
		log.WithError(err).Warn("init data rejected; running with guest identity")
		return host.NewNop(log)
	}
	log.WithField("user_id", runtime.User().ID).Info("Telegram session validated")
	return runtime
}
