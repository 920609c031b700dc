package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"reportd/internal/adapter/repo"
	"reportd/internal/http/handlers"
	"reportd/internal/http/httpapi"
	"reportd/internal/infra"
	"reportd/internal/infra/geoip"
	"reportd/internal/middleware"
	"reportd/internal/notify"
	"reportd/internal/observability"
	"reportd/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init file store")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	var lookup middleware.CountryLookup
	if resolver != nil {
		lookup = resolver.CountryCode
	}

	// Fan worker notifications out to websocket subscribers.
	hub := notify.NewHub()
	listener := notify.NewListener(dbpool, hub, logger)
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("status listener stopped")
		}
	}()

	app := handlers.NewApp(
		repo.NewJobRepository(dbpool),
		repo.NewCompanyRepository(dbpool),
		store,
		hub,
		logger,
	)
	app.WSBaseURL = cfg.PublicWSBaseURL
	app.Heartbeat = cfg.HeartbeatInterval
	if cfg.OTelEnabled {
		app.Observer = observability.FromGlobal()
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		DefaultLocale: cfg.DefaultLocale,
		CountryLookup: lookup,
		CORSOrigins:   cfg.CORSOrigins,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
