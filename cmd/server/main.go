// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/owldoor/docs" // registers the OpenAPI document
	"github.com/tomtom215/owldoor/internal/api"
	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/authz"
	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/supervisor"
	"github.com/tomtom215/owldoor/internal/supervisor/services"
	ws "github.com/tomtom215/owldoor/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	api.Version = version

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Strs("geocoders", cfg.Geocode.Providers).
		Bool("nats", cfg.Events.UsesNATS()).
		Msg("Starting OwlDoor")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Geocode.ZipSeedPath != "" {
		n, err := db.SeedZipCodes(ctx, cfg.Geocode.ZipSeedPath)
		if err != nil {
			logging.Warn().Err(err).Str("path", cfg.Geocode.ZipSeedPath).Msg("Failed to seed ZIP centroids")
		} else {
			logging.Info().Int("rows", n).Msg("ZIP centroids seeded")
		}
	}

	hub := ws.NewHub()
	app, err := initServices(ctx, cfg, db, hub)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer app.Close()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	enforcer, err := authz.NewEnforcer(cfg.Security.Casbin)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}
	defer enforcer.Close()

	handler := api.NewHandler(app.deps(cfg, db, hub))
	router := api.NewRouter(handler,
		auth.NewMiddleware(jwtManager, cfg.Security.Casbin.DefaultRole),
		authz.NewMiddleware(enforcer),
		nil,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(hub)
	tree.AddMessagingService(app.processor.Router())
	if cfg.Matching.SweepEnabled {
		tree.AddWorkerService(services.NewMatchSweeperService(app.sweeper))
	}
	if app.audit != nil {
		tree.AddWorkerService(app.audit)
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("OwlDoor stopped")
}
