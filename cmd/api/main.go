package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/expedition/internal/adapters/http"
	natsadapter "github.com/samirrijal/expedition/internal/adapters/nats"
	"github.com/samirrijal/expedition/internal/adapters/nominatim"
	"github.com/samirrijal/expedition/internal/adapters/osrm"
	"github.com/samirrijal/expedition/internal/adapters/postgres"
	"github.com/samirrijal/expedition/internal/adapters/valkey"
	"github.com/samirrijal/expedition/internal/core/ports"
	"github.com/samirrijal/expedition/internal/core/usecases"
	"github.com/samirrijal/expedition/internal/pkg/config"
	"github.com/samirrijal/expedition/internal/pkg/logging"
	"github.com/samirrijal/expedition/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("expedition-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, ride events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Upstream services
	places := nominatim.New(nominatim.Config{
		BaseURL:        cfg.Nominatim.URL,
		UserAgent:      cfg.Nominatim.UserAgent,
		RequestsPerSec: cfg.Nominatim.RequestsPerSec,
		Burst:          cfg.Nominatim.Burst,
		Timeout:        cfg.Nominatim.Timeout,
	})
	var lookup ports.PlaceLookup = places
	if cfg.Segmenter.CachePlaces && cache != nil {
		lookup = usecases.NewCachedPlaceLookup(places, cache)
	}

	var travel ports.TravelTimer = osrm.StraightLine{SpeedKPH: cfg.OSRM.FallbackSpeedKPH}
	if cfg.OSRM.URL != "" {
		travel = osrm.New(osrm.Config{
			BaseURL: cfg.OSRM.URL,
			Profile: cfg.OSRM.Profile,
			Timeout: cfg.OSRM.Timeout,
		})
	} else {
		slog.Info("osrm not configured, using straight-line travel times",
			"speed_kph", cfg.OSRM.FallbackSpeedKPH)
	}

	// Use cases
	rideSvc := usecases.NewRideService(
		postgres.NewRideRepo(db),
		usecases.NewWaySegmenter(lookup, cfg.Segmenter.Concurrency),
		places,
		travel,
		events,
	)

	deps := &http.Dependencies{
		Rides:     rideSvc,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
		Nominatim: places,

		OpenAPIPath: cfg.Server.OpenAPIPath,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		AppName:      "Expedition API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Ride uploads can take a while; give them up to 30s
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
