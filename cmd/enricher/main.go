package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/expedition/internal/adapters/nats"
	"github.com/samirrijal/expedition/internal/adapters/nominatim"
	"github.com/samirrijal/expedition/internal/adapters/postgres"
	"github.com/samirrijal/expedition/internal/adapters/valkey"
	"github.com/samirrijal/expedition/internal/core/ports"
	"github.com/samirrijal/expedition/internal/core/usecases"
	"github.com/samirrijal/expedition/internal/pkg/config"
	"github.com/samirrijal/expedition/internal/pkg/logging"
	"github.com/samirrijal/expedition/internal/workflows"
)

// The enricher turns reprocess requests from NATS into Temporal workflows
// and runs the worker that executes them.
func main() {
	cfg, err := config.Load("expedition-enricher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	places := nominatim.New(nominatim.Config{
		BaseURL:        cfg.Nominatim.URL,
		UserAgent:      cfg.Nominatim.UserAgent,
		RequestsPerSec: cfg.Nominatim.RequestsPerSec,
		Burst:          cfg.Nominatim.Burst,
		Timeout:        cfg.Nominatim.Timeout,
	})
	var lookup ports.PlaceLookup = places
	if cfg.Segmenter.CachePlaces {
		if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
			slog.Warn("valkey unavailable, place lookups uncached", "error", err)
		} else {
			defer cache.Close()
			lookup = usecases.NewCachedPlaceLookup(places, cache)
		}
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	rides := usecases.NewRideService(
		postgres.NewRideRepo(db),
		usecases.NewWaySegmenter(lookup, cfg.Segmenter.Concurrency),
		places,
		nil,
		pub,
	)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ReprocessRideWorkflow)
	w.RegisterActivity(&workflows.RideActivities{Rides: rides})

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeReprocessRequests(ctx, func(ctx context.Context, rideID int64) error {
		run, err := workflows.StartReprocess(ctx, c, cfg.Temporal.TaskQueue, rideID)
		if err != nil {
			return err
		}
		slog.Info("reprocess workflow started",
			"ride_id", rideID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("enricher worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
