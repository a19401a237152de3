package main

import (
	"context"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/expedition/internal/adapters/gpx"
	natsadapter "github.com/samirrijal/expedition/internal/adapters/nats"
	"github.com/samirrijal/expedition/internal/adapters/nominatim"
	"github.com/samirrijal/expedition/internal/adapters/postgres"
	"github.com/samirrijal/expedition/internal/adapters/valkey"
	"github.com/samirrijal/expedition/internal/core/ports"
	"github.com/samirrijal/expedition/internal/core/usecases"
	"github.com/samirrijal/expedition/internal/pkg/config"
	"github.com/samirrijal/expedition/internal/pkg/logging"
)

// Rides enriched at once. Each one already fans out to the segmenter's
// concurrency, so keep this small.
const importConcurrency = 4

// importer loads every .gpx file under a directory as a ride.
//
//	importer <dir>
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: importer <dir>")
	}
	root := os.Args[1]

	cfg, err := config.Load("expedition-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
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

	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, ride events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	rides := usecases.NewRideService(
		postgres.NewRideRepo(db),
		usecases.NewWaySegmenter(lookup, cfg.Segmenter.Concurrency),
		places,
		nil,
		events,
	)

	files, err := findGPX(root)
	if err != nil {
		log.Fatalf("scan %s: %v", root, err)
	}
	slog.Info("importing rides", "dir", root, "files", len(files))

	start := time.Now()
	var imported, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)
	for _, path := range files {
		g.Go(func() error {
			// One bad file must not stop the batch
			if err := importFile(gctx, rides, path); err != nil {
				failed.Add(1)
				slog.Error("import failed", "file", path, "error", err)
				return nil
			}
			imported.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("import complete",
		"imported", imported.Load(),
		"failed", failed.Load(),
		"elapsed", time.Since(start).Round(time.Millisecond).String())
	if failed.Load() > 0 {
		os.Exit(1)
	}
}

func findGPX(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".gpx") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func importFile(ctx context.Context, rides *usecases.RideService, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := gpx.Read(f)
	if err != nil {
		return err
	}
	name := doc.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	ride, err := rides.Create(ctx, name, doc.Collection)
	if err != nil {
		return err
	}
	slog.Info("ride imported", "file", path, "ride_id", ride.ID,
		"distance_m", ride.TotalDistance, "ways", len(ride.Ways))
	return nil
}
