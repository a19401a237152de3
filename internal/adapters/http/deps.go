package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/expedition/internal/adapters/postgres"
	"github.com/samirrijal/expedition/internal/adapters/valkey"
	"github.com/samirrijal/expedition/internal/core/usecases"
)

// Pinger is an upstream service that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Rides     *usecases.RideService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
	Nominatim Pinger

	// OpenAPIPath defaults to DefaultOpenAPIPath.
	OpenAPIPath string
}
