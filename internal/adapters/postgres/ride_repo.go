package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/expedition/internal/core/domain"
)

// RideRepo implements ports.RideRepository with pgx.
type RideRepo struct {
	db *DB
}

// NewRideRepo creates a new RideRepo.
func NewRideRepo(db *DB) *RideRepo {
	return &RideRepo{db: db}
}

const rideColumns = `
	id, name, total_distance,
	ST_X(start_location::geometry), ST_Y(start_location::geometry),
	ST_X(end_location::geometry), ST_Y(end_location::geometry),
	start_address, end_address, created_at`

// Create inserts a ride and its ways in one transaction and sets ride.ID
// and ride.CreatedAt.
func (r *RideRepo) Create(ctx context.Context, ride *domain.Ride) error {
	geo, err := json.Marshal(ride.GeoJSON)
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}

	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO rides (name, geo_json, total_distance, start_location, end_location, start_address, end_address)
			VALUES ($1, $2,  $3,
			        ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography,
			        ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography,
			        $8, $9)
			RETURNING id, created_at
		`, ride.Name, geo, ride.TotalDistance,
			ride.StartPoint.Lon(), ride.StartPoint.Lat(),
			ride.EndPoint.Lon(), ride.EndPoint.Lat(),
			ride.StartAddress, ride.EndAddress,
		).Scan(&ride.ID, &ride.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert ride: %w", err)
		}
		return insertWays(ctx, tx, ride.ID, ride.Ways)
	})
}

func insertWays(ctx context.Context, tx pgx.Tx, rideID int64, ways []domain.Way) error {
	if len(ways) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, w := range ways {
		points, err := json.Marshal(w.Points)
		if err != nil {
			return fmt.Errorf("encode way %s: %w", w.Key, err)
		}
		batch.Queue(`
			INSERT INTO ride_ways (ride_id, seq, way_key, name, surface, distance, points)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, rideID, w.Seq, w.Key, w.Name, w.Surface, w.Distance, points)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range ways {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return br.Close()
}

// GetByID returns a ride with at most wayLimit ways in route order, or all
// of them when wayLimit <= 0.
func (r *RideRepo) GetByID(ctx context.Context, id int64, wayLimit int) (*domain.Ride, error) {
	var (
		ride domain.Ride
		geo  []byte
	)
	row := r.db.Pool.QueryRow(ctx, `SELECT `+rideColumns+`, geo_json FROM rides WHERE id = $1`, id)
	err := row.Scan(
		&ride.ID, &ride.Name, &ride.TotalDistance,
		&ride.StartPoint[0], &ride.StartPoint[1],
		&ride.EndPoint[0], &ride.EndPoint[1],
		&ride.StartAddress, &ride.EndAddress, &ride.CreatedAt,
		&geo,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(geo)
	if err != nil {
		return nil, fmt.Errorf("decode geojson of ride %d: %w", id, err)
	}
	ride.GeoJSON = fc

	var limit *int
	if wayLimit > 0 {
		limit = &wayLimit
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT seq, way_key, name, surface, distance, points
		FROM ride_ways
		WHERE ride_id = $1
		ORDER BY seq
		LIMIT $2
	`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ride.Ways = []domain.Way{}
	for rows.Next() {
		var (
			w      domain.Way
			points []byte
		)
		if err := rows.Scan(&w.Seq, &w.Key, &w.Name, &w.Surface, &w.Distance, &points); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(points, &w.Points); err != nil {
			return nil, fmt.Errorf("decode way %s: %w", w.Key, err)
		}
		ride.Ways = append(ride.Ways, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &ride, nil
}

// List returns a page of rides, newest first, and the total count.
func (r *RideRepo) List(ctx context.Context, offset, limit int) ([]domain.RideSummary, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM rides`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+rideColumns+`
		FROM rides
		ORDER BY created_at DESC, id DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	rides := []domain.RideSummary{}
	for rows.Next() {
		var s domain.RideSummary
		if err := rows.Scan(
			&s.ID, &s.Name, &s.TotalDistance,
			&s.StartPoint[0], &s.StartPoint[1],
			&s.EndPoint[0], &s.EndPoint[1],
			&s.StartAddress, &s.EndAddress, &s.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		rides = append(rides, s)
	}
	return rides, total, rows.Err()
}

// UpdateWays replaces the ways of a ride.
func (r *RideRepo) UpdateWays(ctx context.Context, id int64, ways []domain.Way) error {
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx, `SELECT id FROM rides WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM ride_ways WHERE ride_id = $1`, id); err != nil {
			return err
		}
		return insertWays(ctx, tx, id, ways)
	})
}

// Delete removes a ride; its ways go with it.
func (r *RideRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM rides WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
