package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"github.com/samirrijal/expedition/internal/pkg/geospatial"
)

// ErrNoRoute is returned when the router finds no route between two points.
var ErrNoRoute = errors.New("no route found")

// Config configures a Client.
type Config struct {
	BaseURL        string
	Profile        string // driving, cycling, foot
	RequestsPerSec float64
	Timeout        time.Duration
}

// Client implements ports.TravelTimer against an OSRM route service.
type Client struct {
	baseURL    string
	profile    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Profile == "" {
		cfg.Profile = "driving"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1)
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		profile:    cfg.Profile,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Duration float64 `json:"duration"` // seconds
		Distance float64 `json:"distance"` // meters
	} `json:"routes"`
}

// TravelTime returns the duration of the fastest route from one point to another.
func (c *Client) TravelTime(ctx context.Context, from, to orb.Point) (time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	// OSRM takes lon,lat pairs
	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=false",
		c.baseURL, c.profile, from.Lon(), from.Lat(), to.Lon(), to.Lat())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("osrm: %w", err)
	}
	defer resp.Body.Close()

	var parsed routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("osrm: decode (HTTP %d): %w", resp.StatusCode, err)
	}
	switch {
	case parsed.Code == "NoRoute" || (parsed.Code == "Ok" && len(parsed.Routes) == 0):
		return 0, ErrNoRoute
	case parsed.Code != "Ok":
		return 0, fmt.Errorf("osrm: %s: %s", parsed.Code, parsed.Message)
	}
	return time.Duration(parsed.Routes[0].Duration * float64(time.Second)), nil
}

// StraightLine estimates travel time from great-circle distance at a fixed
// speed. It is used when no router is configured.
type StraightLine struct {
	SpeedKPH float64
}

// TravelTime implements ports.TravelTimer.
func (s StraightLine) TravelTime(ctx context.Context, from, to orb.Point) (time.Duration, error) {
	speed := s.SpeedKPH
	if speed <= 0 {
		speed = 50
	}
	meters := geospatial.HaversinePoints(from, to)
	return time.Duration(meters / (speed / 3.6) * float64(time.Second)), nil
}
