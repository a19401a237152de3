package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/samirrijal/expedition/internal/core/domain"
	"github.com/samirrijal/expedition/internal/pkg/telemetry"
)

// Zoom levels of the reverse endpoint.
const (
	zoomRoad    = 17 // major and minor streets
	zoomAddress = 18 // building
)

// Config configures a Client.
type Config struct {
	BaseURL        string
	UserAgent      string
	RequestsPerSec float64 // 0 disables rate limiting
	Burst          int
	Timeout        time.Duration
}

// Client talks to the reverse endpoint of a Nominatim server. It implements
// both ports.PlaceLookup and ports.Geocoder.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "expedition"
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// place is the jsonv2 reverse response.
type place struct {
	Error       string          `json:"error"`
	OSMType     string          `json:"osm_type"`
	OSMID       int64           `json:"osm_id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Category    string          `json:"category"`
	Address     *domain.Address `json:"address"`
	ExtraTags   struct {
		Surface string `json:"surface"`
	} `json:"extratags"`
}

var errNoPlace = errors.New("no place at coordinate")

func (c *Client) reverse(ctx context.Context, p orb.Point, zoom int) (*place, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "nominatim.reverse")
	defer span.End()
	span.SetAttributes(attribute.Int("nominatim.zoom", zoom))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"lat":            {strconv.FormatFloat(p.Lat(), 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(p.Lon(), 'f', -1, 64)},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
		"extratags":      {"1"},
		"zoom":           {strconv.Itoa(zoom)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim: HTTP %d", resp.StatusCode)
	}

	var pl place
	if err := json.NewDecoder(resp.Body).Decode(&pl); err != nil {
		return nil, fmt.Errorf("nominatim: decode: %w", err)
	}
	// "Unable to geocode" comes back as 200 with an error member
	if pl.Error != "" {
		return nil, errNoPlace
	}
	if pl.Address != nil {
		pl.Address.DisplayName = pl.DisplayName
	}
	return &pl, nil
}

// Lookup classifies the place nearest to p. A coordinate with no place
// yields a nil classification.
func (c *Client) Lookup(ctx context.Context, p orb.Point) (*domain.Classification, error) {
	pl, err := c.reverse(ctx, p, zoomRoad)
	if errors.Is(err, errNoPlace) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Classification{
		EntityKind: pl.OSMType,
		GroupKey:   pl.OSMType + "/" + strconv.FormatInt(pl.OSMID, 10),
		Name:       pl.Name,
		Surface:    pl.ExtraTags.Surface,
		Address:    pl.Address,
	}, nil
}

// ReverseGeocode returns the address at p, or nil when there is none.
func (c *Client) ReverseGeocode(ctx context.Context, p orb.Point) (*domain.Address, error) {
	pl, err := c.reverse(ctx, p, zoomAddress)
	if errors.Is(err, errNoPlace) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if pl.Address == nil {
		return &domain.Address{DisplayName: pl.DisplayName}, nil
	}
	return pl.Address, nil
}

// Ping checks that the server answers its status endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status?format=json", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim status: HTTP %d", resp.StatusCode)
	}
	return nil
}
