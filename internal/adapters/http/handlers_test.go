package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/samirrijal/expedition/internal/adapters/http"
	"github.com/samirrijal/expedition/internal/core/domain"
	"github.com/samirrijal/expedition/internal/core/ports"
	"github.com/samirrijal/expedition/internal/core/usecases"
)

// ---- Mocks ----

type mockRideRepo struct {
	mu        sync.Mutex
	created   []*domain.Ride
	getByIDFn func(ctx context.Context, id int64, wayLimit int) (*domain.Ride, error)
	listFn    func(ctx context.Context, offset, limit int) ([]domain.RideSummary, int, error)
	deleteFn  func(ctx context.Context, id int64) error
}

func (m *mockRideRepo) Create(ctx context.Context, ride *domain.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride.ID = int64(len(m.created) + 1)
	ride.CreatedAt = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	m.created = append(m.created, ride)
	return nil
}

func (m *mockRideRepo) GetByID(ctx context.Context, id int64, wayLimit int) (*domain.Ride, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id, wayLimit)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRideRepo) List(ctx context.Context, offset, limit int) ([]domain.RideSummary, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockRideRepo) UpdateWays(ctx context.Context, id int64, ways []domain.Way) error {
	return nil
}

func (m *mockRideRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// Every point lies on the same residential street.
type mockPlaceLookup struct{}

func (mockPlaceLookup) Lookup(ctx context.Context, p orb.Point) (*domain.Classification, error) {
	return &domain.Classification{
		EntityKind: domain.EntityKindWay,
		GroupKey:   "way/1001",
		Name:       "Calle Ercilla",
		Surface:    "asphalt",
	}, nil
}

type mockGeocoder struct {
	err error
}

func (m mockGeocoder) ReverseGeocode(ctx context.Context, p orb.Point) (*domain.Address, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Address{City: "Bilbao", Country: "España", CountryCode: "es"}, nil
}

type mockTravelTimer struct{}

func (mockTravelTimer) TravelTime(ctx context.Context, from, to orb.Point) (time.Duration, error) {
	return 90 * time.Second, nil
}

type mockPublisher struct {
	mu        sync.Mutex
	reprocess []int64
	deleted   []int64
}

func (m *mockPublisher) PublishRideCreated(ctx context.Context, ride *domain.RideSummary) error {
	return nil
}

func (m *mockPublisher) PublishRideDeleted(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockPublisher) PublishWaysUpdated(ctx context.Context, id int64, ways []domain.Way) error {
	return nil
}

func (m *mockPublisher) PublishReprocessRequest(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reprocess = append(m.reprocess, id)
	return nil
}

// ---- Test helpers ----

type fixture struct {
	repo      *mockRideRepo
	geocoder  mockGeocoder
	publisher *mockPublisher
}

func setupApp(f *fixture) *fiber.App {
	if f.repo == nil {
		f.repo = &mockRideRepo{}
	}
	// A nil *mockPublisher must stay a nil interface.
	var events ports.EventPublisher
	if f.publisher != nil {
		events = f.publisher
	}

	rides := usecases.NewRideService(
		f.repo,
		usecases.NewWaySegmenter(mockPlaceLookup{}, 4),
		f.geocoder,
		mockTravelTimer{},
		events,
	)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, &handler.Dependencies{Rides: rides})
	return app
}

func storedRide(id int64) *domain.Ride {
	ways := make([]domain.Way, 7)
	for i := range ways {
		ways[i] = domain.Way{
			Key:      fmt.Sprintf("way/%d", 100+i),
			Name:     fmt.Sprintf("Street %d", i),
			Seq:      i * 2,
			Distance: 100,
			Surface:  "asphalt",
			Points: []domain.WayPoint{
				{Seq: i * 2, Point: orb.Point{-2.93 + float64(i)*0.001, 43.26}},
				{Seq: i*2 + 1, Point: orb.Point{-2.93 + float64(i)*0.001 + 0.0005, 43.26}},
			},
		}
	}
	return &domain.Ride{
		ID:            id,
		Name:          "Ría loop",
		TotalDistance: 700,
		StartPoint:    orb.Point{-2.93, 43.26},
		EndPoint:      orb.Point{-2.9235, 43.26},
		Ways:          ways,
		CreatedAt:     time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func decode(t *testing.T, body io.Reader, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(body).Decode(v))
}

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <metadata><name>Morning ride</name></metadata>
  <trk>
    <name>Morning ride</name>
    <trkseg>
      <trkpt lat="43.2630" lon="-2.9350"></trkpt>
      <trkpt lat="43.2640" lon="-2.9350"></trkpt>
      <trkpt lat="43.2650" lon="-2.9350"></trkpt>
    </trkseg>
  </trk>
</gpx>`

func multipartGPX(t *testing.T, rideName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if rideName != "" {
		require.NoError(t, w.WriteField("ride_name", rideName))
	}
	part, err := w.CreateFormFile("gpx", "ride.gpx")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// ---- Create ----

func TestCreateRide_GPXUpload(t *testing.T) {
	f := &fixture{}
	app := setupApp(f)

	body, ct := multipartGPX(t, "Commute", sampleGPX)
	req := httptest.NewRequest("POST", "/v1/rides", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "/v1/rides/1", resp.Header.Get("Location"))

	var got struct {
		ID            int64           `json:"id"`
		Name          string          `json:"name"`
		TotalDistance float64         `json:"total_distance"`
		StartPoint    [2]float64      `json:"start_point"`
		EndPoint      [2]float64      `json:"end_point"`
		StartAddress  *domain.Address `json:"start_address"`
	}
	decode(t, resp.Body, &got)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "Commute", got.Name)
	assert.InDelta(t, 222, got.TotalDistance, 1)
	assert.Equal(t, [2]float64{-2.935, 43.263}, got.StartPoint)
	assert.Equal(t, [2]float64{-2.935, 43.265}, got.EndPoint)
	require.NotNil(t, got.StartAddress)
	assert.Equal(t, "Bilbao", got.StartAddress.City)

	require.Len(t, f.repo.created, 1)
	ways := f.repo.created[0].Ways
	require.Len(t, ways, 1)
	assert.Equal(t, "way/1001", ways[0].Key)
	assert.Len(t, ways[0].Points, 3)
}

func TestCreateRide_GPXNameFallback(t *testing.T) {
	f := &fixture{}
	app := setupApp(f)

	body, ct := multipartGPX(t, "", sampleGPX)
	req := httptest.NewRequest("POST", "/v1/rides", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	require.Len(t, f.repo.created, 1)
	assert.Equal(t, "Morning ride", f.repo.created[0].Name)
}

func TestCreateRide_GPXMissingFile(t *testing.T) {
	app := setupApp(&fixture{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("ride_name", "No file"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/v1/rides", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCreateRide_GPXEmptyTrack(t *testing.T) {
	f := &fixture{}
	app := setupApp(f)

	empty := `<?xml version="1.0"?><gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg></trkseg></trk></gpx>`
	body, ct := multipartGPX(t, "Empty", empty)
	req := httptest.NewRequest("POST", "/v1/rides", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 422, resp.StatusCode)

	var apiErr struct {
		Code string `json:"code"`
	}
	decode(t, resp.Body, &apiErr)
	assert.Equal(t, "unprocessable", apiErr.Code)
	assert.Empty(t, f.repo.created)
}

func TestCreateRide_JSON(t *testing.T) {
	f := &fixture{}
	app := setupApp(f)

	payload := `{
		"name": "Deusto hop",
		"geo_json": {
			"type": "FeatureCollection",
			"features": [{
				"type": "Feature",
				"properties": {},
				"geometry": {"type": "LineString", "coordinates": [[-2.9350, 43.2630], [-2.9350, 43.2640]]}
			}]
		}
	}`
	req := httptest.NewRequest("POST", "/v1/rides", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	require.Len(t, f.repo.created, 1)
	assert.Equal(t, "Deusto hop", f.repo.created[0].Name)
	assert.InDelta(t, 111, f.repo.created[0].TotalDistance, 1)
}

func TestCreateRide_JSONBareGeometry(t *testing.T) {
	f := &fixture{}
	app := setupApp(f)

	payload := `{"name": "Bare", "geo_json": {"type": "LineString", "coordinates": [[-2.935, 43.263], [-2.935, 43.264]]}}`
	req := httptest.NewRequest("POST", "/v1/rides", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
}

func TestCreateRide_Validation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		status  int
	}{
		{"malformed body", `{"name":`, 400},
		{"missing geo_json", `{"name": "x"}`, 400},
		{"missing name", `{"geo_json": {"type": "LineString", "coordinates": [[0, 0], [0, 0.001]]}}`, 422},
		{"latitude out of range", `{"name": "x", "geo_json": {"type": "LineString", "coordinates": [[0, 91], [0, 0]]}}`, 422},
		{"empty collection", `{"name": "x", "geo_json": {"type": "FeatureCollection", "features": []}}`, 422},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fixture{}
			app := setupApp(f)

			req := httptest.NewRequest("POST", "/v1/rides", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Empty(t, f.repo.created)
		})
	}
}

func TestCreateRide_GeocoderFailure(t *testing.T) {
	f := &fixture{geocoder: mockGeocoder{err: errors.New("nominatim down")}}
	app := setupApp(f)

	body, ct := multipartGPX(t, "Commute", sampleGPX)
	req := httptest.NewRequest("POST", "/v1/rides", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Empty(t, f.repo.created)
}

// ---- Read ----

func TestGetRide_Success(t *testing.T) {
	f := &fixture{repo: &mockRideRepo{
		getByIDFn: func(ctx context.Context, id int64, wayLimit int) (*domain.Ride, error) {
			return storedRide(id), nil
		},
	}}
	app := setupApp(f)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/rides/42", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var got struct {
		ID                    int64              `json:"id"`
		Ways                  []map[string]any   `json:"ways"`
		SurfaceComposition    map[string]float64 `json:"surface_composition"`
		TimeFromOriginToStart *int64             `json:"time_from_origin_to_start"`
	}
	decode(t, resp.Body, &got)
	assert.Equal(t, int64(42), got.ID)
	assert.Len(t, got.Ways, usecases.DetailWayLimit)
	assert.NotEmpty(t, got.Ways[0]["polyline"])
	assert.Equal(t, map[string]float64{"tarmac": 1}, got.SurfaceComposition)
	assert.Nil(t, got.TimeFromOriginToStart)
}

func TestGetRide_SurfaceComposition(t *testing.T) {
	f := &fixture{repo: &mockRideRepo{
		getByIDFn: func(ctx context.Context, id int64, wayLimit int) (*domain.Ride, error) {
			ride := storedRide(id)
			// 7 ways of 2 points each: 3 cobblestone, 2 gravel, 2 asphalt
			for i := range ride.Ways {
				switch {
				case i < 3:
					ride.Ways[i].Surface = "cobblestone"
				case i < 5:
					ride.Ways[i].Surface = "gravel"
				}
			}
			return ride, nil
		},
	}}
	app := setupApp(f)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/rides/42", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var got struct {
		SurfaceComposition map[string]float64 `json:"surface_composition"`
	}
	decode(t, resp.Body, &got)
	require.Len(t, got.SurfaceComposition, 3)
	assert.InDelta(t, 3.0/7, got.SurfaceComposition["cobblestone"], 1e-9)
	assert.InDelta(t, 2.0/7, got.SurfaceComposition["dirt"], 1e-9)
	assert.InDelta(t, 2.0/7, got.SurfaceComposition["tarmac"], 1e-9)
}

func TestGetRide_WithOrigin(t *testing.T) {
	f := &fixture{repo: &mockRideRepo{
		getByIDFn: func(ctx context.Context, id int64, wayLimit int) (*domain.Ride, error) {
			return storedRide(id), nil
		},
	}}
	app := setupApp(f)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/rides/42?lat=43.26&lon=-2.94", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "private, max-age=60", resp.Header.Get("Cache-Control"))

	var got struct {
		TimeFromOriginToStart *int64 `json:"time_from_origin_to_start"`
		TimeFromEndToOrigin   *int64 `json:"time_from_end_to_origin"`
	}
	decode(t, resp.Body, &got)
	require.NotNil(t, got.TimeFromOriginToStart)
	require.NotNil(t, got.TimeFromEndToOrigin)
	assert.Equal(t, int64(90), *got.TimeFromOriginToStart)
	assert.Equal(t, int64(90), *got.TimeFromEndToOrigin)
}

func TestGetRide_NotFound(t *testing.T) {
	app := setupApp(&fixture{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/rides/7", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 404, resp.StatusCode)

	var apiErr struct {
		Code string `json:"code"`
	}
	decode(t, resp.Body, &apiErr)
	assert.Equal(t, "not_found", apiErr.Code)
}

func TestGetRide_BadParams(t *testing.T) {
	app := setupApp(&fixture{})

	for _, path := range []string{
		"/v1/rides/abc",
		"/v1/rides/0",
		"/v1/rides/1?lat=43.2",
		"/v1/rides/1?lat=95&lon=0",
		"/v1/rides/1?lat=43&lon=-200",
	} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode, path)
	}
}

func TestListRides_Pagination(t *testing.T) {
	var gotOffset, gotLimit int
	f := &fixture{repo: &mockRideRepo{
		listFn: func(ctx context.Context, offset, limit int) ([]domain.RideSummary, int, error) {
			gotOffset, gotLimit = offset, limit
			return []domain.RideSummary{storedRide(3).Summary(), storedRide(4).Summary()}, 10, nil
		},
	}}
	app := setupApp(f)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/rides?offset=2&limit=2", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 2, gotOffset)
	assert.Equal(t, 2, gotLimit)

	var got struct {
		Data       []map[string]any `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	decode(t, resp.Body, &got)
	assert.Len(t, got.Data, 2)
	assert.Equal(t, 10, got.Pagination.Total)
	assert.Equal(t, 2, got.Pagination.Offset)
	assert.NotContains(t, got.Data[0], "ways")
	assert.NotContains(t, got.Data[0], "geo_json")

	link := resp.Header.Get("Link")
	assert.Contains(t, link, `rel="next"`)
	assert.Contains(t, link, `rel="prev"`)
	assert.Contains(t, link, `rel="first"`)
	assert.Contains(t, link, `rel="last"`)
}

func TestListRides_DefaultLimit(t *testing.T) {
	var gotLimit int
	f := &fixture{repo: &mockRideRepo{
		listFn: func(ctx context.Context, offset, limit int) ([]domain.RideSummary, int, error) {
			gotLimit = limit
			return nil, 0, nil
		},
	}}
	app := setupApp(f)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/rides?limit=5000", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 20, gotLimit)
}

func TestListRides_LngAlias(t *testing.T) {
	f := &fixture{repo: &mockRideRepo{
		listFn: func(ctx context.Context, offset, limit int) ([]domain.RideSummary, int, error) {
			return []domain.RideSummary{storedRide(1).Summary()}, 1, nil
		},
	}}
	app := setupApp(f)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/rides?lat=43.26&lng=-2.93", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var got struct {
		Data []struct {
			TimeFromOriginToStart *int64 `json:"time_from_origin_to_start"`
		} `json:"data"`
	}
	decode(t, resp.Body, &got)
	require.Len(t, got.Data, 1)
	require.NotNil(t, got.Data[0].TimeFromOriginToStart)
	assert.Equal(t, int64(90), *got.Data[0].TimeFromOriginToStart)
}

// ---- Delete and reprocess ----

func TestDeleteRide(t *testing.T) {
	pub := &mockPublisher{}
	f := &fixture{publisher: pub}
	app := setupApp(f)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/rides/9", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Equal(t, []int64{9}, pub.deleted)
}

func TestDeleteRide_NotFound(t *testing.T) {
	f := &fixture{repo: &mockRideRepo{
		deleteFn: func(ctx context.Context, id int64) error { return domain.ErrNotFound },
	}}
	app := setupApp(f)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/rides/9", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestReprocessRide_Queued(t *testing.T) {
	pub := &mockPublisher{}
	f := &fixture{
		publisher: pub,
		repo: &mockRideRepo{
			getByIDFn: func(ctx context.Context, id int64, wayLimit int) (*domain.Ride, error) {
				return storedRide(id), nil
			},
		},
	}
	app := setupApp(f)

	resp, err := app.Test(httptest.NewRequest("POST", "/v1/rides/5/reprocess", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 202, resp.StatusCode)
	assert.Equal(t, []int64{5}, pub.reprocess)

	var got struct {
		RideID int64  `json:"ride_id"`
		Status string `json:"status"`
	}
	decode(t, resp.Body, &got)
	assert.Equal(t, int64(5), got.RideID)
	assert.Equal(t, "queued", got.Status)
}

func TestReprocessRide_NoPublisher(t *testing.T) {
	app := setupApp(&fixture{})

	resp, err := app.Test(httptest.NewRequest("POST", "/v1/rides/5/reprocess", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestReprocessRide_NotFound(t *testing.T) {
	pub := &mockPublisher{}
	app := setupApp(&fixture{publisher: pub})

	resp, err := app.Test(httptest.NewRequest("POST", "/v1/rides/5/reprocess", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Empty(t, pub.reprocess)
}

// ---- Legacy routes ----

func TestLegacyRoutes_Deprecated(t *testing.T) {
	f := &fixture{repo: &mockRideRepo{
		getByIDFn: func(ctx context.Context, id int64, wayLimit int) (*domain.Ride, error) {
			return storedRide(id), nil
		},
	}}
	app := setupApp(f)

	resp, err := app.Test(httptest.NewRequest("GET", "/rides/3", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("Deprecation"))
	assert.NotEmpty(t, resp.Header.Get("Sunset"))
	assert.Contains(t, resp.Header.Get("Link"), `rel="successor-version"`)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/rides/3", nil), -1)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("Deprecation"))
}

func TestLegacyGPXUpload(t *testing.T) {
	f := &fixture{}
	app := setupApp(f)

	body, ct := multipartGPX(t, "Old client", sampleGPX)
	req := httptest.NewRequest("POST", "/gpx", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("Deprecation"))
	require.Len(t, f.repo.created, 1)
}

// ---- GraphQL ----

func TestGraphQL_Rides(t *testing.T) {
	f := &fixture{repo: &mockRideRepo{
		listFn: func(ctx context.Context, offset, limit int) ([]domain.RideSummary, int, error) {
			return []domain.RideSummary{storedRide(1).Summary()}, 1, nil
		},
	}}
	app := setupApp(f)

	q := `{"query": "{ rides(limit: 5) { total rides { name total_distance start_point { lat lon } } } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(q))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var got struct {
		Data struct {
			Rides struct {
				Total int `json:"total"`
				Rides []struct {
					Name       string  `json:"name"`
					StartPoint struct {
						Lat float64 `json:"lat"`
						Lon float64 `json:"lon"`
					} `json:"start_point"`
				} `json:"rides"`
			} `json:"rides"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	decode(t, resp.Body, &got)
	assert.Empty(t, got.Errors)
	assert.Equal(t, 1, got.Data.Rides.Total)
	require.Len(t, got.Data.Rides.Rides, 1)
	assert.Equal(t, "Ría loop", got.Data.Rides.Rides[0].Name)
	assert.Equal(t, 43.26, got.Data.Rides.Rides[0].StartPoint.Lat)
	assert.Equal(t, -2.93, got.Data.Rides.Rides[0].StartPoint.Lon)
}

func TestGraphQL_RideNotFound(t *testing.T) {
	app := setupApp(&fixture{})

	q := `{"query": "{ ride(id: \"12\") { name } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(q))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var got struct {
		Data struct {
			Ride *struct{ Name string } `json:"ride"`
		} `json:"data"`
	}
	decode(t, resp.Body, &got)
	assert.Nil(t, got.Data.Ride)
}

// ---- Health ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(&fixture{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var result map[string]any
	decode(t, resp.Body, &result)
	assert.Equal(t, "healthy", result["status"])
}

func TestReady_NoDB(t *testing.T) {
	app := setupApp(&fixture{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(&fixture{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", resp.Header.Get("X-API-Version"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ok")
}
