package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		offset, limit         int
		wantOffset, wantLimit int
	}{
		{0, 20, 0, 20},
		{-5, 10, 0, 10},
		{40, 0, 40, defaultPageLimit},
		{0, maxPageLimit, 0, maxPageLimit},
		{0, maxPageLimit + 1, 0, defaultPageLimit},
	}
	for _, tt := range tests {
		o, l := normalizePage(tt.offset, tt.limit)
		assert.Equal(t, tt.wantOffset, o)
		assert.Equal(t, tt.wantLimit, l)
	}
}

func TestSetLinkHeaders_KeepsQuery(t *testing.T) {
	app := fiber.New()
	app.Get("/v1/rides", func(c *fiber.Ctx) error {
		pg := ParsePagination(c)
		pg.Total = 25
		SetLinkHeaders(c, pg)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/rides?lat=43.26&lon=-2.93&offset=10&limit=10", nil))
	require.NoError(t, err)

	links := strings.Split(resp.Header.Get("Link"), ", ")
	require.Len(t, links, 4)
	assert.Equal(t, `</v1/rides?lat=43.26&limit=10&lon=-2.93&offset=0>; rel="first"`, links[0])
	assert.Equal(t, `</v1/rides?lat=43.26&limit=10&lon=-2.93&offset=0>; rel="prev"`, links[1])
	assert.Equal(t, `</v1/rides?lat=43.26&limit=10&lon=-2.93&offset=20>; rel="next"`, links[2])
	assert.Equal(t, `</v1/rides?lat=43.26&limit=10&lon=-2.93&offset=15>; rel="last"`, links[3])
}

func TestSetLinkHeaders_LastPage(t *testing.T) {
	app := fiber.New()
	app.Get("/rides", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderLink, `</v1/rides>; rel="successor-version"`)
		SetLinkHeaders(c, Pagination{Offset: 0, Limit: 20, Total: 3})
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/rides", nil))
	require.NoError(t, err)

	link := resp.Header.Get("Link")
	assert.True(t, strings.HasPrefix(link, `</v1/rides>; rel="successor-version"`))
	assert.NotContains(t, link, `rel="next"`)
	assert.NotContains(t, link, `rel="prev"`)
}
