package http

import (
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"

	"github.com/samirrijal/expedition/internal/adapters/gpx"
)

// CreateRideHandler imports a ride from a multipart GPX upload (ride_name,
// gpx) or a JSON body ({name, geo_json}).
func CreateRideHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			name string
			req  CreateRideRequest
		)

		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			file, err := c.FormFile("gpx")
			if err != nil {
				return errBadRequest(c, "gpx file is required")
			}
			doc, err := readGPX(file)
			if err != nil {
				return rideError(c, err)
			}
			name = c.FormValue("ride_name")
			if name == "" {
				name = doc.Name
			}
			ride, err := deps.Rides.Create(c.UserContext(), name, doc.Collection)
			if err != nil {
				return rideError(c, err)
			}
			c.Location("/v1/rides/" + strconv.FormatInt(ride.ID, 10))
			return c.Status(fiber.StatusCreated).JSON(newRideSummaryResponse(ride.Summary()))
		}

		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		fc, err := decodeGeoJSON(req.GeoJSON)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		ride, err := deps.Rides.Create(c.UserContext(), req.Name, fc)
		if err != nil {
			return rideError(c, err)
		}
		c.Location("/v1/rides/" + strconv.FormatInt(ride.ID, 10))
		return c.Status(fiber.StatusCreated).JSON(newRideSummaryResponse(ride.Summary()))
	}
}

func readGPX(fh *multipart.FileHeader) (*gpx.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return gpx.Read(f)
}

// ListRidesHandler returns a page of rides. With lat and lon, each ride
// carries travel times to and from that origin.
func ListRidesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin, err := parseOrigin(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		pg := ParsePagination(c)
		rides, total, err := deps.Rides.List(c.UserContext(), pg.Offset, pg.Limit, origin)
		if err != nil {
			return rideError(c, err)
		}
		pg.Total = total

		data := make([]RideSummaryResponse, 0, len(rides))
		for _, r := range rides {
			data = append(data, newRideSummaryResponse(r))
		}

		SetLinkHeaders(c, pg)
		if origin != nil {
			c.Set("Cache-Control", "private, max-age=60")
		}
		return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
	}
}

// GetRideHandler returns a ride with its first ways and surface composition.
func GetRideHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := rideID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		origin, err := parseOrigin(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		ride, err := deps.Rides.GetByID(c.UserContext(), id, origin)
		if err != nil {
			return rideError(c, err)
		}
		if origin != nil {
			c.Set("Cache-Control", "private, max-age=60")
		}
		return c.JSON(newRideResponse(ride))
	}
}

// DeleteRideHandler removes a ride.
func DeleteRideHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := rideID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if err := deps.Rides.Delete(c.UserContext(), id); err != nil {
			return rideError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ReprocessRideHandler queues a ride for segmentation.
func ReprocessRideHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := rideID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if err := deps.Rides.RequestReprocess(c.UserContext(), id); err != nil {
			return rideError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"ride_id": id,
			"status":  "queued",
		})
	}
}

func rideID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

// parseOrigin reads the optional lat/lon origin. Both or neither must be set.
func parseOrigin(c *fiber.Ctx) (*orb.Point, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if lonStr == "" {
		// Older clients send lng
		lonStr = c.Query("lng")
	}
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, errors.New("lat and lon must be given together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, errors.New("lat must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, errors.New("lon must be a number between -180 and 180")
	}
	return &orb.Point{lon, lat}, nil
}
