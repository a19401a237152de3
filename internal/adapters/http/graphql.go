package http

import (
	"errors"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/expedition/internal/core/domain"
)

// pointField resolves one coordinate of an orb.Point source.
func pointField(get func(orb.Point) float64) *graphql.Field {
	return &graphql.Field{
		Type: graphql.Float,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			pt, ok := p.Source.(orb.Point)
			if !ok {
				return nil, nil
			}
			return get(pt), nil
		},
	}
}

// originArgs are the optional origin coordinates for travel times.
var originArgs = graphql.FieldConfigArgument{
	"lat": &graphql.ArgumentConfig{Type: graphql.Float},
	"lon": &graphql.ArgumentConfig{Type: graphql.Float},
}

func originFromArgs(args map[string]interface{}) (*orb.Point, error) {
	lat, hasLat := args["lat"].(float64)
	lon, hasLon := args["lon"].(float64)
	switch {
	case !hasLat && !hasLon:
		return nil, nil
	case hasLat != hasLon:
		return nil, errors.New("lat and lon must be given together")
	}
	return &orb.Point{lon, lat}, nil
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": pointField(orb.Point.Lat),
			"lon": pointField(orb.Point.Lon),
		},
	})

	addressType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Address",
		Fields: graphql.Fields{
			"display_name": &graphql.Field{Type: graphql.String},
			"road":         &graphql.Field{Type: graphql.String},
			"postcode":     &graphql.Field{Type: graphql.String},
			"state":        &graphql.Field{Type: graphql.String},
			"country":      &graphql.Field{Type: graphql.String},
			"country_code": &graphql.Field{Type: graphql.String},
			"locality": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					a, _ := p.Source.(*domain.Address)
					return a.Locality(), nil
				},
			},
		},
	})

	wayType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Way",
		Fields: graphql.Fields{
			"key":      &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"seq":      &graphql.Field{Type: graphql.Int},
			"distance": &graphql.Field{Type: graphql.Float},
			"surface":  &graphql.Field{Type: graphql.String},
			"points": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					w, _ := p.Source.(domain.Way)
					return len(w.Points), nil
				},
			},
			"polyline": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					w, _ := p.Source.(domain.Way)
					coords := make([][]float64, 0, len(w.Points))
					for _, wp := range w.Points {
						coords = append(coords, []float64{wp.Point.Lat(), wp.Point.Lon()})
					}
					return string(polyline.EncodeCoords(coords)), nil
				},
			},
		},
	})

	surfaceShareType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SurfaceShare",
		Fields: graphql.Fields{
			"surface": &graphql.Field{Type: graphql.String},
			"ratio":   &graphql.Field{Type: graphql.Float},
		},
	})

	summaryFields := func() graphql.Fields {
		return graphql.Fields{
			"id":                        &graphql.Field{Type: graphql.ID},
			"name":                      &graphql.Field{Type: graphql.String},
			"total_distance":            &graphql.Field{Type: graphql.Float},
			"start_point":               &graphql.Field{Type: geoPointType},
			"end_point":                 &graphql.Field{Type: geoPointType},
			"start_address":             &graphql.Field{Type: addressType},
			"end_address":               &graphql.Field{Type: addressType},
			"created_at":                &graphql.Field{Type: graphql.DateTime},
			"time_from_origin_to_start": &graphql.Field{Type: graphql.Int},
			"time_from_end_to_origin":   &graphql.Field{Type: graphql.Int},
		}
	}

	rideSummaryType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "RideSummary",
		Fields: summaryFields(),
	})

	rideFields := summaryFields()
	rideFields["ways"] = &graphql.Field{Type: graphql.NewList(wayType)}
	rideFields["surface_composition"] = &graphql.Field{
		Type: graphql.NewList(surfaceShareType),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			r, _ := p.Source.(*domain.Ride)
			if r == nil {
				return nil, nil
			}
			shares := make([]map[string]interface{}, 0, len(r.SurfaceComposition))
			for s, ratio := range r.SurfaceComposition {
				shares = append(shares, map[string]interface{}{"surface": s, "ratio": ratio})
			}
			sort.Slice(shares, func(i, j int) bool {
				return shares[i]["ratio"].(float64) > shares[j]["ratio"].(float64)
			})
			return shares, nil
		},
	}
	rideType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Ride",
		Fields: rideFields,
	})

	ridePageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RidePage",
		Fields: graphql.Fields{
			"rides":  &graphql.Field{Type: graphql.NewList(rideSummaryType)},
			"offset": &graphql.Field{Type: graphql.Int},
			"limit":  &graphql.Field{Type: graphql.Int},
			"total":  &graphql.Field{Type: graphql.Int},
		},
	})

	ridesArgs := graphql.FieldConfigArgument{
		"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
		"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
	}
	for k, v := range originArgs {
		ridesArgs[k] = v
	}
	rideArgs := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}
	for k, v := range originArgs {
		rideArgs[k] = v
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"rides": &graphql.Field{
				Type:        ridePageType,
				Description: "List rides, newest first",
				Args:        ridesArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin, err := originFromArgs(p.Args)
					if err != nil {
						return nil, err
					}
					offset, limit := normalizePage(p.Args["offset"].(int), p.Args["limit"].(int))
					rides, total, err := deps.Rides.List(p.Context, offset, limit, origin)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"rides":  rides,
						"offset": offset,
						"limit":  limit,
						"total":  total,
					}, nil
				},
			},
			"ride": &graphql.Field{
				Type:        rideType,
				Description: "Get a ride by ID",
				Args:        rideArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := parseGraphQLID(p.Args["id"])
					if err != nil {
						return nil, err
					}
					origin, err := originFromArgs(p.Args)
					if err != nil {
						return nil, err
					}
					ride, err := deps.Rides.GetByID(p.Context, id, origin)
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					return ride, err
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func parseGraphQLID(v interface{}) (int64, error) {
	s, _ := v.(string)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
