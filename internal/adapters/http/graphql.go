package http

import (
	"errors"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/perspectives/internal/core/clustering"
	"github.com/samirrijal/perspectives/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	perspectiveType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Perspective",
		Fields: graphql.Fields{
			"name":        &graphql.Field{Type: graphql.String},
			"slug":        &graphql.Field{Type: graphql.String},
			"time":        &graphql.Field{Type: graphql.String},
			"weather":     &graphql.Field{Type: graphql.String},
			"cover_image": &graphql.Field{Type: graphql.String},
			"images":      &graphql.Field{Type: graphql.NewList(graphql.String)},
			"sketches":    &graphql.Field{Type: graphql.NewList(graphql.String)},
			"created_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if per, ok := p.Source.(domain.Perspective); ok && per.CreatedAt != nil {
						return per.CreatedAt.Format(time.RFC3339), nil
					}
					return nil, nil
				},
			},
		},
	})

	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"id":      &graphql.Field{Type: graphql.String},
			"lat":     &graphql.Field{Type: graphql.Float},
			"lng":     &graphql.Field{Type: graphql.Float},
			"payload": &graphql.Field{Type: perspectiveType},
		},
	})

	clusterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Cluster",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
			"size": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if cl, ok := p.Source.(domain.Cluster); ok {
						return cl.Size(), nil
					}
					return nil, nil
				},
			},
			"members": &graphql.Field{Type: graphql.NewList(geoPointType)},
		},
	})

	clusterSetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ClusterSet",
		Fields: graphql.Fields{
			"altitude":     &graphql.Field{Type: graphql.Float},
			"band":         &graphql.Field{Type: graphql.Int},
			"threshold_km": &graphql.Field{Type: graphql.Float},
			"version":      &graphql.Field{Type: graphql.Int},
			"clusters":     &graphql.Field{Type: graphql.NewList(clusterType)},
		},
	})

	thresholdType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Threshold",
		Fields: graphql.Fields{
			"altitude":     &graphql.Field{Type: graphql.Float},
			"band":         &graphql.Field{Type: graphql.Int},
			"threshold_km": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lng": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lng": &graphql.Field{Type: graphql.Float},
		},
	})

	pinType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DrillDownPin",
		Fields: graphql.Fields{
			"point":         &graphql.Field{Type: geoPointType},
			"preview_image": &graphql.Field{Type: graphql.String},
			"date":          &graphql.Field{Type: graphql.String},
		},
	})

	drillDownType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DrillDownView",
		Fields: graphql.Fields{
			"center_lat": &graphql.Field{Type: graphql.Float},
			"center_lng": &graphql.Field{Type: graphql.Float},
			"zoom":       &graphql.Field{Type: graphql.Int},
			"bounds":     &graphql.Field{Type: boundsType},
			"pins":       &graphql.Field{Type: graphql.NewList(pinType)},
		},
	})

	selectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Selection",
		Fields: graphql.Fields{
			"kind":      &graphql.Field{Type: graphql.String},
			"member_id": &graphql.Field{Type: graphql.String},
			"slug":      &graphql.Field{Type: graphql.String},
			"notice":    &graphql.Field{Type: graphql.String},
			"members":   &graphql.Field{Type: graphql.NewList(geoPointType)},
		},
	})

	altitudeArg := func(p graphql.ResolveParams) (float64, error) {
		alt, _ := p.Args["altitude"].(float64)
		if math.IsNaN(alt) || math.IsInf(alt, 0) {
			return 0, errors.New("invalid altitude")
		}
		return alt, nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"threshold": &graphql.Field{
				Type:        thresholdType,
				Description: "Clustering distance for a camera altitude",
				Args: graphql.FieldConfigArgument{
					"altitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					alt, err := altitudeArg(p)
					if err != nil {
						return nil, err
					}
					band := clustering.Band(alt)
					return ThresholdResponse{Altitude: alt, Band: band, ThresholdKm: clustering.BandThresholdKm(band)}, nil
				},
			},
			"clusters": &graphql.Field{
				Type:        clusterSetType,
				Description: "Clusters of the current snapshot for a camera altitude",
				Args: graphql.FieldConfigArgument{
					"altitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					alt, err := altitudeArg(p)
					if err != nil {
						return nil, err
					}
					return deps.Clusters.Clusters(p.Context, alt)
				},
			},
			"point": &graphql.Field{
				Type:        geoPointType,
				Description: "Get a perspective pin by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					pt, err := deps.Selection.Point(p.Context, id)
					if errors.Is(err, domain.ErrPointNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return pt, nil
				},
			},
			"points": &graphql.Field{
				Type:        graphql.NewList(geoPointType),
				Description: "Page through the current snapshot",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					if limit <= 0 || limit > 500 {
						limit = 100
					}
					points, _ := deps.Points.Page(offset, limit)
					return points, nil
				},
			},
			"drilldown": &graphql.Field{
				Type:        drillDownType,
				Description: "Expanded map for a set of pins",
				Args: graphql.FieldConfigArgument{
					"ids": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw, _ := p.Args["ids"].([]interface{})
					if len(raw) > maxDrillDownIDs {
						return nil, errors.New("too many ids")
					}
					ids := make([]string, 0, len(raw))
					for _, v := range raw {
						if s, ok := v.(string); ok {
							ids = append(ids, s)
						}
					}
					return deps.Selection.DrillDown(p.Context, ids), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"activate": &graphql.Field{
				Type:        selectionType,
				Description: "Activate a cluster marker and emit the resulting intent",
				Args: graphql.FieldConfigArgument{
					"altitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"cluster":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					alt, err := altitudeArg(p)
					if err != nil {
						return nil, err
					}
					return deps.Selection.Activate(p.Context, alt, p.Args["cluster"].(int))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
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
		if req.Query == "" {
			return errBadRequest(c, "query is required")
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
