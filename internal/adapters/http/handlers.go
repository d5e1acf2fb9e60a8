package http

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/perspectives/internal/core/clustering"
	"github.com/samirrijal/perspectives/internal/core/domain"
)

const maxDrillDownIDs = 200

// ThresholdResponse describes the clustering distance for an altitude.
type ThresholdResponse struct {
	Altitude    float64 `json:"altitude"`
	Band        int     `json:"band"`
	ThresholdKm float64 `json:"threshold_km"`
}

// selectionRequest activates a cluster of the set computed for altitude.
type selectionRequest struct {
	Altitude *float64 `json:"altitude"`
	Cluster  *int     `json:"cluster"`
}

// parseAltitude reads a required, finite altitude query parameter.
func parseAltitude(c *fiber.Ctx) (float64, error) {
	raw := c.Query("altitude")
	if raw == "" {
		return 0, errors.New("altitude query parameter is required")
	}
	alt, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(alt) || math.IsInf(alt, 0) {
		return 0, fmt.Errorf("invalid altitude %q", raw)
	}
	return alt, nil
}

// splitIDs parses a comma-separated id list, dropping blanks.
func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

// ThresholdHandler returns the clustering distance for a camera altitude.
func ThresholdHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		alt, err := parseAltitude(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		band := clustering.Band(alt)
		return c.JSON(ThresholdResponse{
			Altitude:    alt,
			Band:        band,
			ThresholdKm: clustering.BandThresholdKm(band),
		})
	}
}

// ClustersHandler returns the cluster set for a camera altitude as JSON or
// as a GeoJSON FeatureCollection (format=geojson).
func ClustersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		alt, err := parseAltitude(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		format := c.Query("format", "json")
		if format != "json" && format != "geojson" {
			return errBadRequest(c, "format must be json or geojson")
		}

		set, err := deps.Clusters.Clusters(c.UserContext(), alt)
		if err != nil {
			return errInternal(c, err.Error())
		}

		if format == "geojson" {
			data, err := ClusterFeatureCollection(set).MarshalJSON()
			if err != nil {
				return errInternal(c, err.Error())
			}
			c.Set(fiber.HeaderContentType, "application/geo+json")
			return c.Send(data)
		}
		return c.JSON(set)
	}
}

// SelectionHandler activates a cluster and returns the resulting intent.
func SelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req selectionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Altitude == nil || req.Cluster == nil {
			return errBadRequest(c, "altitude and cluster are required")
		}
		if math.IsNaN(*req.Altitude) || math.IsInf(*req.Altitude, 0) {
			return errBadRequest(c, "invalid altitude")
		}

		res, err := deps.Selection.Activate(c.UserContext(), *req.Altitude, *req.Cluster)
		if errors.Is(err, domain.ErrClusterOutOfRange) {
			return errNotFound(c, err.Error())
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(res)
	}
}

// DrillDownHandler returns the expanded map for a set of point ids.
func DrillDownHandler(deps *Dependencies) fiber.Handler {
	return drillDown(deps, "ids")
}

// LegacyClusterHandler serves the old /cluster?locations= page contract.
func LegacyClusterHandler(deps *Dependencies) fiber.Handler {
	return drillDown(deps, "locations")
}

func drillDown(deps *Dependencies, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ids := splitIDs(c.Query(param))
		if len(ids) == 0 {
			return errBadRequest(c, param+" query parameter is required (comma-separated)")
		}
		if len(ids) > maxDrillDownIDs {
			return errBadRequest(c, fmt.Sprintf("maximum %d ids allowed", maxDrillDownIDs))
		}
		return c.JSON(deps.Selection.DrillDown(c.UserContext(), ids))
	}
}

// ListPointsHandler returns the current snapshot, paginated.
func ListPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		points, total := deps.Points.Page(offset, limit)
		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: points, Pagination: pg})
	}
}

// GetPointHandler returns one point by id.
func GetPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "point id is required")
		}
		p, err := deps.Selection.Point(c.UserContext(), id)
		if errors.Is(err, domain.ErrPointNotFound) {
			return errNotFound(c, "point not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(p)
	}
}

// RefreshPointsHandler reloads the snapshot from the database.
func RefreshPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Points.Refresh(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{
			"version": snap.Version,
			"points":  len(snap.Points),
		})
	}
}
