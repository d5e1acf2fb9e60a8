package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics" || path == "/ws":
			ttl = "no-cache"

		case path == "/v1/threshold":
			ttl = "public, max-age=86400" // pure function of the query

		case path == "/v1/clusters" || path == "/v1/points":
			ttl = "public, max-age=30" // changes with every snapshot refresh

		case strings.HasPrefix(path, "/v1/points/"):
			ttl = "public, max-age=600"

		case path == "/v1/drilldown" || path == "/v1/cluster":
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
