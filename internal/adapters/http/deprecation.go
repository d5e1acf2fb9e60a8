package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // request path, matched exactly
	SunsetDate  time.Time // date when the endpoint will be removed
	Alternative string    // recommended successor (optional)
}

// legacyRoutes are still served but announce their replacement.
var legacyRoutes = []DeprecatedRoute{
	{
		Path:        "/v1/cluster",
		SunsetDate:  time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/drilldown",
	},
}

// DeprecationMiddleware adds Deprecation, Sunset, and Link headers to deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, d := range deprecated {
			if c.Path() != d.Path {
				continue
			}
			// RFC 8594
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))

			if d.Alternative != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
			}

			days := time.Until(d.SunsetDate).Hours() / 24
			if days < 0 {
				days = 0
			}
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			break
		}

		return c.Next()
	}
}
