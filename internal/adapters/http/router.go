package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/perspectives/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 300 requests per minute per IP. Globe clients poll
	// clusters on every band change, so this is looser than a plain API.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/ws" || c.Path() == "/metrics"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(DeprecationMiddleware(legacyRoutes))

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/threshold", ThresholdHandler(deps))
	v1.Get("/clusters", timeout.NewWithContext(ClustersHandler(deps), requestTimeout))
	v1.Post("/selection", timeout.NewWithContext(SelectionHandler(deps), requestTimeout))
	v1.Get("/drilldown", timeout.NewWithContext(DrillDownHandler(deps), requestTimeout))
	v1.Get("/cluster", timeout.NewWithContext(LegacyClusterHandler(deps), requestTimeout))
	v1.Get("/points", timeout.NewWithContext(ListPointsHandler(deps), requestTimeout))
	v1.Post("/points/refresh", timeout.NewWithContext(RefreshPointsHandler(deps), requestTimeout))
	v1.Get("/points/:id", timeout.NewWithContext(GetPointHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), requestTimeout))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// Camera sessions
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(CameraSessionHandler(deps)))
}
