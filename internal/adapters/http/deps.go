package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/perspectives/internal/adapters/postgres"
	"github.com/samirrijal/perspectives/internal/adapters/valkey"
	"github.com/samirrijal/perspectives/internal/core/camera"
	"github.com/samirrijal/perspectives/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Points    *usecases.PointStore
	Clusters  *usecases.ClusterService
	Selection *usecases.SelectionService
	// Camera configures the controller of every /ws session.
	Camera camera.Config
	NATS   *nats.Conn
	DB     *postgres.DB
	Cache  *valkey.Cache
}
