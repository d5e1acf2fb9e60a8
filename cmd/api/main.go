package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/perspectives/internal/adapters/http"
	natsadapter "github.com/samirrijal/perspectives/internal/adapters/nats"
	"github.com/samirrijal/perspectives/internal/adapters/postgres"
	"github.com/samirrijal/perspectives/internal/adapters/valkey"
	"github.com/samirrijal/perspectives/internal/core/clustering"
	"github.com/samirrijal/perspectives/internal/core/ports"
	"github.com/samirrijal/perspectives/internal/core/usecases"
	"github.com/samirrijal/perspectives/internal/pkg/config"
	"github.com/samirrijal/perspectives/internal/pkg/logging"
	"github.com/samirrijal/perspectives/internal/pkg/metrics"
	"github.com/samirrijal/perspectives/internal/pkg/telemetry"
)

const poolMetricsInterval = 15 * time.Second

func main() {
	cfg, err := config.Load("perspectives-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() {
				flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer flushCancel()
				_ = shutdown(flushCtx)
			}()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Optional infrastructure; nil interfaces keep the services working without it.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		cacheSvc = cache
		defer cache.Close()
	}

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		publisher = pub
		defer pub.Close()
	}

	// Points, clustering, selection
	strategy, _ := cfg.Globe.Strategy() // validated by config.Load
	store := usecases.NewPointStore(postgres.NewPointRepo(db), publisher)
	clusterSvc := usecases.NewClusterService(store, clustering.New(clustering.WithStrategy(strategy)), cacheSvc)
	selectionSvc := usecases.NewSelectionService(clusterSvc, store, publisher)

	if snap, err := store.Refresh(ctx); err != nil {
		slog.Warn("initial snapshot failed, starting empty", "error", err)
	} else {
		slog.Info("snapshot loaded", "points", len(snap.Points), "version", snap.Version)
	}

	// Writers announce changes on perspectives.*; every instance reloads.
	if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL); err != nil {
		slog.Warn("nats subscriber unavailable", "error", err)
	} else {
		defer sub.Close()
		if err := sub.SubscribePointChanges(ctx, store.HandleChange); err != nil {
			slog.Warn("subscribe point changes failed", "error", err)
		}
	}

	go reportPoolMetrics(ctx, db)

	deps := &http.Dependencies{
		Points:    store,
		Clusters:  clusterSvc,
		Selection: selectionSvc,
		Camera:    cfg.Globe.Camera(),
		DB:        db,
		Cache:     cache,
	}
	if pub != nil {
		deps.NATS = pub.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Perspectives API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "centroid", strategy.String())
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolMetrics(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(poolMetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Stat())
		case <-ctx.Done():
			return
		}
	}
}
