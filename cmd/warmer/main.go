package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/perspectives/internal/adapters/postgres"
	"github.com/samirrijal/perspectives/internal/adapters/valkey"
	"github.com/samirrijal/perspectives/internal/core/clustering"
	"github.com/samirrijal/perspectives/internal/core/ports"
	"github.com/samirrijal/perspectives/internal/core/usecases"
	"github.com/samirrijal/perspectives/internal/pkg/config"
	"github.com/samirrijal/perspectives/internal/pkg/logging"
	"github.com/samirrijal/perspectives/internal/workflows"
)

const warmupWorkflowID = "cluster-warmup"

func main() {
	cfg, err := config.Load("perspectives-warmer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Warming without a shared cache would only heat this process.
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	strategy, _ := cfg.Globe.Strategy()
	store := usecases.NewPointStore(postgres.NewPointRepo(db), nil)
	var cacheSvc ports.CacheService = cache
	clusters := usecases.NewClusterService(store, clustering.New(clustering.WithStrategy(strategy)), cacheSvc)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Warmer.TemporalHost,
		Namespace: cfg.Warmer.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Warmer.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ClusterWarmupWorkflow)
	w.RegisterActivity(&workflows.WarmupActivities{Store: store, Clusters: clusters})

	// A cron workflow keeps the cache warm; starting it again while it
	// runs returns the existing execution.
	interval := time.Duration(cfg.Warmer.IntervalSecs) * time.Second
	if interval > 0 {
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:           warmupWorkflowID,
			TaskQueue:    cfg.Warmer.TaskQueue,
			CronSchedule: "@every " + interval.String(),
		}, workflows.ClusterWarmupWorkflow, workflows.WarmupInput{})
		if err != nil {
			slog.Warn("schedule warm-up failed", "error", err)
		} else {
			slog.Info("warm-up scheduled", "workflow", run.GetID(), "run", run.GetRunID(), "every", interval.String())
		}
	}

	slog.Info("warmer worker started", "queue", cfg.Warmer.TaskQueue, "centroid", strategy.String())
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
