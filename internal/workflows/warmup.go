package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/perspectives/internal/core/clustering"
)

// WarmupInput selects the bands to precompute; empty means all of them.
type WarmupInput struct {
	Bands []int
}

// WarmupResult reports what a run produced.
type WarmupResult struct {
	Snapshot SnapshotInfo
	Clusters map[int]int // band -> cluster count
	Failed   []int
}

// ClusterWarmupWorkflow refreshes the point snapshot and precomputes the
// cluster set of every threshold band so API instances start from a warm
// cache. A failing band is recorded and skipped; the run only fails when
// the snapshot cannot be loaded or no band could be warmed.
func ClusterWarmupWorkflow(ctx workflow.Context, input WarmupInput) (WarmupResult, error) {
	logger := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	result := WarmupResult{Clusters: make(map[int]int)}

	if err := workflow.ExecuteActivity(ctx, "RefreshSnapshot").Get(ctx, &result.Snapshot); err != nil {
		return result, err
	}
	if result.Snapshot.Points == 0 {
		logger.Info("empty snapshot, nothing to warm")
		return result, nil
	}

	bands := input.Bands
	if len(bands) == 0 {
		bands = make([]int, clustering.BandCount)
		for i := range bands {
			bands[i] = i
		}
	}

	for _, band := range bands {
		var n int
		if err := workflow.ExecuteActivity(ctx, "WarmBand", band).Get(ctx, &n); err != nil {
			logger.Warn("band warm-up failed", "band", band, "error", err)
			result.Failed = append(result.Failed, band)
			continue
		}
		result.Clusters[band] = n
	}

	if len(result.Clusters) == 0 {
		return result, temporal.NewApplicationError("no band could be warmed", "WarmupFailed", result.Failed)
	}

	logger.Info("cluster warm-up done",
		"version", result.Snapshot.Version, "bands", len(result.Clusters), "failed", len(result.Failed))
	return result, nil
}
