package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/perspectives/internal/core/domain"
	"github.com/samirrijal/perspectives/internal/core/usecases"
)

// SnapshotRefresher reloads the point snapshot from storage.
type SnapshotRefresher interface {
	Refresh(ctx context.Context) (usecases.Snapshot, error)
}

// BandWarmer computes (and caches) the cluster set of one threshold band.
type BandWarmer interface {
	Band(ctx context.Context, band int) (domain.ClusterSet, error)
}

// SnapshotInfo describes the snapshot a warm-up run worked on.
type SnapshotInfo struct {
	Version     uint64
	Fingerprint string
	Points      int
}

// WarmupActivities holds the activity implementations for the warm-up workflow.
type WarmupActivities struct {
	Store    SnapshotRefresher
	Clusters BandWarmer
}

// RefreshSnapshot loads the latest perspectives into the store.
func (a *WarmupActivities) RefreshSnapshot(ctx context.Context) (SnapshotInfo, error) {
	snap, err := a.Store.Refresh(ctx)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("refresh snapshot: %w", err)
	}
	return SnapshotInfo{
		Version:     snap.Version,
		Fingerprint: snap.Fingerprint,
		Points:      len(snap.Points),
	}, nil
}

// WarmBand clusters the snapshot for one band and returns the cluster count.
func (a *WarmupActivities) WarmBand(ctx context.Context, band int) (int, error) {
	set, err := a.Clusters.Band(ctx, band)
	if err != nil {
		return 0, fmt.Errorf("warm band %d: %w", band, err)
	}
	slog.Debug("band warmed", "band", band, "clusters", len(set.Clusters), "version", set.Version)
	return len(set.Clusters), nil
}
