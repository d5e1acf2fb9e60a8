package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/perspectives/internal/core/clustering"
	"github.com/samirrijal/perspectives/internal/core/domain"
	"github.com/samirrijal/perspectives/internal/core/ports"
	"github.com/samirrijal/perspectives/internal/pkg/metrics"
	"github.com/samirrijal/perspectives/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/perspectives/usecases")

// clusterCacheTTL keeps shared cluster sets for 10 minutes; a new snapshot
// changes the key anyway.
const clusterCacheTTL = 600

// ClusterService serves cluster sets for camera altitudes. A pass is only
// run when the snapshot version or the threshold band changes.
type ClusterService struct {
	store  *PointStore
	engine *clustering.Engine
	cache  ports.CacheService

	mu          sync.Mutex
	memoVersion uint64
	memo        map[int]domain.ClusterSet
	group       singleflight.Group
}

// NewClusterService creates a ClusterService. cache may be nil.
func NewClusterService(store *PointStore, engine *clustering.Engine, cache ports.CacheService) *ClusterService {
	if engine == nil {
		engine = clustering.New()
	}
	return &ClusterService{
		store:  store,
		engine: engine,
		cache:  cache,
		memo:   make(map[int]domain.ClusterSet),
	}
}

// Clusters returns the cluster set for a camera altitude.
func (s *ClusterService) Clusters(ctx context.Context, altitude float64) (domain.ClusterSet, error) {
	if math.IsNaN(altitude) || math.IsInf(altitude, 0) {
		return domain.ClusterSet{}, fmt.Errorf("invalid altitude %v", altitude)
	}
	set, err := s.Band(ctx, clustering.Band(altitude))
	if err != nil {
		return domain.ClusterSet{}, err
	}
	set.Altitude = altitude
	return set, nil
}

// Band returns the cluster set of a threshold band for the current snapshot.
func (s *ClusterService) Band(ctx context.Context, band int) (domain.ClusterSet, error) {
	if band < 0 || band >= clustering.BandCount {
		return domain.ClusterSet{}, fmt.Errorf("band %d out of range", band)
	}
	snap := s.store.Current()

	if set, ok := s.memoized(snap.Version, band); ok {
		metrics.ClusterMemoHits.Inc()
		return set, nil
	}

	key := fmt.Sprintf("%d:%d", snap.Version, band)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		set := s.compute(ctx, snap, band)
		s.remember(snap.Version, band, set)
		return set, nil
	})
	if err != nil {
		return domain.ClusterSet{}, err
	}
	return v.(domain.ClusterSet), nil
}

// Warm computes every band for the current snapshot and returns how many
// sets were produced.
func (s *ClusterService) Warm(ctx context.Context) (int, error) {
	n := 0
	for band := 0; band < clustering.BandCount; band++ {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := s.Band(ctx, band); err != nil {
			return n, fmt.Errorf("warm band %d: %w", band, err)
		}
		n++
	}
	return n, nil
}

func (s *ClusterService) memoized(version uint64, band int) (domain.ClusterSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memoVersion != version {
		return domain.ClusterSet{}, false
	}
	set, ok := s.memo[band]
	return set, ok
}

func (s *ClusterService) remember(version uint64, band int, set domain.ClusterSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version < s.memoVersion {
		return
	}
	if version != s.memoVersion {
		s.memoVersion = version
		s.memo = make(map[int]domain.ClusterSet, clustering.BandCount)
	}
	s.memo[band] = set
}

func (s *ClusterService) compute(ctx context.Context, snap Snapshot, band int) domain.ClusterSet {
	ctx, span := tracer.Start(ctx, telemetry.SpanClusterPass)
	defer span.End()

	threshold := clustering.BandThresholdKm(band)
	span.SetAttributes(
		telemetry.AttrBand.Int(band),
		telemetry.AttrThresholdKm.Float64(threshold),
		telemetry.AttrPoints.Int(len(snap.Points)),
		telemetry.AttrStrategy.String(s.engine.Strategy().String()),
	)

	cacheKey := s.cacheKey(snap, band)
	if s.cache != nil && snap.Fingerprint != "" {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var set domain.ClusterSet
			if err := json.Unmarshal(data, &set); err == nil {
				metrics.CacheHits.WithLabelValues("clusters").Inc()
				set.Version = snap.Version
				span.SetAttributes(telemetry.AttrCached.Bool(true))
				return set
			}
		}
		metrics.CacheMisses.WithLabelValues("clusters").Inc()
	}

	start := time.Now()
	clusters := s.engine.Cluster(snap.Points, threshold)
	elapsed := time.Since(start)

	metrics.ClusterPasses.WithLabelValues(s.engine.Strategy().String()).Inc()
	metrics.ClusterPassDuration.Observe(elapsed.Seconds())
	metrics.ClustersProduced.WithLabelValues(fmt.Sprint(band)).Set(float64(len(clusters)))
	span.SetAttributes(telemetry.AttrClusters.Int(len(clusters)))
	slog.Debug("clustering pass",
		"band", band, "threshold_km", threshold,
		"points", len(snap.Points), "clusters", len(clusters),
		"duration", elapsed)

	set := domain.ClusterSet{
		Band:        band,
		ThresholdKm: threshold,
		Version:     snap.Version,
		Clusters:    clusters,
	}

	if s.cache != nil && snap.Fingerprint != "" {
		if data, err := json.Marshal(set); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, clusterCacheTTL)
		}
	}
	return set
}

func (s *ClusterService) cacheKey(snap Snapshot, band int) string {
	return fmt.Sprintf("clusters:%s:%s:%d", snap.Fingerprint, s.engine.Strategy(), band)
}
