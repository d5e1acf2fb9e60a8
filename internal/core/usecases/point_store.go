package usecases

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/samirrijal/perspectives/internal/core/domain"
	"github.com/samirrijal/perspectives/internal/core/ports"
	"github.com/samirrijal/perspectives/internal/pkg/metrics"
)

// Snapshot is one immutable generation of the point set.
type Snapshot struct {
	Points  []domain.GeoPoint
	Version uint64
	// Fingerprint identifies the content independent of the process, so
	// cached cluster sets can be shared between instances.
	Fingerprint string
}

// PointStore holds the ordered snapshot of perspective pins. Snapshots are
// never mutated; Refresh and Replace install a new one and bump the version.
type PointStore struct {
	repo      ports.PointRepository
	publisher ports.EventPublisher

	mu    sync.RWMutex
	snap  Snapshot
	index map[string]int
}

// NewPointStore creates an empty store. repo and publisher may be nil.
func NewPointStore(repo ports.PointRepository, publisher ports.EventPublisher) *PointStore {
	s := &PointStore{repo: repo, publisher: publisher}
	s.install(nil)
	return s
}

// Current returns the snapshot and its version atomically.
func (s *PointStore) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Snapshot returns the current ordered points. Callers must not modify them.
func (s *PointStore) Snapshot() []domain.GeoPoint {
	return s.Current().Points
}

// Version increases every time a new snapshot is installed.
func (s *PointStore) Version() uint64 {
	return s.Current().Version
}

// Len returns the number of points in the snapshot.
func (s *PointStore) Len() int {
	return len(s.Current().Points)
}

// Get looks a point up by id.
func (s *PointStore) Get(id string) (domain.GeoPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.GeoPoint{}, false
	}
	return s.snap.Points[i], true
}

// Lookup resolves ids in request order, skipping unknown ones.
func (s *PointStore) Lookup(ids []string) []domain.GeoPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.GeoPoint, 0, len(ids))
	for _, id := range ids {
		if i, ok := s.index[id]; ok {
			out = append(out, s.snap.Points[i])
		}
	}
	return out
}

// Page returns a window of the snapshot and the total count.
func (s *PointStore) Page(offset, limit int) ([]domain.GeoPoint, int) {
	points := s.Snapshot()
	total := len(points)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.GeoPoint{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return points[offset:end:end], total
}

// Replace installs an externally supplied snapshot and returns its version.
func (s *PointStore) Replace(points []domain.GeoPoint) uint64 {
	return s.install(points)
}

// Refresh reloads the snapshot from the repository.
func (s *PointStore) Refresh(ctx context.Context) (Snapshot, error) {
	if s.repo == nil {
		return Snapshot{}, fmt.Errorf("refresh points: no repository configured")
	}
	points, err := s.repo.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list points: %w", err)
	}

	s.install(points)
	snap := s.Current()
	slog.Info("point snapshot refreshed", "version", snap.Version, "points", len(snap.Points))

	if s.publisher != nil {
		if err := s.publisher.PublishRefreshed(ctx, snap.Version, len(snap.Points)); err != nil {
			slog.Warn("publish refresh failed", "error", err)
		}
	}
	return snap, nil
}

// HandleChange is the subscriber callback for perspectives.saved/deleted.
func (s *PointStore) HandleChange(ctx context.Context, change domain.PointChange) error {
	slog.Debug("perspectives changed", "kind", change.Kind, "ids", len(change.IDs))
	_, err := s.Refresh(ctx)
	return err
}

func (s *PointStore) install(points []domain.GeoPoint) uint64 {
	clean := make([]domain.GeoPoint, 0, len(points))
	index := make(map[string]int, len(points))
	for _, p := range points {
		sp, ok := p.Sanitized()
		if !ok {
			slog.Warn("malformed coordinates, using origin",
				"id", p.ID, "lat", p.Lat, "lng", p.Lng)
			metrics.MalformedPoints.Inc()
		}
		if _, dup := index[sp.ID]; !dup {
			index[sp.ID] = len(clean)
		}
		clean = append(clean, sp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{
		Points:      clean[:len(clean):len(clean)],
		Version:     s.snap.Version + 1,
		Fingerprint: fingerprint(clean),
	}
	s.index = index
	metrics.SnapshotPoints.Set(float64(len(clean)))
	return s.snap.Version
}

// fingerprint hashes every member record, payload included, so an in-place
// edit yields a new cache key. Each record is length-prefixed.
func fingerprint(points []domain.GeoPoint) string {
	h := xxhash.New()
	var size [8]byte
	for _, p := range points {
		data, err := json.Marshal(p)
		if err != nil {
			// coordinates are sanitised, so only exotic payloads land here
			data = []byte(p.ID)
		}
		binary.LittleEndian.PutUint64(size[:], uint64(len(data)))
		_, _ = h.Write(size[:])
		_, _ = h.Write(data)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
