package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/perspectives/internal/core/domain"
	"github.com/samirrijal/perspectives/internal/core/ports"
	"github.com/samirrijal/perspectives/internal/core/selection"
	"github.com/samirrijal/perspectives/internal/pkg/metrics"
	"github.com/samirrijal/perspectives/internal/pkg/telemetry"
)

// SelectionService turns cluster activations into navigation intents.
type SelectionService struct {
	clusters  *ClusterService
	store     *PointStore
	publisher ports.EventPublisher
}

// NewSelectionService creates a SelectionService. publisher may be nil.
func NewSelectionService(clusters *ClusterService, store *PointStore, publisher ports.EventPublisher) *SelectionService {
	return &SelectionService{clusters: clusters, store: store, publisher: publisher}
}

// Activate selects the cluster at index in the set for altitude and
// publishes the resulting intent.
func (s *SelectionService) Activate(ctx context.Context, altitude float64, index int) (domain.SelectionResult, error) {
	ctx, span := tracer.Start(ctx, telemetry.SpanActivate)
	defer span.End()

	set, err := s.clusters.Clusters(ctx, altitude)
	if err != nil {
		return domain.SelectionResult{}, err
	}
	if index < 0 || index >= len(set.Clusters) {
		return domain.SelectionResult{}, fmt.Errorf("cluster %d of %d: %w", index, len(set.Clusters), domain.ErrClusterOutOfRange)
	}

	res := selection.OnClusterActivated(set.Clusters[index])
	metrics.Selections.WithLabelValues(string(res.Kind)).Inc()
	span.SetAttributes(telemetry.AttrSelection.String(string(res.Kind)), telemetry.AttrMembers.Int(len(set.Clusters[index].Members)))

	if s.publisher != nil {
		var perr error
		switch res.Kind {
		case domain.SelectionNavigate:
			perr = s.publisher.PublishNavigate(ctx, res)
		case domain.SelectionDrilldown:
			perr = s.publisher.PublishDrilldown(ctx, res)
		}
		// Best-effort; the caller already has the intent.
		if perr != nil {
			slog.Warn("publish selection failed", "kind", res.Kind, "error", perr)
		}
	}
	return res, nil
}

// DrillDown builds the expanded map for the given point ids. Unknown ids
// are skipped; request order is kept.
func (s *SelectionService) DrillDown(ctx context.Context, ids []string) domain.DrillDownView {
	_, span := tracer.Start(ctx, telemetry.SpanDrillDown)
	defer span.End()
	members := s.store.Lookup(ids)
	span.SetAttributes(telemetry.AttrMembers.Int(len(members)))
	return selection.DrillDown(members)
}

// Point returns a single point, the detail behind a navigate intent.
func (s *SelectionService) Point(ctx context.Context, id string) (domain.GeoPoint, error) {
	if p, ok := s.store.Get(id); ok {
		return p, nil
	}
	if s.store.repo == nil {
		return domain.GeoPoint{}, domain.ErrPointNotFound
	}
	p, err := s.store.repo.GetByID(ctx, id)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	if p == nil {
		return domain.GeoPoint{}, domain.ErrPointNotFound
	}
	clean, _ := p.Sanitized()
	return clean, nil
}
