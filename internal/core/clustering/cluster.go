// Package clustering groups geo points into zoom-dependent clusters.
//
// The algorithm is a greedy single pass: every point joins the FIRST
// existing cluster (in creation order) whose centroid lies strictly within
// the threshold, not the nearest one. Output is fully determined by the
// input order.
package clustering

import (
	"github.com/samirrijal/perspectives/internal/core/domain"
	"github.com/samirrijal/perspectives/internal/pkg/geospatial"
)

// DistanceFunc returns the distance in km between two coordinates.
type DistanceFunc func(lat1, lng1, lat2, lng2 float64) float64

// Engine clusters point sets. The zero value is not usable; call New.
type Engine struct {
	strategy Strategy
	distance DistanceFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategy selects the centroid strategy (Linear by default).
func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithDistance replaces the great-circle distance function.
func WithDistance(fn DistanceFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.distance = fn
		}
	}
}

// New creates an Engine using haversine distance and linear centroids.
func New(opts ...Option) *Engine {
	e := &Engine{strategy: Linear, distance: geospatial.Haversine}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Strategy returns the configured centroid strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

var defaultEngine = New()

// Cluster runs a pass with the default engine.
func Cluster(points []domain.GeoPoint, thresholdKm float64) []domain.Cluster {
	return defaultEngine.Cluster(points, thresholdKm)
}

type building struct {
	acc     accumulator
	members []domain.GeoPoint
}

// Cluster groups points whose distance to a cluster centroid is below
// thresholdKm. A threshold of zero (or less, or NaN) yields one singleton
// cluster per point in input order. Malformed coordinates are treated as
// (0, 0) so one bad point cannot break the pass.
func (e *Engine) Cluster(points []domain.GeoPoint, thresholdKm float64) []domain.Cluster {
	if len(points) == 0 {
		return []domain.Cluster{}
	}

	if !(thresholdKm > 0) {
		out := make([]domain.Cluster, 0, len(points))
		for _, p := range points {
			p, _ = p.Sanitized()
			out = append(out, domain.Cluster{Lat: p.Lat, Lng: p.Lng, Members: []domain.GeoPoint{p}})
		}
		return out
	}

	var groups []*building
	for _, p := range points {
		p, _ = p.Sanitized()

		var found *building
		for _, g := range groups {
			lat, lng := g.acc.centroid()
			if e.distance(lat, lng, p.Lat, p.Lng) < thresholdKm {
				found = g
				break
			}
		}

		if found != nil {
			found.members = append(found.members, p)
			found.acc.add(p.Lat, p.Lng)
			continue
		}
		groups = append(groups, &building{
			acc:     e.strategy.newAccumulator(p.Lat, p.Lng),
			members: []domain.GeoPoint{p},
		})
	}

	out := make([]domain.Cluster, len(groups))
	for i, g := range groups {
		lat, lng := g.acc.centroid()
		out[i] = domain.Cluster{Lat: lat, Lng: lng, Members: g.members}
	}
	return out
}
