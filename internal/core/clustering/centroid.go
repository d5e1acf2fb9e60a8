package clustering

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

// Strategy selects how a cluster's centroid is maintained as points join.
type Strategy int

const (
	// Linear keeps an incremental arithmetic mean of latitude and longitude.
	// It is inexact near the poles and across the antimeridian.
	Linear Strategy = iota
	// Spherical averages unit vectors on the sphere and projects back.
	Spherical
)

func (s Strategy) String() string {
	if s == Spherical {
		return "spherical"
	}
	return "linear"
}

// ParseStrategy parses a configuration value.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear":
		return Linear, nil
	case "spherical":
		return Spherical, nil
	default:
		return Linear, fmt.Errorf("unknown centroid strategy %q", s)
	}
}

type accumulator interface {
	add(lat, lng float64)
	centroid() (lat, lng float64)
}

func (s Strategy) newAccumulator(lat, lng float64) accumulator {
	if s == Spherical {
		return newSphericalMean(lat, lng)
	}
	return &linearMean{lat: lat, lng: lng, n: 1}
}

type linearMean struct {
	lat, lng float64
	n        int
}

func (m *linearMean) add(lat, lng float64) {
	m.n++
	n := float64(m.n)
	m.lat = (m.lat*(n-1) + lat) / n
	m.lng = (m.lng*(n-1) + lng) / n
}

func (m *linearMean) centroid() (float64, float64) { return m.lat, m.lng }

type sphericalMean struct {
	sum      r3.Vector
	lat, lng float64
}

func newSphericalMean(lat, lng float64) *sphericalMean {
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lng))
	return &sphericalMean{sum: p.Vector, lat: lat, lng: lng}
}

func (m *sphericalMean) add(lat, lng float64) {
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lng))
	m.sum = m.sum.Add(p.Vector)
	// Antipodal members cancel out; keep the previous centroid then.
	if m.sum.Norm() == 0 {
		return
	}
	ll := s2.LatLngFromPoint(s2.Point{Vector: m.sum.Normalize()})
	m.lat, m.lng = ll.Lat.Degrees(), ll.Lng.Degrees()
}

func (m *sphericalMean) centroid() (float64, float64) { return m.lat, m.lng }
