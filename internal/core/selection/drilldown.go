package selection

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/perspectives/internal/core/domain"
	"github.com/samirrijal/perspectives/internal/pkg/geospatial"
)

const (
	// DrillDownZoom is the map zoom the drill-down opens at before it flies
	// to the bounds of its pins.
	DrillDownZoom = 2

	// minSpanKm is the half-size of the box used when every pin sits on the
	// same coordinate, so the map never zooms into a zero-area bound.
	minSpanKm = 5.0

	pinDateLayout = "Jan 2, 2006"
)

// emptyCenter is where the drill-down map looks when it has no pins.
var emptyCenter = orb.Point{0, 20}

// DrillDown builds the expanded map for a set of members: one pin per
// member, no further clustering.
func DrillDown(members []domain.GeoPoint) domain.DrillDownView {
	view := domain.DrillDownView{
		CenterLat: emptyCenter.Lat(),
		CenterLng: emptyCenter.Lon(),
		Zoom:      DrillDownZoom,
		Pins:      make([]domain.DrillDownPin, 0, len(members)),
	}
	if len(members) == 0 {
		return view
	}

	mp := make(orb.MultiPoint, 0, len(members))
	var sumLat, sumLng float64
	for _, m := range members {
		clean, _ := m.Sanitized()
		sumLat += clean.Lat
		sumLng += clean.Lng
		mp = append(mp, orb.Point{clean.Lng, clean.Lat})

		view.Pins = append(view.Pins, domain.DrillDownPin{
			Point:        clean,
			PreviewImage: PreviewImage(m.Payload),
			Date:         formatDate(m.Payload.CreatedAt),
		})
	}

	n := float64(len(members))
	view.CenterLat = sumLat / n
	view.CenterLng = sumLng / n
	view.Bounds = boundsOf(mp)
	return view
}

func boundsOf(mp orb.MultiPoint) *domain.Bounds {
	b := mp.Bound()
	if b.Min == b.Max {
		minLat, minLng, maxLat, maxLng := geospatial.BoundingBox(b.Min.Lat(), b.Min.Lon(), minSpanKm)
		return &domain.Bounds{MinLat: minLat, MinLng: minLng, MaxLat: maxLat, MaxLng: maxLng}
	}
	return &domain.Bounds{
		MinLat: b.Bottom(),
		MinLng: b.Left(),
		MaxLat: b.Top(),
		MaxLng: b.Right(),
	}
}

// PreviewImage picks the first sketch, else the first image, else the cover.
func PreviewImage(p domain.Perspective) string {
	if len(p.Sketches) > 0 && p.Sketches[0] != "" {
		return p.Sketches[0]
	}
	if len(p.Images) > 0 && p.Images[0] != "" {
		return p.Images[0]
	}
	return p.CoverImage
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(pinDateLayout)
}
