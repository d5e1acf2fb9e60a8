package http

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

// ClusterFeatureCollection renders a cluster set as one Point feature per
// cluster. Singletons carry the member's display fields so a map client
// can render them without a second request.
func ClusterFeatureCollection(set domain.ClusterSet) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"band":         set.Band,
		"threshold_km": set.ThresholdKm,
		"version":      set.Version,
	}

	for i, cl := range set.Clusters {
		f := geojson.NewFeature(orb.Point{cl.Lng, cl.Lat})
		f.ID = i

		ids := make([]string, len(cl.Members))
		for j, m := range cl.Members {
			ids[j] = m.ID
		}
		f.Properties["index"] = i
		f.Properties["size"] = cl.Size()
		f.Properties["members"] = ids

		if cl.Size() == 1 {
			m := cl.Members[0]
			f.Properties["name"] = m.Payload.Name
			if m.Payload.Slug != "" {
				f.Properties["slug"] = m.Payload.Slug
			}
		}
		fc.Append(f)
	}
	return fc
}
