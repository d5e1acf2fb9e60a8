// Package selection decides what happens when a cluster marker is activated.
package selection

import (
	"strings"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

// OnClusterActivated returns Navigate with the member's id for a
// single-member cluster and OpenDrilldown with every member, in order,
// otherwise. It has no side effects.
func OnClusterActivated(c domain.Cluster) domain.SelectionResult {
	if len(c.Members) == 1 {
		m := c.Members[0]
		res := domain.SelectionResult{
			Kind:     domain.SelectionNavigate,
			MemberID: m.ID,
			Slug:     m.Payload.Slug,
		}
		// No detail page to open; the renderer shows the summary instead.
		if m.Payload.Slug == "" {
			res.Notice = Summary(m.Payload)
		}
		return res
	}

	members := make([]domain.GeoPoint, len(c.Members))
	copy(members, c.Members)
	return domain.SelectionResult{Kind: domain.SelectionDrilldown, Members: members}
}

// Summary joins name, time of day and weather with " • ", skipping empty parts.
func Summary(p domain.Perspective) string {
	parts := make([]string, 0, 3)
	if p.Name != "" {
		parts = append(parts, p.Name)
	}
	if p.TimeOfDay != "" {
		parts = append(parts, "Time: "+p.TimeOfDay)
	}
	if p.Weather != "" {
		parts = append(parts, "Weather: "+p.Weather)
	}
	return strings.Join(parts, " • ")
}
