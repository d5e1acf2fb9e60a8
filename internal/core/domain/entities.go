package domain

import (
	"errors"
	"time"
)

var (
	ErrPointNotFound     = errors.New("point not found")
	ErrClusterOutOfRange = errors.New("cluster index out of range")
	ErrCameraNotReady    = errors.New("camera not ready")
	ErrControllerClosed  = errors.New("camera controller closed")
)

// Perspective is the display payload of a GeoPoint (one user entry).
type Perspective struct {
	Name       string     `json:"name"`
	Slug       string     `json:"slug,omitempty"`
	TimeOfDay  string     `json:"time,omitempty"`
	Weather    string     `json:"weather,omitempty"`
	CoverImage string     `json:"cover_image,omitempty"`
	Images     []string   `json:"images,omitempty"`
	Sketches   []string   `json:"sketches,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// Cluster is a transient group of points sharing a running-mean centroid.
// Members is never empty. Clusters have no identity across passes.
type Cluster struct {
	Lat     float64    `json:"lat"`
	Lng     float64    `json:"lng"`
	Members []GeoPoint `json:"members"`
}

// Size returns the number of members.
func (c Cluster) Size() int { return len(c.Members) }

// ClusterSet is the result of one clustering pass for a threshold band.
type ClusterSet struct {
	Altitude    float64   `json:"altitude"`
	Band        int       `json:"band"`
	ThresholdKm float64   `json:"threshold_km"`
	Version     uint64    `json:"version"`
	Clusters    []Cluster `json:"clusters"`
}

// SelectionKind tells the caller what to do with an activated cluster.
type SelectionKind string

const (
	SelectionNavigate  SelectionKind = "navigate"
	SelectionDrilldown SelectionKind = "drilldown"
)

// SelectionResult is the decision taken when a cluster marker is activated.
// Notice is set for a navigate result whose member has no detail page.
type SelectionResult struct {
	Kind     SelectionKind `json:"kind"`
	MemberID string        `json:"member_id,omitempty"`
	Slug     string        `json:"slug,omitempty"`
	Notice   string        `json:"notice,omitempty"`
	Members  []GeoPoint    `json:"members,omitempty"`
}

// DrillDownPin is one marker of the drill-down map.
type DrillDownPin struct {
	Point        GeoPoint `json:"point"`
	PreviewImage string   `json:"preview_image,omitempty"`
	Date         string   `json:"date,omitempty"`
}

// DrillDownView is the expanded map shown for a multi-member cluster.
// Pins are never clustered again.
type DrillDownView struct {
	CenterLat float64        `json:"center_lat"`
	CenterLng float64        `json:"center_lng"`
	Zoom      int            `json:"zoom"`
	Bounds    *Bounds        `json:"bounds,omitempty"`
	Pins      []DrillDownPin `json:"pins"`
}

// InteractionState is the camera controller's rotation state.
type InteractionState int

const (
	Rotating InteractionState = iota
	Paused
)

func (s InteractionState) String() string {
	switch s {
	case Rotating:
		return "rotating"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// InteractionKind is a user-input event coming from the rendering surface.
type InteractionKind string

const (
	PointerDown  InteractionKind = "pointer-down"
	TouchStart   InteractionKind = "touch-start"
	PointerEnter InteractionKind = "pointer-enter"
	PointerUp    InteractionKind = "pointer-up"
	TouchEnd     InteractionKind = "touch-end"
	PointerLeave InteractionKind = "pointer-leave"
)

// IsStart reports whether the event begins a user interaction.
func (k InteractionKind) IsStart() bool {
	return k == PointerDown || k == TouchStart || k == PointerEnter
}

// IsEnd reports whether the event ends a user interaction.
func (k InteractionKind) IsEnd() bool {
	return k == PointerUp || k == TouchEnd || k == PointerLeave
}

// ParseInteractionKind validates a wire value.
func ParseInteractionKind(s string) (InteractionKind, bool) {
	k := InteractionKind(s)
	if k.IsStart() || k.IsEnd() {
		return k, true
	}
	return "", false
}

// PointChangeKind tells whether perspectives were written or removed.
type PointChangeKind string

const (
	PointsSaved   PointChangeKind = "saved"
	PointsDeleted PointChangeKind = "deleted"
)

// PointChange is emitted by writers of the perspectives table.
type PointChange struct {
	Kind PointChangeKind `json:"kind"`
	IDs  []string        `json:"ids,omitempty"`
}
