package domain

import "math"

// GeoPoint is a geo-tagged entry plotted on the globe (WGS 84).
// Lat is in [-90, 90] and Lng in [-180, 180]; Payload is display metadata
// the clustering and camera code never look at.
type GeoPoint struct {
	ID      string      `json:"id"`
	Lat     float64     `json:"lat"`
	Lng     float64     `json:"lng"`
	Payload Perspective `json:"payload"`
}

// Valid reports whether the coordinates are finite and inside WGS 84 range.
func (p GeoPoint) Valid() bool {
	return ValidCoordinates(p.Lat, p.Lng)
}

// Sanitized returns p with malformed coordinates replaced by (0, 0).
// The boolean is false when a replacement happened.
func (p GeoPoint) Sanitized() (GeoPoint, bool) {
	if p.Valid() {
		return p, true
	}
	p.Lat, p.Lng = 0, 0
	return p, false
}

// ValidCoordinates reports whether lat/lng are finite and in range.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// CameraOrientation is the globe camera's point of view.
type CameraOrientation struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Altitude float64 `json:"altitude"`
}
