package geospatial

import "math"

// EarthRadiusKm is the mean Earth radius used for all proximity comparisons.
const EarthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in kilometres between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// BoundingBox returns a bounding box around a point with the given radius in
// kilometres, clamped to [-90, 90] and [-180, 180]. Near a pole, where a
// degree of longitude shrinks to nothing, the box spans every longitude.
func BoundingBox(lat, lng, radiusKm float64) (minLat, minLng, maxLat, maxLng float64) {
	latDelta := radiusKm / 111.32
	minLat = math.Max(lat-latDelta, -90)
	maxLat = math.Min(lat+latDelta, 90)

	cos := math.Cos(toRad(lat))
	if cos <= 0 || radiusKm/(111.32*cos) >= 180 {
		return minLat, -180, maxLat, 180
	}
	lngDelta := radiusKm / (111.32 * cos)
	return minLat, math.Max(lng-lngDelta, -180), maxLat, math.Min(lng+lngDelta, 180)
}

// WrapDegrees maps an angle onto [0, 360).
func WrapDegrees(deg float64) float64 {
	w := math.Mod(deg, 360)
	if w < 0 {
		w += 360
	}
	// a tiny negative input rounds up to exactly 360
	if w >= 360 {
		w = 0
	}
	return w
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
