package geospatial

import (
	"math"
	"testing"
)

func TestHaversine_SamePoint(t *testing.T) {
	if d := Haversine(43.263, -2.935, 43.263, -2.935); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestHaversine_OneDegreeAtEquator(t *testing.T) {
	d := Haversine(0, 0, 0, 1)
	// 2*pi*6371/360
	if math.Abs(d-111.195) > 0.01 {
		t.Errorf("expected ~111.195 km, got %f", d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Haversine(48.8566, 2.3522, 40.7128, -74.0060)
	b := Haversine(40.7128, -74.0060, 48.8566, 2.3522)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("expected symmetric distance, got %f and %f", a, b)
	}
	if a < 5800 || a > 5900 {
		t.Errorf("Paris-New York should be ~5837 km, got %f", a)
	}
}

func TestBoundingBox_ContainsPoint(t *testing.T) {
	minLat, minLng, maxLat, maxLng := BoundingBox(10, 20, 50)
	if !(minLat < 10 && maxLat > 10 && minLng < 20 && maxLng > 20) {
		t.Errorf("box does not contain center: %f %f %f %f", minLat, minLng, maxLat, maxLng)
	}
}

func TestWrapDegrees(t *testing.T) {
	cases := map[float64]float64{
		0:      0,
		359.9:  359.9,
		360:    0,
		361.5:  1.5,
		-10:    350,
		-720.5: 359.5,
	}
	for in, want := range cases {
		if got := WrapDegrees(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("WrapDegrees(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestBoundingBox_ClampedNearPoles(t *testing.T) {
	cases := []struct {
		name     string
		lat, lng float64
	}{
		{"near north pole", 89.99, 10},
		{"north pole", 90, 10},
		{"south pole", -90, -170},
		{"antimeridian", 0, 179.99},
	}
	for _, tc := range cases {
		minLat, minLng, maxLat, maxLng := BoundingBox(tc.lat, tc.lng, 5)
		if minLat < -90 || maxLat > 90 || minLng < -180 || maxLng > 180 {
			t.Errorf("%s: box out of range: %f %f %f %f", tc.name, minLat, minLng, maxLat, maxLng)
		}
		if minLat > tc.lat || maxLat < tc.lat {
			t.Errorf("%s: box lost the center latitude: %f..%f", tc.name, minLat, maxLat)
		}
	}

	_, minLng, _, maxLng := BoundingBox(90, 10, 5)
	if minLng != -180 || maxLng != 180 {
		t.Errorf("expected every longitude at the pole, got %f..%f", minLng, maxLng)
	}
}

func TestWrapDegrees_TinyNegativeStaysBelow360(t *testing.T) {
	for _, in := range []float64{-1e-20, -1e-15, math.Copysign(0, -1)} {
		if got := WrapDegrees(in); got < 0 || got >= 360 {
			t.Errorf("WrapDegrees(%v) = %v, outside [0, 360)", in, got)
		}
	}
}
