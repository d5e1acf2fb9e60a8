package clustering

// Threshold bands, highest altitude first. An altitude strictly greater
// than minAltitude selects the band; anything at or below the last band
// disables clustering.
var bands = [...]struct {
	minAltitude float64
	thresholdKm float64
}{
	{2, 200},
	{1.5, 100},
	{1, 50},
	{0.5, 20},
}

// BandCount is the number of distinct bands, including the unclustered one.
const BandCount = len(bands) + 1

// Band returns the band index for a camera altitude: 0 is the widest
// threshold, BandCount-1 means no clustering.
func Band(altitude float64) int {
	for i, b := range bands {
		if altitude > b.minAltitude {
			return i
		}
	}
	return len(bands)
}

// BandThresholdKm returns the clustering distance of a band index.
func BandThresholdKm(band int) float64 {
	if band < 0 {
		band = 0
	}
	if band >= len(bands) {
		return 0
	}
	return bands[band].thresholdKm
}

// ThresholdKm maps a camera altitude to a clustering distance in km.
// The mapping is a monotonic step function; 0 means every point is its
// own cluster.
func ThresholdKm(altitude float64) float64 {
	return BandThresholdKm(Band(altitude))
}
