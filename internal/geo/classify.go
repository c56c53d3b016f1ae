// Package geo provides great-circle distance, travel-time estimates, static
// coordinate resolution, and the GeoJSON map feed.
package geo

// Speed tiers (mph) used for travel-time estimates.
const (
	SpeedLocal  = 25.0
	SpeedMedium = 35.0
	SpeedLong   = 45.0
)

// Distance thresholds for tier classification (miles).
const (
	localTierMaxMiles  = 5.0
	mediumTierMaxMiles = 20.0
)

// SpeedTierMPH returns the assumed average speed for a trip of the given length.
// Rules:
//   - local: distance <= 5mi, 25 mph (traffic, lights)
//   - medium: distance <= 20mi, 35 mph
//   - long: anything farther, 45 mph (mostly highway)
func SpeedTierMPH(distanceMiles float64) float64 {
	switch {
	case distanceMiles <= localTierMaxMiles:
		return SpeedLocal
	case distanceMiles <= mediumTierMaxMiles:
		return SpeedMedium
	default:
		return SpeedLong
	}
}
