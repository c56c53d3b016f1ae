package geo

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/sells-group/ctmap/internal/model"
)

// EarthRadiusMiles is the mean Earth radius used by DistanceMiles.
const EarthRadiusMiles = 3959.0

// Origin is the default trip origin: 95 Main Street, Stonington, CT.
var Origin = model.Coordinate{Lat: 41.3387, Lng: -71.9076}

// DistanceMiles returns the Haversine great-circle distance in miles.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lng1)
	b := s2.LatLngFromDegrees(lat2, lng2)
	return EarthRadiusMiles * a.Distance(b).Radians()
}

// Between is DistanceMiles for two coordinates.
func Between(a, b model.Coordinate) float64 {
	return DistanceMiles(a.Lat, a.Lng, b.Lat, b.Lng)
}

// EstimateETAMinutes estimates driving time from the speed tier, rounded to
// the nearest 5 minutes.
func EstimateETAMinutes(distanceMiles float64) int {
	if distanceMiles <= 0 {
		return 0
	}
	minutes := distanceMiles / SpeedTierMPH(distanceMiles) * 60
	return int(math.Round(minutes/5) * 5)
}

// RoundMiles rounds a distance to one decimal place.
func RoundMiles(d float64) float64 {
	return math.Round(d*10) / 10
}

// Metrics holds a recomputed distance and ETA.
type Metrics struct {
	Distance float64 `json:"distance"`
	ETA      int     `json:"eta"`
}

// MetricsFrom computes rounded distance and ETA from origin to dest.
func MetricsFrom(origin, dest model.Coordinate) Metrics {
	d := Between(origin, dest)
	return Metrics{Distance: RoundMiles(d), ETA: EstimateETAMinutes(d)}
}
