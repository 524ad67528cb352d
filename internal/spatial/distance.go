package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)

// HaversineDistance calculates the great-circle distance between two points in meters
// using the Haversine formula. Swapping the points gives the identical result.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)

	sinDLat := math.Sin((p2.Lat - p1.Lat).Radians() / 2)
	sinDLon := math.Sin((p2.Lng - p1.Lng).Radians() / 2)
	cosLats := math.Cos(p1.Lat.Radians()) * math.Cos(p2.Lat.Radians())

	a := sinDLat*sinDLat + cosLats*(sinDLon*sinDLon)
	return 2 * math.Asin(math.Sqrt(math.Min(1, a))) * EarthRadiusMeters
}

// HaversineDistanceKm is HaversineDistance in kilometers
func HaversineDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineDistance(lat1, lon1, lat2, lon2) / 1000
}

// DestinationPoint calculates the destination point given a start point, bearing, and distance
// bearing: degrees (0-360), distance: meters
func DestinationPoint(lat, lon, bearing, distance float64) (float64, float64) {
	p := s2.LatLngFromDegrees(lat, lon)
	bearingRad := bearing * math.Pi / 180
	angularDistance := distance / EarthRadiusMeters

	latRad := p.Lat.Radians()
	lonRad := p.Lng.Radians()

	lat2 := math.Asin(math.Sin(latRad)*math.Cos(angularDistance) +
		math.Cos(latRad)*math.Sin(angularDistance)*math.Cos(bearingRad))

	lon2 := lonRad + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angularDistance)*math.Cos(latRad),
		math.Cos(angularDistance)-math.Sin(latRad)*math.Sin(lat2))

	return lat2 * 180 / math.Pi, lon2 * 180 / math.Pi
}

// Speed returns the implied speed in m/s between two fixes taken elapsedSeconds apart.
// Zero or negative elapsed time yields 0.
func Speed(lat1, lon1, lat2, lon2, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return HaversineDistance(lat1, lon1, lat2, lon2) / elapsedSeconds
}

// ValidLatitude reports whether lat lies in [-90, 90]
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lon lies in [-180, 180]
func ValidLongitude(lon float64) bool {
	return !math.IsNaN(lon) && lon >= -180 && lon <= 180
}
