package spatial

import (
	"math"
)

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// Centroid calculates the geographic centroid of a set of points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	return Point{
		Lat: sumLat / float64(len(points)),
		Lon: sumLon / float64(len(points)),
	}
}

// BoundingBox calculates the bounding box of a set of points
// Returns (minLat, minLon, maxLat, maxLon)
func BoundingBox(points []Point) (float64, float64, float64, float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}

	minLat, maxLat := points[0].Lat, points[0].Lat
	minLon, maxLon := points[0].Lon, points[0].Lon

	for _, p := range points[1:] {
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}

	return minLat, minLon, maxLat, maxLon
}

// PointInPolygon checks if a point is inside a polygon using ray casting
func PointInPolygon(point Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}

	minLat, minLon, maxLat, maxLon := BoundingBox(polygon)
	if point.Lat < minLat || point.Lat > maxLat || point.Lon < minLon || point.Lon > maxLon {
		return false
	}

	inside := false
	j := len(polygon) - 1

	for i := 0; i < len(polygon); i++ {
		if ((polygon[i].Lat > point.Lat) != (polygon[j].Lat > point.Lat)) &&
			(point.Lon < (polygon[j].Lon-polygon[i].Lon)*(point.Lat-polygon[i].Lat)/(polygon[j].Lat-polygon[i].Lat)+polygon[i].Lon) {
			inside = !inside
		}
		j = i
	}

	return inside
}

// DistanceToPolygon returns the distance in meters from point to the nearest polygon edge.
// Points inside the polygon return 0.
func DistanceToPolygon(point Point, polygon []Point) float64 {
	switch len(polygon) {
	case 0:
		return math.Inf(1)
	case 1:
		return HaversineDistance(point.Lat, point.Lon, polygon[0].Lat, polygon[0].Lon)
	}
	if PointInPolygon(point, polygon) {
		return 0
	}

	best := math.Inf(1)
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		if d := distanceToSegment(point, polygon[j], polygon[i]); d < best {
			best = d
		}
		j = i
	}
	return best
}

// distanceToSegment projects onto a local equirectangular plane centred on point.
// Accurate for zone-sized segments.
func distanceToSegment(point, a, b Point) float64 {
	cosLat := math.Cos(point.Lat * math.Pi / 180)
	metersPerDegree := EarthRadiusMeters * math.Pi / 180

	ax := (a.Lon - point.Lon) * cosLat * metersPerDegree
	ay := (a.Lat - point.Lat) * metersPerDegree
	bx := (b.Lon - point.Lon) * cosLat * metersPerDegree
	by := (b.Lat - point.Lat) * metersPerDegree

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(ax, ay)
	}

	// Parameter of the projection of the origin onto the segment
	t := -(ax*dx + ay*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(ax+t*dx, ay+t*dy)
}
