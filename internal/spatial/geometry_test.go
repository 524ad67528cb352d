package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var square = []Point{
	{Lat: 40.7120, Lon: -74.0070},
	{Lat: 40.7130, Lon: -74.0070},
	{Lat: 40.7130, Lon: -74.0050},
	{Lat: 40.7120, Lon: -74.0050},
}

func TestPointInPolygon(t *testing.T) {
	assert.True(t, PointInPolygon(Point{Lat: 40.7125, Lon: -74.0060}, square))
	assert.False(t, PointInPolygon(Point{Lat: 40.7200, Lon: -74.0060}, square))
	assert.False(t, PointInPolygon(Point{Lat: 40.7125, Lon: -74.0060}, square[:2]))
}

func TestDistanceToPolygon(t *testing.T) {
	assert.Equal(t, 0.0, DistanceToPolygon(Point{Lat: 40.7125, Lon: -74.0060}, square))

	// 0.0010 degrees of latitude north of the top edge is about 111 m
	d := DistanceToPolygon(Point{Lat: 40.7140, Lon: -74.0060}, square)
	assert.InDelta(t, 111, d, 2)
}

func TestCentroid(t *testing.T) {
	c := Centroid(square)
	assert.InDelta(t, 40.7125, c.Lat, 1e-9)
	assert.InDelta(t, -74.0060, c.Lon, 1e-9)
	assert.Equal(t, Point{}, Centroid(nil))
}
