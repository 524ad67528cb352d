package service

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/geofence-verify/internal/models"
)

// LocationStrategy pulls a coordinate pair out of a payload
type LocationStrategy func(p models.Payload) (lat, lon float64, ok bool)

// KeyPair returns a strategy that reads latitude and longitude from two paths.
// Both values must be present and numeric.
func KeyPair(latKey, lonKey string) LocationStrategy {
	return func(p models.Payload) (float64, float64, bool) {
		lat, ok := p.Float(latKey)
		if !ok {
			return 0, 0, false
		}
		lon, ok := p.Float(lonKey)
		if !ok {
			return 0, 0, false
		}
		return lat, lon, true
	}
}

// DefaultLocationStrategies lists the key conventions mobile clients use, in priority order
func DefaultLocationStrategies() []LocationStrategy {
	return []LocationStrategy{
		KeyPair("latitude", "longitude"),
		KeyPair("lat", "lng"),
		KeyPair("lat", "lon"),
		KeyPair("location.latitude", "location.longitude"),
		KeyPair("location.lat", "location.lng"),
		KeyPair("gps.latitude", "gps.longitude"),
		KeyPair("gps_data.latitude", "gps_data.longitude"),
	}
}

// LocationExtractor normalizes heterogeneous request payloads into a LocationSample
type LocationExtractor struct {
	strategies []LocationStrategy
}

// NewLocationExtractor creates an extractor; with no strategies the defaults are used
func NewLocationExtractor(strategies ...LocationStrategy) *LocationExtractor {
	if len(strategies) == 0 {
		strategies = DefaultLocationStrategies()
	}
	return &LocationExtractor{strategies: strategies}
}

// Extract returns the first coordinate pair any strategy finds, plus the optional fix attributes
func (e *LocationExtractor) Extract(p models.Payload) (*models.LocationSample, bool) {
	for _, strategy := range e.strategies {
		lat, lon, ok := strategy(p)
		if !ok {
			continue
		}

		return &models.LocationSample{
			Latitude:  lat,
			Longitude: lon,
			Accuracy:  optionalFloat(p, "accuracy"),
			Timestamp: optionalTime(p, "timestamp"),
			Altitude:  optionalFloat(p, "altitude"),
			Heading:   optionalFloat(p, "heading"),
			Speed:     optionalFloat(p, "speed"),
		}, true
	}
	return nil, false
}

// optionalFloat reads key at the top level, then under gps
func optionalFloat(p models.Payload, key string) *float64 {
	for _, path := range []string{key, "gps." + key} {
		if v, ok := p.Float(path); ok {
			return &v
		}
	}
	return nil
}

func optionalTime(p models.Payload, key string) *time.Time {
	for _, path := range []string{key, "gps." + key} {
		if _, ok := p.Lookup(path); !ok {
			continue
		}
		if v, ok := p.Float(path); ok {
			t := unixTime(v)
			return &t
		}
		if t, ok := parseTimestamp(p.String(path)); ok {
			return &t
		}
		// Present but unreadable, ignore like an absent timestamp
		return nil
	}
	return nil
}

// unixTime accepts seconds or milliseconds since the epoch
func unixTime(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v))
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9))
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return unixTime(v), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
