package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrNoLocation is returned when an address has no usable coordinates
var ErrNoLocation = errors.New("geoip: no location for address")

// Location is the coarse position of a client address
type Location struct {
	CountryCode string  `json:"country_code"`
	City        string  `json:"city,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AccuracyKm  uint16  `json:"accuracy_km"`
}

// Locator resolves client IPs to coarse locations
type Locator interface {
	Lookup(ip string) (*Location, error)
	Close() error
}

// MaxMindLocator reads a GeoLite2/GeoIP2 City database
type MaxMindLocator struct {
	reader *geoip2.Reader
}

// Open loads the City database at path
func Open(path string) (*MaxMindLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &MaxMindLocator{reader: reader}, nil
}

// Lookup resolves ip
func (l *MaxMindLocator) Lookup(ip string) (*Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("invalid ip %q", ip)
	}
	if parsed.IsLoopback() || parsed.IsPrivate() {
		return nil, ErrNoLocation
	}

	record, err := l.reader.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", ip, err)
	}
	if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return nil, ErrNoLocation
	}

	return &Location{
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		Latitude:    record.Location.Latitude,
		Longitude:   record.Location.Longitude,
		AccuracyKm:  record.Location.AccuracyRadius,
	}, nil
}

// Close releases the database
func (l *MaxMindLocator) Close() error {
	return l.reader.Close()
}

// NopLocator is used when no database is configured
type NopLocator struct{}

// Lookup always reports no location
func (NopLocator) Lookup(string) (*Location, error) { return nil, ErrNoLocation }

// Close does nothing
func (NopLocator) Close() error { return nil }
