package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// PolicyConfig holds every knob of the verification pipeline
type PolicyConfig struct {
	Enabled              bool               `yaml:"enabled"` // geofence violations checked at all
	GPS                  GPSPolicy          `yaml:"gps"`
	AntiSpoofing         AntiSpoofingPolicy `yaml:"anti_spoofing"`
	DeviceFingerprinting DevicePolicy       `yaml:"device_fingerprinting"`
	RateLimiting         RateLimitPolicy    `yaml:"rate_limiting"`
	Mobile               MobilePolicy       `yaml:"mobile"`
	Zones                ZonePolicy         `yaml:"zones"`
	AuditLogging         bool               `yaml:"audit_logging"`
}

// GPSPolicy bounds acceptable fixes
type GPSPolicy struct {
	MinAccuracy    float64       `yaml:"min_accuracy"`     // meters
	MaxAccuracy    float64       `yaml:"max_accuracy"`     // meters
	MaxLocationAge time.Duration `yaml:"max_location_age"` // e.g. 300s
}

// AntiSpoofingPolicy toggles the individual spoofing checks
type AntiSpoofingPolicy struct {
	Enabled                   bool          `yaml:"enabled"`
	CheckMockLocations        bool          `yaml:"check_mock_locations"`
	CheckDeveloperOptions     bool          `yaml:"check_developer_options"`
	CheckRootJailbreak        bool          `yaml:"check_root_jailbreak"`
	VerifyLocationConsistency bool          `yaml:"verify_location_consistency"`
	MaxSpeed                  float64       `yaml:"max_speed"` // m/s
	HistorySize               int           `yaml:"history_size"`
	HistoryTTL                time.Duration `yaml:"history_ttl"`
}

// DevicePolicy configures the per-user device registry
type DevicePolicy struct {
	Enabled            bool          `yaml:"enabled"`
	MaxDevicesPerUser  int           `yaml:"max_devices_per_user"`
	TrackDeviceChanges bool          `yaml:"track_device_changes"`
	TTL                time.Duration `yaml:"ttl"`
}

// RateLimitPolicy configures the per-user request window
type RateLimitPolicy struct {
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Window            time.Duration `yaml:"window"`
}

// MobilePolicy configures the mobile app gate
type MobilePolicy struct {
	MinAppVersion      string   `yaml:"min_app_version"`
	SupportedPlatforms []string `yaml:"supported_platforms"`
	GPSRequired        bool     `yaml:"gps_required"`
	MinStorageMB       float64  `yaml:"min_storage_mb"`
	NetworkRequired    bool     `yaml:"network_required"`
	AppDownloadURL     string   `yaml:"app_download_url"`
	MobileScopes       []string `yaml:"mobile_scopes"`
}

// ZonePolicy limits zone definitions and responses
type ZonePolicy struct {
	MaxPolygonPoints   int `yaml:"max_polygon_points"`
	SuggestedZoneLimit int `yaml:"suggested_zone_limit"`
}

// DefaultPolicy returns the stock pipeline settings
func DefaultPolicy() *PolicyConfig {
	return &PolicyConfig{
		Enabled: true,
		GPS: GPSPolicy{
			MinAccuracy:    50,
			MaxAccuracy:    500,
			MaxLocationAge: 300 * time.Second,
		},
		AntiSpoofing: AntiSpoofingPolicy{
			Enabled:                   true,
			CheckMockLocations:        true,
			CheckDeveloperOptions:     true,
			CheckRootJailbreak:        true,
			VerifyLocationConsistency: true,
			MaxSpeed:                  100,
			HistorySize:               10,
			HistoryTTL:                time.Hour,
		},
		DeviceFingerprinting: DevicePolicy{
			Enabled:            true,
			MaxDevicesPerUser:  3,
			TrackDeviceChanges: true,
			TTL:                30 * 24 * time.Hour,
		},
		RateLimiting: RateLimitPolicy{
			RequestsPerMinute: 60,
			Window:            time.Minute,
		},
		Mobile: MobilePolicy{
			MinAppVersion:      "1.0.0",
			SupportedPlatforms: []string{"ios", "android", "web"},
			GPSRequired:        true,
			MinStorageMB:       50,
			MobileScopes:       []string{"mobile:access", "timesheet:mobile", "geofence:access"},
		},
		Zones: ZonePolicy{
			MaxPolygonPoints:   50,
			SuggestedZoneLimit: 5,
		},
		AuditLogging: true,
	}
}

// LoadPolicy overlays the YAML file at path onto DefaultPolicy.
// An empty path returns the defaults.
func LoadPolicy(path string) (*PolicyConfig, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return policy, nil
}

// Validate rejects settings the pipeline cannot run with
func (p *PolicyConfig) Validate() error {
	var errs []error

	if p.GPS.MinAccuracy < 0 || p.GPS.MaxAccuracy < p.GPS.MinAccuracy {
		errs = append(errs, fmt.Errorf("gps accuracy bounds %g-%g are invalid", p.GPS.MinAccuracy, p.GPS.MaxAccuracy))
	}
	if p.GPS.MaxLocationAge <= 0 {
		errs = append(errs, errors.New("gps.max_location_age must be positive"))
	}
	if p.AntiSpoofing.MaxSpeed <= 0 {
		errs = append(errs, errors.New("anti_spoofing.max_speed must be positive"))
	}
	if p.AntiSpoofing.HistorySize < 1 {
		errs = append(errs, errors.New("anti_spoofing.history_size must be at least 1"))
	}
	if p.AntiSpoofing.HistoryTTL <= 0 {
		errs = append(errs, errors.New("anti_spoofing.history_ttl must be positive"))
	}
	if p.DeviceFingerprinting.TTL <= 0 {
		errs = append(errs, errors.New("device_fingerprinting.ttl must be positive"))
	}
	if p.DeviceFingerprinting.MaxDevicesPerUser < 1 {
		errs = append(errs, errors.New("device_fingerprinting.max_devices_per_user must be at least 1"))
	}
	if p.RateLimiting.RequestsPerMinute < 1 || p.RateLimiting.Window <= 0 {
		errs = append(errs, errors.New("rate_limiting needs a positive limit and window"))
	}
	if _, err := semver.NewVersion(p.Mobile.MinAppVersion); err != nil {
		errs = append(errs, fmt.Errorf("mobile.min_app_version: %w", err))
	}
	if p.Zones.MaxPolygonPoints < 3 {
		errs = append(errs, errors.New("zones.max_polygon_points must be at least 3"))
	}

	return errors.Join(errs...)
}
