package service

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/models"
)

// Version check codes
const (
	CodeMissingVersion  = "MISSING_VERSION"
	CodeInvalidVersion  = "INVALID_VERSION"
	CodeVersionOutdated = "VERSION_OUTDATED"
)

// AppVersionCheck is the outcome of comparing the client version with the minimum
type AppVersionCheck struct {
	Compatible bool   `json:"compatible"`
	Version    string `json:"current_version,omitempty"`
	MinVersion string `json:"min_version"`
	Reason     string `json:"reason,omitempty"`
	Code       string `json:"code,omitempty"`
}

// DeviceRequirementCheck is the outcome of the device capability checks
type DeviceRequirementCheck struct {
	MeetsRequirements bool     `json:"meets_requirements"`
	Platform          string   `json:"platform,omitempty"`
	Issues            []string `json:"issues"`
}

// MobileGate decides whether a client app may use the mobile endpoints
type MobileGate struct {
	policy     config.MobilePolicy
	minVersion *semver.Version
}

// NewMobileGate parses the minimum app version from policy
func NewMobileGate(policy config.MobilePolicy) (*MobileGate, error) {
	min, err := semver.NewVersion(policy.MinAppVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid min app version %q: %w", policy.MinAppVersion, err)
	}
	return &MobileGate{policy: policy, minVersion: min}, nil
}

// Policy returns the mobile policy the gate enforces
func (g *MobileGate) Policy() config.MobilePolicy {
	return g.policy
}

// CheckAppVersion compares version against the configured minimum
func (g *MobileGate) CheckAppVersion(version string) AppVersionCheck {
	check := AppVersionCheck{Version: version, MinVersion: g.policy.MinAppVersion}
	if version == "" {
		check.Reason = "App version not provided"
		check.Code = CodeMissingVersion
		return check
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		check.Reason = "App version is not a valid version number"
		check.Code = CodeInvalidVersion
		return check
	}
	if v.LessThan(g.minVersion) {
		check.Reason = "App version is outdated"
		check.Code = CodeVersionOutdated
		return check
	}

	check.Compatible = true
	return check
}

// CheckDeviceRequirements verifies platform support, GPS capability and free storage
func (g *MobileGate) CheckDeviceRequirements(platform string, p models.Payload) DeviceRequirementCheck {
	check := DeviceRequirementCheck{Platform: platform, Issues: []string{}}

	if platform != "" && !g.platformSupported(platform) {
		check.Issues = append(check.Issues, fmt.Sprintf("Platform '%s' is not supported", platform))
	}

	if g.policy.GPSRequired {
		// An explicit device.has_gps wins over capabilities.gps
		noGPS := p.False("device.has_gps")
		if _, set := p.Lookup("device.has_gps"); !set {
			noGPS = p.False("capabilities.gps")
		}
		if noGPS {
			check.Issues = append(check.Issues, "GPS capability is required")
		}
	}

	if storage, ok := p.Float("device.available_storage_mb"); ok && storage < g.policy.MinStorageMB {
		check.Issues = append(check.Issues,
			fmt.Sprintf("Insufficient storage space (minimum %gMB required)", g.policy.MinStorageMB))
	}

	if g.policy.NetworkRequired && p.False("device.has_network") {
		check.Issues = append(check.Issues, "Network connection is required")
	}

	check.MeetsRequirements = len(check.Issues) == 0
	return check
}

func (g *MobileGate) platformSupported(platform string) bool {
	platform = strings.ToLower(platform)
	for _, p := range g.policy.SupportedPlatforms {
		if strings.ToLower(p) == platform {
			return true
		}
	}
	return false
}
