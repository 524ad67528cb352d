package models

import "time"

// SecurityResult is the outcome of the anti-spoofing checks
type SecurityResult struct {
	Passed bool            `json:"passed"`
	Checks map[string]bool `json:"checks"`
	Issues []string        `json:"issues"`
}

// PatternResult is the outcome of the request pattern checks
type PatternResult struct {
	Safe   bool            `json:"safe"`
	Checks map[string]bool `json:"checks"`
	Issues []string        `json:"issues"`
}

// GeofenceData is attached to a request that passed the geofence check
type GeofenceData struct {
	Location   LocationSample    `json:"location"`
	Compliance *ComplianceResult `json:"compliance"`
	Zones      []GeofenceZone    `json:"zones"`
	VerifiedAt time.Time         `json:"verified_at"`
	Warning    bool              `json:"warning,omitempty"`
}

// SecurityVerification is attached to a request that passed device and anti-spoofing checks
type SecurityVerification struct {
	VerifiedAt    time.Time       `json:"verified_at"`
	DeviceID      string          `json:"device_id,omitempty"`
	SecurityScore int             `json:"security_score"`
	ChecksPassed  map[string]bool `json:"checks_passed"`
}

// MobileContext is attached by the mobile auth middleware
type MobileContext struct {
	AuthenticatedAt time.Time `json:"authenticated_at"`
	UserID          string    `json:"user_id"`
	AppVersion      string    `json:"app_version"`
	Platform        string    `json:"platform,omitempty"`
	DeviceID        string    `json:"device_id,omitempty"`
	SessionID       string    `json:"session_id"`
}

// User is the authenticated principal taken from the bearer token
type User struct {
	ID     string   `json:"id"`
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope reports whether the user's token grants scope
func (u *User) HasScope(scope string) bool {
	for _, s := range u.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
