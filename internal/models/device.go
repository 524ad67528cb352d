package models

import "time"

// DeviceFingerprint identifies a returning device
type DeviceFingerprint struct {
	UserAgent        string `json:"user_agent"`
	Platform         string `json:"platform"`
	Model            string `json:"model"`
	OSVersion        string `json:"os_version"`
	AppVersion       string `json:"app_version"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
}

// DeviceRecord is a device registered to a user
type DeviceRecord struct {
	DeviceID     string            `json:"device_id"`
	RegisteredAt time.Time         `json:"registered_at"`
	Fingerprint  DeviceFingerprint `json:"device_info"`
	LastSeen     time.Time         `json:"last_seen"`
}

// FieldChange is one drifted fingerprint field
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// DeviceResult is the outcome of the device registry check
type DeviceResult struct {
	Valid    bool                   `json:"valid"`
	DeviceID string                 `json:"device_id,omitempty"`
	Checks   map[string]bool        `json:"checks"`
	Reason   string                 `json:"reason,omitempty"`
	Changes  map[string]FieldChange `json:"changes,omitempty"`
}
