package models

import (
	"time"

	"github.com/jengzang/geofence-verify/internal/stats"
)

// LocationSample is a normalized GPS fix taken from a request
type LocationSample struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Accuracy  *float64   `json:"accuracy,omitempty"` // meters
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Altitude  *float64   `json:"altitude,omitempty"`
	Heading   *float64   `json:"heading,omitempty"`
	Speed     *float64   `json:"speed,omitempty"`
}

// LocationHistoryEntry is one fix kept for the movement consistency check
type LocationHistoryEntry struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// LocationHistory is the user's recent fixes with the implied speeds between them (m/s)
type LocationHistory struct {
	Entries []LocationHistoryEntry `json:"entries"`
	Speed   stats.Summary          `json:"speed"`
}

// ValidationResult lists every problem found in a sample.
// Advisory is set when every error is a soft one (GPS accuracy).
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Advisory bool     `json:"advisory,omitempty"`
}

// ValidateLocationRequest is the body of an explicit compliance check
type ValidateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	ProjectID *int64   `json:"project_id"`
}

// NearestZoneQuery represents query parameters for the nearest zone lookup
type NearestZoneQuery struct {
	Latitude  *float64 `form:"lat" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `form:"lng" binding:"required,gte=-180,lte=180"`
	ProjectID *int64   `form:"project_id"`
}
