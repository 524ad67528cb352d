package models

import "github.com/jengzang/geofence-verify/internal/spatial"

// Zone shapes
const (
	ZoneTypeCircular = "circular"
	ZoneTypePolygon  = "polygon"
)

// Zone categories accepted by the admin API
var ZoneCategories = []string{"project_site", "office", "warehouse", "restricted", "custom"}

// TimeRestrictions limits enforcement of a zone to a daily window.
// Days use time.Weekday numbering, 0 is Sunday.
type TimeRestrictions struct {
	StartTime  string `json:"start_time,omitempty" binding:"omitempty,datetime=15:04"`
	EndTime    string `json:"end_time,omitempty" binding:"omitempty,datetime=15:04"`
	DaysOfWeek []int  `json:"days_of_week,omitempty" binding:"omitempty,dive,gte=0,lte=6"`
}

// GeofenceZone is an authorized area, either a circle or a polygon
type GeofenceZone struct {
	ID                int64             `json:"id" db:"id"`
	Name              string            `json:"name" db:"name"`
	Description       string            `json:"description,omitempty" db:"description"`
	ZoneType          string            `json:"zone_type" db:"zone_type"`
	Category          string            `json:"category" db:"category"`
	CenterLat         float64           `json:"center_latitude" db:"center_latitude"`
	CenterLon         float64           `json:"center_longitude" db:"center_longitude"`
	Radius            float64           `json:"radius,omitempty" db:"radius"` // meters, circular only
	PolygonPoints     []spatial.Point   `json:"polygon_points,omitempty" db:"polygon_points"`
	BufferMeters      float64           `json:"buffer_meters" db:"buffer_meters"`
	ProjectID         *int64            `json:"project_id,omitempty" db:"project_id"`
	Active            bool              `json:"is_active" db:"is_active"`
	StrictEnforcement bool              `json:"strict_enforcement" db:"strict_enforcement"`
	TimeRestrictions  *TimeRestrictions `json:"time_restrictions,omitempty" db:"time_restrictions"`
	CreatedAt         int64             `json:"created_at" db:"created_at"` // Unix timestamp
	UpdatedAt         int64             `json:"updated_at" db:"updated_at"`
}

// ZoneSummary is the short form returned as a suggestion
type ZoneSummary struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	ZoneType  string  `json:"zone_type"`
	CenterLat float64 `json:"center_latitude"`
	CenterLon float64 `json:"center_longitude"`
	Radius    float64 `json:"radius,omitempty"`
}

// Summary returns the short form of the zone
func (z GeofenceZone) Summary() ZoneSummary {
	return ZoneSummary{
		ID:        z.ID,
		Name:      z.Name,
		ZoneType:  z.ZoneType,
		CenterLat: z.CenterLat,
		CenterLon: z.CenterLon,
		Radius:    z.Radius,
	}
}

// ZoneFilter represents query parameters for listing zones
type ZoneFilter struct {
	ProjectID *int64 `form:"project_id"`
	Active    *bool  `form:"active"`
	Category  string `form:"category"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// CreateZoneRequest is the admin payload for a new zone
type CreateZoneRequest struct {
	Name              string            `json:"name" binding:"required,max=255"`
	Description       string            `json:"description" binding:"max=1000"`
	ZoneType          string            `json:"zone_type" binding:"required,oneof=circular polygon"`
	Category          string            `json:"category" binding:"required,oneof=project_site office warehouse restricted custom"`
	CenterLat         *float64          `json:"center_latitude" binding:"omitempty,gte=-90,lte=90"`
	CenterLon         *float64          `json:"center_longitude" binding:"omitempty,gte=-180,lte=180"`
	Radius            float64           `json:"radius_meters" binding:"omitempty,gte=1,lte=50000"`
	PolygonPoints     []spatial.Point   `json:"polygon_coordinates" binding:"omitempty,min=3"`
	BufferMeters      float64           `json:"buffer_meters" binding:"gte=0,lte=1000"`
	ProjectID         *int64            `json:"project_id"`
	Active            *bool             `json:"is_active"`
	StrictEnforcement bool              `json:"strict_enforcement"`
	TimeRestrictions  *TimeRestrictions `json:"time_restrictions"`
}

// Violation describes a zone the location failed to satisfy
type Violation struct {
	Type     string  `json:"type"`
	ZoneID   int64   `json:"zone_id,omitempty"`
	ZoneName string  `json:"zone_name,omitempty"`
	Distance float64 `json:"distance"` // meters to the zone boundary
	Message  string  `json:"message"`
}

// Violation types
const (
	ViolationOutsideZone = "outside_zone"
	ViolationNoZones     = "no_zones"
)

// ComplianceResult is the outcome of evaluating a location against the visible zones
type ComplianceResult struct {
	Compliant               bool           `json:"compliant"`
	Location                spatial.Point  `json:"location"`
	Zones                   []GeofenceZone `json:"zones"`
	Violations              []Violation    `json:"violations"`
	DistanceFromNearestZone *float64       `json:"distance_from_nearest_zone,omitempty"`
}

// NearestZone pairs a zone with its distance from a point
type NearestZone struct {
	Zone     GeofenceZone `json:"zone"`
	Distance float64      `json:"distance"`
}

// AssignUserRequest adds a user to a project
type AssignUserRequest struct {
	UserID string `json:"user_id" binding:"required,max=255"`
}
