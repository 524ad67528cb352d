package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/repository"
	"github.com/jengzang/geofence-verify/internal/spatial"
)

// ValidationError is a rejected zone definition
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ZoneService handles business logic for zone administration
type ZoneService struct {
	repo     *repository.ZoneRepository
	projects *repository.ProjectRepository
	policy   config.ZonePolicy
}

// NewZoneService creates a new zone service
func NewZoneService(repo *repository.ZoneRepository, projects *repository.ProjectRepository, policy config.ZonePolicy) *ZoneService {
	return &ZoneService{repo: repo, projects: projects, policy: policy}
}

// CreateZone validates and stores a zone
func (s *ZoneService) CreateZone(ctx context.Context, req models.CreateZoneRequest) (*models.GeofenceZone, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.NameExists(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &ValidationError{Field: "name", Message: "A geofence zone with this name already exists."}
	}

	zone := &models.GeofenceZone{
		Name:              req.Name,
		Description:       req.Description,
		ZoneType:          req.ZoneType,
		Category:          req.Category,
		BufferMeters:      req.BufferMeters,
		ProjectID:         req.ProjectID,
		Active:            req.Active == nil || *req.Active,
		StrictEnforcement: req.StrictEnforcement,
		TimeRestrictions:  req.TimeRestrictions,
	}

	switch req.ZoneType {
	case models.ZoneTypeCircular:
		zone.Radius = req.Radius
	case models.ZoneTypePolygon:
		zone.PolygonPoints = req.PolygonPoints
	}
	if req.CenterLat != nil && req.CenterLon != nil {
		zone.CenterLat, zone.CenterLon = *req.CenterLat, *req.CenterLon
	} else {
		c := spatial.Centroid(req.PolygonPoints)
		zone.CenterLat, zone.CenterLon = c.Lat, c.Lon
	}

	if err := s.repo.Create(ctx, zone); err != nil {
		return nil, fmt.Errorf("failed to create zone: %w", err)
	}
	return zone, nil
}

// validate checks a zone definition. Polygon zones may omit the center.
func (s *ZoneService) validate(req models.CreateZoneRequest) error {
	centerRequired := req.ZoneType != models.ZoneTypePolygon
	if (req.CenterLat == nil && centerRequired) || (req.CenterLat != nil && !spatial.ValidLatitude(*req.CenterLat)) {
		return &ValidationError{Field: "center_latitude", Message: "The center latitude must be between -90 and 90 degrees."}
	}
	if (req.CenterLon == nil && centerRequired) || (req.CenterLon != nil && !spatial.ValidLongitude(*req.CenterLon)) {
		return &ValidationError{Field: "center_longitude", Message: "The center longitude must be between -180 and 180 degrees."}
	}

	switch req.ZoneType {
	case models.ZoneTypeCircular:
		if req.Radius < 1 || req.Radius > 50000 {
			return &ValidationError{Field: "radius_meters", Message: "The radius must be between 1 and 50,000 meters."}
		}
	case models.ZoneTypePolygon:
		if len(req.PolygonPoints) < 3 {
			return &ValidationError{Field: "polygon_coordinates", Message: "A polygon must have at least 3 coordinate points."}
		}
		if len(req.PolygonPoints) > s.policy.MaxPolygonPoints {
			return &ValidationError{Field: "polygon_coordinates",
				Message: fmt.Sprintf("A polygon may have at most %d coordinate points.", s.policy.MaxPolygonPoints)}
		}
		for _, p := range req.PolygonPoints {
			if !spatial.ValidLatitude(p.Lat) || !spatial.ValidLongitude(p.Lon) {
				return &ValidationError{Field: "polygon_coordinates", Message: "Each polygon point must be a valid coordinate."}
			}
		}
	default:
		return &ValidationError{Field: "zone_type", Message: "The zone type must be circular or polygon."}
	}

	if r := req.TimeRestrictions; r != nil && r.StartTime != "" && r.EndTime != "" {
		start, okStart := minuteOfDay(r.StartTime)
		end, okEnd := minuteOfDay(r.EndTime)
		if !okStart || !okEnd {
			return &ValidationError{Field: "time_restrictions", Message: "Times must be in HH:MM format."}
		}
		if end <= start {
			return &ValidationError{Field: "time_restrictions.end_time", Message: "The end time must be after the start time."}
		}
	}
	return nil
}

// ListZones returns zones with pagination
func (s *ZoneService) ListZones(ctx context.Context, filter models.ZoneFilter) ([]models.GeofenceZone, int64, error) {
	return s.repo.List(ctx, filter)
}

// GetZone returns a zone or repository.ErrZoneNotFound
func (s *ZoneService) GetZone(ctx context.Context, id int64) (*models.GeofenceZone, error) {
	return s.repo.GetByID(ctx, id)
}

// ToggleZone flips a zone's active flag and returns the updated zone
func (s *ZoneService) ToggleZone(ctx context.Context, id int64) (*models.GeofenceZone, error) {
	zone, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, !zone.Active); err != nil {
		return nil, err
	}
	zone.Active = !zone.Active
	return zone, nil
}

// DeleteZone removes a zone
func (s *ZoneService) DeleteZone(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// AssignUser makes the project's zones visible to the user
func (s *ZoneService) AssignUser(ctx context.Context, projectID int64, userID string) error {
	if userID == "" {
		return &ValidationError{Field: "user_id", Message: "The user id is required."}
	}
	return s.projects.Assign(ctx, userID, projectID)
}

// UnassignUser hides the project's zones from the user
func (s *ZoneService) UnassignUser(ctx context.Context, projectID int64, userID string) error {
	return s.projects.Unassign(ctx, userID, projectID)
}

// UserProjects lists the projects whose zones the user can see
func (s *ZoneService) UserProjects(ctx context.Context, userID string) ([]int64, error) {
	ids, err := s.projects.ProjectIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// IsValidationError reports whether err is a rejected zone definition
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
