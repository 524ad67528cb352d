package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/spatial"
)

// maxReportedViolations caps the nearest zones listed on a violation
const maxReportedViolations = 5

// ZoneSource provides the zones a user may be located in
type ZoneSource interface {
	ListVisibleZones(ctx context.Context, userID string, projectID *int64) ([]models.GeofenceZone, error)
	SuggestedZones(ctx context.Context, userID string, limit int) ([]models.GeofenceZone, error)
}

// GeofenceService evaluates locations against authorized zones
type GeofenceService struct {
	zones          ZoneSource
	suggestedLimit int
	now            func() time.Time
}

// NewGeofenceService creates a new geofence service
func NewGeofenceService(zones ZoneSource, suggestedLimit int) *GeofenceService {
	if suggestedLimit <= 0 {
		suggestedLimit = maxReportedViolations
	}
	return &GeofenceService{zones: zones, suggestedLimit: suggestedLimit, now: time.Now}
}

// WithClock replaces the time source used for zone time windows
func (s *GeofenceService) WithClock(now func() time.Time) *GeofenceService {
	s.now = now
	return s
}

// ValidateLocation reports whether (lat, lon) lies in at least one enforced zone visible to the user
func (s *GeofenceService) ValidateLocation(ctx context.Context, lat, lon float64, userID string, projectID *int64) (*models.ComplianceResult, error) {
	zones, err := s.zones.ListVisibleZones(ctx, userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}

	point := spatial.Point{Lat: lat, Lon: lon}
	result := &models.ComplianceResult{
		Location:   point,
		Zones:      []models.GeofenceZone{},
		Violations: []models.Violation{},
	}

	if len(zones) == 0 {
		result.Violations = append(result.Violations, models.Violation{
			Type:    models.ViolationNoZones,
			Message: "No authorized geofence zones are assigned to this user",
		})
		return result, nil
	}

	now := s.now()
	var outside []models.NearestZone
	enforced := 0
	nearest := math.Inf(1)

	for _, zone := range zones {
		if !ZoneEnforcedAt(zone, now) {
			continue
		}
		enforced++

		distance := DistanceToZone(point, zone)
		if distance < nearest {
			nearest = distance
		}
		if distance <= zone.BufferMeters {
			result.Zones = append(result.Zones, zone)
			continue
		}
		outside = append(outside, models.NearestZone{Zone: zone, Distance: distance})
	}

	// Every zone is outside its time window, nothing restricts the location right now
	if enforced == 0 {
		result.Compliant = true
		return result, nil
	}

	nearest = roundMeters(nearest)
	result.DistanceFromNearestZone = &nearest
	result.Compliant = len(result.Zones) > 0
	if result.Compliant {
		return result, nil
	}

	sort.Slice(outside, func(i, j int) bool { return outside[i].Distance < outside[j].Distance })
	if len(outside) > maxReportedViolations {
		outside = outside[:maxReportedViolations]
	}
	for _, o := range outside {
		d := roundMeters(o.Distance)
		result.Violations = append(result.Violations, models.Violation{
			Type:     models.ViolationOutsideZone,
			ZoneID:   o.Zone.ID,
			ZoneName: o.Zone.Name,
			Distance: d,
			Message:  fmt.Sprintf("Location is %.0fm outside zone %s", d, o.Zone.Name),
		})
	}
	return result, nil
}

// FindNearestZone returns the visible zone closest to (lat, lon), or nil when there are none
func (s *GeofenceService) FindNearestZone(ctx context.Context, lat, lon float64, userID string, projectID *int64) (*models.NearestZone, error) {
	zones, err := s.zones.ListVisibleZones(ctx, userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}

	point := spatial.Point{Lat: lat, Lon: lon}
	var nearest *models.NearestZone
	for _, zone := range zones {
		d := DistanceToZone(point, zone)
		if nearest == nil || d < nearest.Distance {
			nearest = &models.NearestZone{Zone: zone, Distance: d}
		}
	}
	if nearest != nil {
		nearest.Distance = roundMeters(nearest.Distance)
	}
	return nearest, nil
}

// SuggestedZones lists zones the user could move to
func (s *GeofenceService) SuggestedZones(ctx context.Context, userID string) ([]models.ZoneSummary, error) {
	zones, err := s.zones.SuggestedZones(ctx, userID, s.suggestedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load suggested zones: %w", err)
	}

	summaries := make([]models.ZoneSummary, 0, len(zones))
	for _, z := range zones {
		summaries = append(summaries, z.Summary())
	}
	return summaries, nil
}

// DistanceToZone returns meters from point to the zone boundary, 0 when inside
func DistanceToZone(point spatial.Point, zone models.GeofenceZone) float64 {
	switch zone.ZoneType {
	case models.ZoneTypePolygon:
		return spatial.DistanceToPolygon(point, zone.PolygonPoints)
	default:
		d := spatial.HaversineDistance(point.Lat, point.Lon, zone.CenterLat, zone.CenterLon) - zone.Radius
		return math.Max(0, d)
	}
}

// ZoneEnforcedAt reports whether the zone's time window covers t
func ZoneEnforcedAt(zone models.GeofenceZone, t time.Time) bool {
	r := zone.TimeRestrictions
	if r == nil {
		return true
	}

	if len(r.DaysOfWeek) > 0 {
		today := int(t.Weekday())
		found := false
		for _, d := range r.DaysOfWeek {
			if d == today {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	start, okStart := minuteOfDay(r.StartTime)
	end, okEnd := minuteOfDay(r.EndTime)
	if !okStart || !okEnd {
		return true
	}

	now := t.Hour()*60 + t.Minute()
	if start <= end {
		return now >= start && now < end
	}
	// Window wraps past midnight
	return now >= start || now < end
}

func minuteOfDay(hhmm string) (int, bool) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func roundMeters(d float64) float64 {
	return math.Round(d*100) / 100
}
