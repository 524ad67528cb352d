package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jengzang/geofence-verify/internal/models"
)

// ErrZoneNotFound is returned when a zone id does not exist
var ErrZoneNotFound = errors.New("geofence zone not found")

const zoneColumns = `id, name, description, zone_type, category, center_latitude, center_longitude,
	radius, polygon_points, buffer_meters, project_id, is_active, strict_enforcement,
	time_restrictions, created_at, updated_at`

// ZoneRepository handles database operations for geofence zones
type ZoneRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewZoneRepository creates a new zone repository
func NewZoneRepository(db *sql.DB) *ZoneRepository {
	return &ZoneRepository{db: db, now: time.Now}
}

// ListVisibleZones returns active zones that are global or belong to one of the user's projects.
// A non-nil projectID narrows project zones to that project; global zones stay visible.
func (r *ZoneRepository) ListVisibleZones(ctx context.Context, userID string, projectID *int64) ([]models.GeofenceZone, error) {
	query, args := visibleZonesQuery(userID, projectID)
	query += " ORDER BY id"
	return r.queryZones(ctx, query, args...)
}

// SuggestedZones returns up to limit zones the user may work in
func (r *ZoneRepository) SuggestedZones(ctx context.Context, userID string, limit int) ([]models.GeofenceZone, error) {
	query, args := visibleZonesQuery(userID, nil)
	query += " ORDER BY id LIMIT ?"
	args = append(args, limit)
	return r.queryZones(ctx, query, args...)
}

func visibleZonesQuery(userID string, projectID *int64) (string, []interface{}) {
	query := `SELECT ` + zoneColumns + ` FROM geofence_zones
		WHERE is_active = 1
		AND (project_id IS NULL OR project_id IN (SELECT project_id FROM user_projects WHERE user_id = ?))`
	args := []interface{}{userID}

	if projectID != nil {
		query += " AND (project_id IS NULL OR project_id = ?)"
		args = append(args, *projectID)
	}
	return query, args
}

// List retrieves zones with filtering and pagination
func (r *ZoneRepository) List(ctx context.Context, filter models.ZoneFilter) ([]models.GeofenceZone, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.Active != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *filter.Active)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM geofence_zones"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count zones: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}
	if filter.PageSize > 500 {
		filter.PageSize = 500
	}

	offset := (filter.Page - 1) * filter.PageSize
	query := "SELECT " + zoneColumns + " FROM geofence_zones" + where + " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	zones, err := r.queryZones(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return zones, total, nil
}

// GetByID retrieves a single zone
func (r *ZoneRepository) GetByID(ctx context.Context, id int64) (*models.GeofenceZone, error) {
	zones, err := r.queryZones(ctx, "SELECT "+zoneColumns+" FROM geofence_zones WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, ErrZoneNotFound
	}
	return &zones[0], nil
}

// Create inserts a zone and fills in its id and timestamps
func (r *ZoneRepository) Create(ctx context.Context, zone *models.GeofenceZone) error {
	polygon, restrictions, err := encodeZoneJSON(zone)
	if err != nil {
		return err
	}

	now := r.now().Unix()
	result, err := r.db.ExecContext(ctx, `INSERT INTO geofence_zones
		(name, description, zone_type, category, center_latitude, center_longitude, radius,
		polygon_points, buffer_meters, project_id, is_active, strict_enforcement,
		time_restrictions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		zone.Name, zone.Description, zone.ZoneType, zone.Category, zone.CenterLat, zone.CenterLon, zone.Radius,
		polygon, zone.BufferMeters, zone.ProjectID, zone.Active, zone.StrictEnforcement,
		restrictions, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert zone: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read zone id: %w", err)
	}

	zone.ID = id
	zone.CreatedAt = now
	zone.UpdatedAt = now
	return nil
}

// SetActive toggles a zone on or off
func (r *ZoneRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE geofence_zones SET is_active = ?, updated_at = ? WHERE id = ?",
		active, r.now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update zone %d: %w", id, err)
	}
	return requireAffected(result, id)
}

// Delete removes a zone
func (r *ZoneRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM geofence_zones WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete zone %d: %w", id, err)
	}
	return requireAffected(result, id)
}

// NameExists reports whether a zone with the given name is stored
func (r *ZoneRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM geofence_zones WHERE name = ?", name).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check zone name: %w", err)
	}
	return n > 0, nil
}

func requireAffected(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("zone %d: %w", id, ErrZoneNotFound)
	}
	return nil
}

func (r *ZoneRepository) queryZones(ctx context.Context, query string, args ...interface{}) ([]models.GeofenceZone, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	var zones []models.GeofenceZone
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate zones: %w", err)
	}
	return zones, nil
}

func scanZone(rows *sql.Rows) (models.GeofenceZone, error) {
	var z models.GeofenceZone
	var polygon, restrictions sql.NullString
	var projectID sql.NullInt64

	err := rows.Scan(
		&z.ID, &z.Name, &z.Description, &z.ZoneType, &z.Category, &z.CenterLat, &z.CenterLon,
		&z.Radius, &polygon, &z.BufferMeters, &projectID, &z.Active, &z.StrictEnforcement,
		&restrictions, &z.CreatedAt, &z.UpdatedAt,
	)
	if err != nil {
		return z, fmt.Errorf("failed to scan zone: %w", err)
	}

	if projectID.Valid {
		id := projectID.Int64
		z.ProjectID = &id
	}
	if polygon.Valid && polygon.String != "" {
		if err := json.Unmarshal([]byte(polygon.String), &z.PolygonPoints); err != nil {
			return z, fmt.Errorf("failed to decode polygon of zone %d: %w", z.ID, err)
		}
	}
	if restrictions.Valid && restrictions.String != "" {
		z.TimeRestrictions = &models.TimeRestrictions{}
		if err := json.Unmarshal([]byte(restrictions.String), z.TimeRestrictions); err != nil {
			return z, fmt.Errorf("failed to decode time restrictions of zone %d: %w", z.ID, err)
		}
	}
	return z, nil
}

func encodeZoneJSON(zone *models.GeofenceZone) (polygon, restrictions sql.NullString, err error) {
	if len(zone.PolygonPoints) > 0 {
		data, err := json.Marshal(zone.PolygonPoints)
		if err != nil {
			return polygon, restrictions, fmt.Errorf("failed to encode polygon: %w", err)
		}
		polygon = sql.NullString{String: string(data), Valid: true}
	}
	if zone.TimeRestrictions != nil {
		data, err := json.Marshal(zone.TimeRestrictions)
		if err != nil {
			return polygon, restrictions, fmt.Errorf("failed to encode time restrictions: %w", err)
		}
		restrictions = sql.NullString{String: string(data), Valid: true}
	}
	return polygon, restrictions, nil
}
