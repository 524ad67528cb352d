package service

import (
	"context"
	"testing"

	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/database"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/repository"
	"github.com/jengzang/geofence-verify/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newZoneService(t *testing.T) *ZoneService {
	t.Helper()
	conn, err := database.Open(database.Config{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.NewMigrationManager(conn).RunMigrations())
	t.Cleanup(func() { conn.Close() })
	return NewZoneService(repository.NewZoneRepository(conn), repository.NewProjectRepository(conn), config.DefaultPolicy().Zones)
}

func circleRequest(name string) models.CreateZoneRequest {
	lat, lon := 24.7136, 46.6753
	return models.CreateZoneRequest{
		Name:      name,
		ZoneType:  models.ZoneTypeCircular,
		Category:  "office",
		CenterLat: &lat,
		CenterLon: &lon,
		Radius:    500,
	}
}

func TestCreateZone(t *testing.T) {
	ctx := context.Background()
	s := newZoneService(t)

	zone, err := s.CreateZone(ctx, circleRequest("HQ"))
	require.NoError(t, err)
	assert.NotZero(t, zone.ID)
	assert.True(t, zone.Active, "zones are active unless stated")

	got, err := s.GetZone(ctx, zone.ID)
	require.NoError(t, err)
	assert.Equal(t, "HQ", got.Name)
	assert.Equal(t, 500.0, got.Radius)

	_, err = s.CreateZone(ctx, circleRequest("HQ"))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestCreateZoneValidation(t *testing.T) {
	s := newZoneService(t)

	tests := []struct {
		name   string
		mutate func(r *models.CreateZoneRequest)
		field  string
	}{
		{"bad latitude", func(r *models.CreateZoneRequest) { v := 91.0; r.CenterLat = &v }, "center_latitude"},
		{"missing longitude", func(r *models.CreateZoneRequest) { r.CenterLon = nil }, "center_longitude"},
		{"radius too small", func(r *models.CreateZoneRequest) { r.Radius = 0 }, "radius_meters"},
		{"radius too large", func(r *models.CreateZoneRequest) { r.Radius = 50001 }, "radius_meters"},
		{"polygon too small", func(r *models.CreateZoneRequest) {
			r.ZoneType = models.ZoneTypePolygon
			r.PolygonPoints = []spatial.Point{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}
		}, "polygon_coordinates"},
		{"polygon bad point", func(r *models.CreateZoneRequest) {
			r.ZoneType = models.ZoneTypePolygon
			r.PolygonPoints = []spatial.Point{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 95, Lon: 1}}
		}, "polygon_coordinates"},
		{"unknown type", func(r *models.CreateZoneRequest) { r.ZoneType = "hexagon" }, "zone_type"},
		{"bad window", func(r *models.CreateZoneRequest) {
			r.TimeRestrictions = &models.TimeRestrictions{StartTime: "17:00", EndTime: "09:00"}
		}, "time_restrictions.end_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := circleRequest("zone")
			tt.mutate(&req)
			_, err := s.CreateZone(context.Background(), req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCreatePolygonZone(t *testing.T) {
	req := circleRequest("Yard")
	req.ZoneType = models.ZoneTypePolygon
	req.PolygonPoints = []spatial.Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.01}, {Lat: 0.01, Lon: 0.01}}

	zone, err := newZoneService(t).CreateZone(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, zone.Radius)
	assert.Len(t, zone.PolygonPoints, 3)
	assert.Equal(t, 24.7136, zone.CenterLat, "explicit center is kept")
}

func TestCreatePolygonZoneDefaultsCenter(t *testing.T) {
	req := circleRequest("Yard")
	req.ZoneType = models.ZoneTypePolygon
	req.CenterLat, req.CenterLon = nil, nil
	req.PolygonPoints = []spatial.Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.03}, {Lat: 0.03, Lon: 0}}

	zone, err := newZoneService(t).CreateZone(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, zone.CenterLat, 1e-9)
	assert.InDelta(t, 0.01, zone.CenterLon, 1e-9)
}

func TestToggleAndDeleteZone(t *testing.T) {
	ctx := context.Background()
	s := newZoneService(t)

	zone, err := s.CreateZone(ctx, circleRequest("HQ"))
	require.NoError(t, err)

	toggled, err := s.ToggleZone(ctx, zone.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	active := false
	zones, total, err := s.ListZones(ctx, models.ZoneFilter{Active: &active})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, zones, 1)

	require.NoError(t, s.DeleteZone(ctx, zone.ID))
	_, err = s.GetZone(ctx, zone.ID)
	assert.ErrorIs(t, err, repository.ErrZoneNotFound)
	assert.ErrorIs(t, s.DeleteZone(ctx, zone.ID), repository.ErrZoneNotFound)
}

func TestProjectMembership(t *testing.T) {
	ctx := context.Background()
	s := newZoneService(t)

	ids, err := s.UserProjects(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)

	require.NoError(t, s.AssignUser(ctx, 7, "u1"))
	require.NoError(t, s.AssignUser(ctx, 7, "u1"))
	require.NoError(t, s.AssignUser(ctx, 3, "u1"))
	ids, err = s.UserProjects(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, ids)

	require.NoError(t, s.UnassignUser(ctx, 7, "u1"))
	ids, err = s.UserProjects(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)

	assert.True(t, IsValidationError(s.AssignUser(ctx, 3, "")))
}
