package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/geofence/zones", hq())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	_, zone := envelope(t, w)
	id := int64(zone["id"].(float64))
	assert.Equal(t, true, zone["is_active"])

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/geofence/zones/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, zone = envelope(t, w)
	assert.Equal(t, "HQ", zone["name"])

	w = env.do(http.MethodPatch, fmt.Sprintf("/api/v1/geofence/zones/%d/toggle", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, zone = envelope(t, w)
	assert.Equal(t, false, zone["is_active"])

	w = env.do(http.MethodGet, "/api/v1/geofence/zones?active=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, list := envelope(t, w)
	assert.Equal(t, float64(1), list["total"])

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/geofence/zones/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/geofence/zones/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateZoneRejections(t *testing.T) {
	env := newTestEnv(t)

	missingName := hq()
	delete(missingName, "name")
	badType := hq()
	badType["zone_type"] = "hexagon"
	badLat := hq()
	badLat["center_latitude"] = 95
	tinyPolygon := hq()
	tinyPolygon["zone_type"] = "polygon"
	tinyPolygon["polygon_coordinates"] = []gin.H{{"lat": 0, "lng": 0}, {"lat": 1, "lng": 1}}
	bigRadius := hq()
	bigRadius["radius_meters"] = 60000
	polygonNoPoints := hq()
	polygonNoPoints["zone_type"] = "polygon"

	tests := []struct {
		name   string
		body   gin.H
		status int
	}{
		{"missing name", missingName, http.StatusBadRequest},
		{"bad type", badType, http.StatusBadRequest},
		{"bad latitude", badLat, http.StatusBadRequest},
		{"tiny polygon", tinyPolygon, http.StatusBadRequest},
		{"big radius", bigRadius, http.StatusBadRequest},
		{"polygon without points", polygonNoPoints, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/v1/geofence/zones", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/v1/geofence/zones", hq()).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/api/v1/geofence/zones", hq()).Code)
}

func TestZoneBadID(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/v1/geofence/zones/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/v1/geofence/zones/99", nil).Code)
}

func TestProjectMembershipEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/geofence/projects/5/users", gin.H{"user_id": "u1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/v1/geofence/projects", nil)
	_, data := envelope(t, w)
	assert.Equal(t, []interface{}{float64(5)}, data["project_ids"])

	w = env.do(http.MethodDelete, "/api/v1/geofence/projects/5/users/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/geofence/projects", nil)
	_, data = envelope(t, w)
	assert.Empty(t, data["project_ids"])

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/geofence/projects/x/users", gin.H{"user_id": "u1"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/geofence/projects/5/users", gin.H{}).Code)
}
