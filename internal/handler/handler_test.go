package handler

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/database"
	"github.com/jengzang/geofence-verify/internal/kvstore"
	"github.com/jengzang/geofence-verify/internal/middleware"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/repository"
	"github.com/jengzang/geofence-verify/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router  *gin.Engine
	zones   *service.ZoneService
	devices *service.DeviceRegistry
	checker *service.SecurityChecker
}

// asUser stands in for the auth middleware
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUser, &models.User{ID: id})
		c.Next()
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := database.Open(database.Config{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.NewMigrationManager(conn).RunMigrations())
	t.Cleanup(func() { conn.Close() })

	policy := config.DefaultPolicy()
	zoneRepo := repository.NewZoneRepository(conn)
	zones := service.NewZoneService(zoneRepo, repository.NewProjectRepository(conn), policy.Zones)
	store := kvstore.NewMemoryStore()
	devices := service.NewDeviceRegistry(policy.DeviceFingerprinting, store, zerolog.Nop())
	checker := service.NewSecurityChecker(policy.AntiSpoofing, store, zerolog.Nop())

	geofenceHandler := NewGeofenceHandler(service.NewGeofenceService(zoneRepo, policy.Zones.SuggestedZoneLimit))
	zoneHandler := NewZoneHandler(zones)
	deviceHandler := NewDeviceHandler(devices)
	historyHandler := NewHistoryHandler(checker)
	timesheetHandler := NewTimesheetHandler(zerolog.Nop())

	r := gin.New()
	geo := r.Group("/api/v1/geofence", asUser("u1"))
	{
		geo.POST("/validate", geofenceHandler.ValidateLocation)
		geo.GET("/nearest", geofenceHandler.NearestZone)
		geo.GET("/suggested", geofenceHandler.SuggestedZones)

		geo.POST("/zones", zoneHandler.CreateZone)
		geo.GET("/zones", zoneHandler.ListZones)
		geo.GET("/zones/:id", zoneHandler.GetZone)
		geo.PATCH("/zones/:id/toggle", zoneHandler.ToggleZone)
		geo.DELETE("/zones/:id", zoneHandler.DeleteZone)

		geo.GET("/projects", zoneHandler.MyProjects)
		geo.POST("/projects/:project_id/users", zoneHandler.AssignUser)
		geo.DELETE("/projects/:project_id/users/:user_id", zoneHandler.UnassignUser)

		geo.GET("/devices", deviceHandler.ListDevices)
		geo.DELETE("/devices/:device_id", deviceHandler.RevokeDevice)
		geo.GET("/history", historyHandler.LocationHistory)
	}
	r.POST("/api/mobile/timesheet/clock-in", asUser("u1"), func(c *gin.Context) {
		c.Set(middleware.ContextSecurityVerification, &models.SecurityVerification{SecurityScore: 100, DeviceID: "dev-1"})
		c.Next()
	}, timesheetHandler.ClockIn)
	r.POST("/anonymous", timesheetHandler.RecordLocation)

	return &testEnv{router: r, zones: zones, devices: devices, checker: checker}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// envelope decodes the {code, message, data} response
func envelope(t *testing.T, w *httptest.ResponseRecorder) (float64, map[string]interface{}) {
	t.Helper()
	var body struct {
		Code float64                `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Code, body.Data
}

func hq() gin.H {
	return gin.H{
		"name":             "HQ",
		"zone_type":        "circular",
		"category":         "office",
		"center_latitude":  24.7136,
		"center_longitude": 46.6753,
		"radius_meters":    500,
	}
}
