package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clockInPath = "/api/mobile/timesheet/clock-in"

func mobileHeaders() map[string]string {
	return map[string]string{"User-Agent": iphoneUA, "X-Device-ID": "dev-1"}
}

func TestIsMobileRequest(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		ua     string
		header bool
		want   bool
	}{
		{"app header", "/api/v1/x", "", true, true},
		{"iphone", "/api/v1/x", iphoneUA, false, true},
		{"android", "/api/v1/x", "Dalvik/2.1.0 (Linux; U; Android 14)", false, true},
		{"opera mini", "/api/v1/x", "Opera/9.80 (J2ME/MIDP; Opera Mini/9.80)", false, true},
		{"mobile path", "/api/geofence/mobile/ping", "", false, true},
		{"timesheet mobile path", "/api/timesheet/mobile/sync", "", false, true},
		{"desktop", "/api/v1/x", "Mozilla/5.0 (X11; Linux x86_64)", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("User-Agent", tt.ua)
			if tt.header {
				req.Header.Set("X-Mobile-App", "1")
			}
			assert.Equal(t, tt.want, IsMobileRequest(req))
		})
	}
}

func TestEndToEndSuccess(t *testing.T) {
	r := newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeAdvisory)
	token := signToken(t, "u1", nil, time.Hour)

	w := postJSON(r, clockInPath, token, gin.H{
		"latitude":  24.7136,
		"longitude": 46.6753,
		"accuracy":  20,
		"timestamp": time.Now().Unix(),
		"device_id": "dev-1",
	}, map[string]string{"User-Agent": iphoneUA})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["forwarded"])

	data := body["geofence_data"].(map[string]interface{})
	compliance := data["compliance"].(map[string]interface{})
	assert.Equal(t, true, compliance["compliant"])
	assert.Equal(t, true, data["warning"], "accuracy below the preferred range is advisory")

	verification := body["security_verification"].(map[string]interface{})
	assert.Equal(t, float64(100), verification["security_score"])
	assert.Equal(t, "dev-1", verification["device_id"])
}

func TestCheckRequiresUser(t *testing.T) {
	g := newPipeline(riyadhZone())
	r := gin.New()
	r.POST(clockInPath, g.Check(ModeStrict), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := postJSON(r, clockInPath, "", gin.H{"latitude": 24.7136, "longitude": 46.6753}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeAuthRequired, decode(t, w)["code"])
}

func TestCheckSkipsDesktopRequests(t *testing.T) {
	r := newPipelineRouter(newPipeline(riyadhZone()), "/api/v1/timesheet/location", ModeStrict)

	w := postJSON(r, "/api/v1/timesheet/location", signToken(t, "u1", nil, time.Hour), gin.H{}, map[string]string{
		"User-Agent": "Mozilla/5.0 (X11; Linux x86_64)",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Nil(t, body["geofence_data"])
	assert.Nil(t, body["security_verification"])
}

func TestCheckAlwaysCoversDesktopRequests(t *testing.T) {
	r := newPipelineRouter(newPipeline(riyadhZone()), "/api/v1/timesheet/location", ModeAlways)
	lat, lon := spatial.DestinationPoint(24.7136, 46.6753, 90, 10000)

	w := postJSON(r, "/api/v1/timesheet/location", signToken(t, "u1", nil, time.Hour), gin.H{
		"lat": lat, "lng": lon,
	}, map[string]string{"User-Agent": "Mozilla/5.0 (X11; Linux x86_64)"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Geofence compliance issue", decode(t, w)["warning"])
}

func TestCheckLocationRequired(t *testing.T) {
	token := signToken(t, "u1", nil, time.Hour)

	w := postJSON(newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeStrict), clockInPath, token, gin.H{}, mobileHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, CodeLocationRequired, body["code"])
	assert.Equal(t, "Please enable location services and try again.", body["message"])

	w = postJSON(newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeAdvisory), clockInPath, token, gin.H{}, mobileHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["forwarded"])
}

func TestCheckInvalidLocation(t *testing.T) {
	token := signToken(t, "u1", nil, time.Hour)
	stale := gin.H{"latitude": 24.7136, "longitude": 46.6753, "timestamp": time.Now().Add(-time.Hour).Unix()}

	w := postJSON(newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeStrict), clockInPath, token, stale, mobileHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, CodeInvalidLocation, body["code"])
	assert.Equal(t, []interface{}{"Location data is too old"}, body["details"])

	w = postJSON(newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeAdvisory), clockInPath, token, stale, mobileHeaders())
	assert.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Location data quality issues detected", body["warning"])
	assert.Equal(t, []interface{}{"Location data is too old"}, body["issues"])
	assert.Nil(t, body["forwarded"])

	w = postJSON(newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeStrict), clockInPath, token,
		gin.H{"latitude": 24.7136, "longitude": 46.6753, "accuracy": 20}, mobileHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code, "strict routes reject inaccurate fixes")
}

func TestCheckGeofenceViolation(t *testing.T) {
	token := signToken(t, "u1", nil, time.Hour)
	lat, lon := spatial.DestinationPoint(24.7136, 46.6753, 90, 10000)
	far := gin.H{"latitude": lat, "longitude": lon}

	w := postJSON(newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeStrict), clockInPath, token, far, mobileHeaders())
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, CodeGeofenceViolation, body["code"])
	assert.Equal(t, "Geofence violation detected", body["error"])
	violations := body["violations"].([]interface{})
	require.Len(t, violations, 1)
	assert.Equal(t, "Riyadh HQ", violations[0].(map[string]interface{})["zone_name"])
	suggested := body["suggested_zones"].([]interface{})
	require.Len(t, suggested, 1)
	assert.Equal(t, "Riyadh HQ", suggested[0].(map[string]interface{})["name"])

	w = postJSON(newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeAdvisory), clockInPath, token, far, mobileHeaders())
	assert.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Geofence compliance issue", body["warning"])
	assert.Equal(t, "Your current location may not be authorized for this operation.", body["message"])
	assert.Len(t, body["violations"], 1)
}

func TestVerifySecurityViolation(t *testing.T) {
	headers := mobileHeaders()
	headers["X-Mock-Location"] = "true"

	w := postJSON(newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeStrict), clockInPath,
		signToken(t, "u1", nil, time.Hour), gin.H{"latitude": 24.7136, "longitude": 46.6753, "accuracy": 60}, headers)
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, CodeSecurityViolation, body["code"])
	assert.Equal(t, []interface{}{"Mock location detected"}, body["issues"])
}

func TestVerifyDeviceViolation(t *testing.T) {
	w := postJSON(newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeAdvisory), clockInPath,
		signToken(t, "u1", nil, time.Hour), gin.H{"latitude": 24.7136, "longitude": 46.6753},
		map[string]string{"User-Agent": iphoneUA})
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, CodeDeviceViolation, body["code"])
	assert.Equal(t, "Missing device ID", body["message"])
}

func TestVerifyFourthDeviceRejected(t *testing.T) {
	r := newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeAdvisory)
	token := signToken(t, "u1", nil, time.Hour)
	point := gin.H{"latitude": 24.7136, "longitude": 46.6753}

	for _, id := range []string{"a", "b", "c"} {
		w := postJSON(r, clockInPath, token, point, map[string]string{"User-Agent": iphoneUA, "X-Device-ID": id})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := postJSON(r, clockInPath, token, point, map[string]string{"User-Agent": iphoneUA, "X-Device-ID": "d"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Maximum number of devices exceeded", decode(t, w)["message"])
}

func TestVerifySuspiciousActivity(t *testing.T) {
	w := postJSON(newPipelineRouter(newPipeline(riyadhZone()), clockInPath, ModeAdvisory), clockInPath,
		signToken(t, "u1", nil, time.Hour), gin.H{"latitude": 24.7136, "longitude": 46.6753, "device_id": "dev-1"},
		map[string]string{"User-Agent": "curl/8.4.0"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decode(t, w)
	assert.Equal(t, CodeSuspiciousActivity, body["code"])
	assert.Equal(t, "Unusual activity patterns detected.", body["message"])
}
