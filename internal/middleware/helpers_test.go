package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/kvstore"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, subject string, scopes []string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

// zoneList serves a fixed set of zones to every user
type zoneList []models.GeofenceZone

func (z zoneList) ListVisibleZones(ctx context.Context, userID string, projectID *int64) ([]models.GeofenceZone, error) {
	return z, nil
}

func (z zoneList) SuggestedZones(ctx context.Context, userID string, limit int) ([]models.GeofenceZone, error) {
	return z, nil
}

func riyadhZone() models.GeofenceZone {
	return models.GeofenceZone{
		ID:        1,
		Name:      "Riyadh HQ",
		ZoneType:  models.ZoneTypeCircular,
		CenterLat: 24.7136,
		CenterLon: 46.6753,
		Radius:    500,
		Active:    true,
	}
}

func newPipeline(zones ...models.GeofenceZone) *Geofence {
	policy := config.DefaultPolicy()
	store := kvstore.NewMemoryStore()
	logger := zerolog.Nop()

	verifier := service.NewVerificationService(
		service.NewSecurityChecker(policy.AntiSpoofing, store, logger),
		service.NewDeviceRegistry(policy.DeviceFingerprinting, store, logger),
		service.NewPatternGuard(policy.RateLimiting, store),
		logger,
	)
	return NewGeofence(
		service.NewLocationExtractor(),
		service.NewLocationValidator(policy.GPS),
		service.NewGeofenceService(zoneList(zones), policy.Zones.SuggestedZoneLimit),
		verifier,
		nil,
		policy,
		logger,
	)
}

// newPipelineRouter mounts the full pipeline in front of a handler echoing the context
func newPipelineRouter(g *Geofence, path, mode string) *gin.Engine {
	r := gin.New()
	r.POST(path, Auth(testSecret), g.Check(mode), g.Verify(mode), func(c *gin.Context) {
		data, _ := GeofenceDataFrom(c)
		verification, _ := SecurityVerificationFrom(c)
		c.JSON(http.StatusOK, gin.H{
			"forwarded":             true,
			"geofence_data":         data,
			"security_verification": verification,
		})
	})
	return r
}

func postJSON(r http.Handler, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
