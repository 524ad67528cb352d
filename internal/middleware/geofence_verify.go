package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/service"
	"github.com/jengzang/geofence-verify/internal/spatial"
	"github.com/jengzang/geofence-verify/pkg/response"
	"github.com/rs/zerolog"
)

// Verify runs the anti-spoofing, device and request pattern stages.
// Like Check it only looks at mobile requests unless mode is ModeAlways.
// Every failure rejects the request regardless of mode.
func (g *Geofence) Verify(mode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			authRequired(c)
			return
		}
		if mode != ModeAlways && !IsMobileRequest(c.Request) {
			c.Next()
			return
		}

		payload := RequestPayload(c)
		location, ok := locationFrom(c)
		if !ok {
			location, _ = g.extractor.Extract(payload)
		}

		deviceID := deviceIDFrom(c, payload)
		if mc, ok := MobileContextFrom(c); ok && mc.DeviceID != "" {
			deviceID = mc.DeviceID
		}

		out := g.verifier.Verify(c.Request.Context(), service.VerifyRequest{
			UserID:      user.ID,
			DeviceID:    deviceID,
			Fingerprint: fingerprintFrom(c, payload),
			Payload:     payload,
			Headers:     c.Request.Header,
			Location:    location,
			UserAgent:   c.Request.UserAgent(),
		})

		switch out.FailedStage {
		case service.StageSecurity:
			g.logViolation(c, user.ID, deviceID, CodeSecurityViolation, out.Security.Issues)
			response.Reject(c, http.StatusForbidden, response.Rejection{
				Error:   "Security verification failed",
				Code:    CodeSecurityViolation,
				Message: "Your device or location data failed security verification.",
				Issues:  out.Security.Issues,
			})
			return
		case service.StageDevice:
			g.logViolation(c, user.ID, deviceID, CodeDeviceViolation, out.Device.Reason)
			response.Reject(c, http.StatusForbidden, response.Rejection{
				Error:   "Device verification failed",
				Code:    CodeDeviceViolation,
				Message: out.Device.Reason,
			})
			return
		case service.StagePattern:
			g.logViolation(c, user.ID, deviceID, CodeSuspiciousActivity, out.Pattern.Issues)
			response.Reject(c, http.StatusTooManyRequests, response.Rejection{
				Error:   "Suspicious activity detected",
				Code:    CodeSuspiciousActivity,
				Message: "Unusual activity patterns detected.",
				Issues:  out.Pattern.Issues,
			})
			return
		}

		if g.audit {
			event := g.logger.Info().
				Str("user_id", user.ID).
				Str("device_id", deviceID).
				Str("endpoint", c.Request.URL.Path).
				Int("security_score", out.Score)
			g.withIPContext(event, c.ClientIP(), location).Msg("Request verified")
		}

		c.Set(ContextSecurityVerification, out.Verification)
		c.Next()
	}
}

// withIPContext adds the client's IP geolocation to an audit event.
// The distance to the reported fix is informational and never scored.
func (g *Geofence) withIPContext(event *zerolog.Event, ip string, location *models.LocationSample) *zerolog.Event {
	event = event.Str("ip", ip)
	ipLocation, err := g.locator.Lookup(ip)
	if err != nil {
		return event
	}

	event = event.Str("ip_country", ipLocation.CountryCode)
	if location != nil {
		event = event.Float64("ip_gps_distance_km", spatial.HaversineDistanceKm(
			ipLocation.Latitude, ipLocation.Longitude, location.Latitude, location.Longitude))
	}
	return event
}

func fingerprintFrom(c *gin.Context, p models.Payload) models.DeviceFingerprint {
	appVersion := c.GetHeader("X-App-Version")
	if appVersion == "" {
		appVersion = p.String("app_version")
	}
	return models.DeviceFingerprint{
		UserAgent:        c.Request.UserAgent(),
		Platform:         platformFrom(c, p),
		Model:            p.String("device.model"),
		OSVersion:        p.String("device.os_version"),
		AppVersion:       appVersion,
		ScreenResolution: p.String("device.screen_resolution"),
		Timezone:         p.String("device.timezone"),
	}
}
