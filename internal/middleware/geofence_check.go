package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/geoip"
	"github.com/jengzang/geofence-verify/internal/metrics"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/service"
	"github.com/jengzang/geofence-verify/pkg/response"
	"github.com/rs/zerolog"
)

// Route modes for the geofence check
const (
	ModeAdvisory = ""
	ModeStrict   = "strict"
	ModeAlways   = "always" // also checks non-mobile requests, advisory
)

// Pipeline error codes
const (
	CodeLocationRequired   = "LOCATION_REQUIRED"
	CodeInvalidLocation    = "INVALID_LOCATION"
	CodeGeofenceViolation  = "GEOFENCE_VIOLATION"
	CodeGeofenceError      = "GEOFENCE_UNAVAILABLE"
	CodeSecurityViolation  = "SECURITY_VIOLATION"
	CodeDeviceViolation    = "DEVICE_VIOLATION"
	CodeSuspiciousActivity = "SUSPICIOUS_ACTIVITY"
)

var (
	mobileUserAgentPatterns = []string{
		"mobile", "android", "iphone", "ipad", "ipod",
		"blackberry", "windows phone", "opera mini",
	}
	mobilePathPrefixes = []string{"/api/mobile/", "/api/timesheet/mobile/", "/api/geofence/mobile/"}
)

// Geofence holds the location and verification stages of the request pipeline
type Geofence struct {
	extractor *service.LocationExtractor
	validator *service.LocationValidator
	zones     *service.GeofenceService
	verifier  *service.VerificationService
	locator   geoip.Locator
	enabled   bool
	audit     bool
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGeofence wires the pipeline stages
func NewGeofence(
	extractor *service.LocationExtractor,
	validator *service.LocationValidator,
	zones *service.GeofenceService,
	verifier *service.VerificationService,
	locator geoip.Locator,
	policy *config.PolicyConfig,
	logger zerolog.Logger,
) *Geofence {
	if locator == nil {
		locator = geoip.NopLocator{}
	}
	return &Geofence{
		extractor: extractor,
		validator: validator,
		zones:     zones,
		verifier:  verifier,
		locator:   locator,
		enabled:   policy.Enabled,
		audit:     policy.AuditLogging,
		logger:    logger.With().Str("component", "geofence").Logger(),
		now:       time.Now,
	}
}

// WithClock replaces the time source for verified_at
func (g *Geofence) WithClock(now func() time.Time) *Geofence {
	g.now = now
	return g
}

// IsMobileRequest reports whether the request comes from the mobile app
func IsMobileRequest(r *http.Request) bool {
	if r.Header.Get("X-Mobile-App") != "" {
		return true
	}

	ua := strings.ToLower(r.UserAgent())
	for _, pattern := range mobileUserAgentPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}

	for _, prefix := range mobilePathPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// Check extracts, validates and evaluates the request location against the user's zones.
// In strict mode problems reject the request, otherwise they become warnings.
func (g *Geofence) Check(mode string) gin.HandlerFunc {
	strict := mode == ModeStrict

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			authRequired(c)
			return
		}

		if !g.enabled || (mode != ModeAlways && !IsMobileRequest(c.Request)) {
			metrics.GeofenceChecksTotal.WithLabelValues("skipped").Inc()
			c.Next()
			return
		}

		payload := RequestPayload(c)
		sample, found := g.extractor.Extract(payload)
		if !found {
			if strict {
				g.logViolation(c, user.ID, "", CodeLocationRequired, nil)
				response.Reject(c, http.StatusBadRequest, response.Rejection{
					Error:   "Location data is required for this operation",
					Code:    CodeLocationRequired,
					Message: "Please enable location services and try again.",
				})
				return
			}
			g.logger.Warn().Str("user_id", user.ID).Str("endpoint", c.Request.URL.Path).Msg("No location data provided")
			metrics.GeofenceChecksTotal.WithLabelValues("warning").Inc()
			c.Next()
			return
		}

		warning := false
		validation := g.validator.Validate(*sample)
		if !validation.Valid {
			switch {
			case strict:
				g.logViolation(c, user.ID, "", CodeInvalidLocation, validation.Errors)
				response.Reject(c, http.StatusBadRequest, response.Rejection{
					Error:   "Invalid location data",
					Code:    CodeInvalidLocation,
					Message: "The provided location data is invalid or inaccurate.",
					Details: validation.Errors,
				})
				return
			case !validation.Advisory:
				g.logViolation(c, user.ID, "", CodeInvalidLocation, validation.Errors)
				metrics.GeofenceChecksTotal.WithLabelValues("warning").Inc()
				response.Warn(c, response.Rejection{
					Warning: "Location data quality issues detected",
					Issues:  validation.Errors,
				})
				return
			}
			g.logger.Warn().Str("user_id", user.ID).Strs("issues", validation.Errors).Msg("Location data quality issues detected")
			warning = true
		}

		compliance, err := g.zones.ValidateLocation(c.Request.Context(), sample.Latitude, sample.Longitude, user.ID, projectIDFrom(payload))
		if err != nil {
			g.logger.Error().Err(err).Str("user_id", user.ID).Msg("Geofence evaluation failed")
			if strict {
				response.Reject(c, http.StatusServiceUnavailable, response.Rejection{
					Error:   "Geofence verification unavailable",
					Code:    CodeGeofenceError,
					Message: "Location verification is temporarily unavailable. Please try again.",
				})
				return
			}
			metrics.GeofenceChecksTotal.WithLabelValues("warning").Inc()
			c.Set(ContextLocation, sample)
			c.Next()
			return
		}

		if !compliance.Compliant {
			g.logViolation(c, user.ID, "", CodeGeofenceViolation, compliance.Violations)
			if strict {
				suggested, err := g.zones.SuggestedZones(c.Request.Context(), user.ID)
				if err != nil {
					g.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to load suggested zones")
					suggested = []models.ZoneSummary{}
				}
				metrics.GeofenceChecksTotal.WithLabelValues("blocked").Inc()
				response.Reject(c, http.StatusForbidden, response.Rejection{
					Error:          "Geofence violation detected",
					Code:           CodeGeofenceViolation,
					Message:        "You are not in an authorized location for this operation.",
					Violations:     compliance.Violations,
					SuggestedZones: suggested,
				})
				return
			}
			metrics.GeofenceChecksTotal.WithLabelValues("warning").Inc()
			response.Warn(c, response.Rejection{
				Warning:    "Geofence compliance issue",
				Message:    "Your current location may not be authorized for this operation.",
				Violations: compliance.Violations,
			})
			return
		}

		if warning {
			metrics.GeofenceChecksTotal.WithLabelValues("warning").Inc()
		} else {
			metrics.GeofenceChecksTotal.WithLabelValues("compliant").Inc()
		}
		c.Set(ContextLocation, sample)
		c.Set(ContextGeofenceData, &models.GeofenceData{
			Location:   *sample,
			Compliance: compliance,
			Zones:      compliance.Zones,
			VerifiedAt: g.now(),
			Warning:    warning,
		})
		c.Next()
	}
}

// logViolation records a rejected or flagged request
func (g *Geofence) logViolation(c *gin.Context, userID, deviceID, code string, details interface{}) {
	metrics.ViolationsTotal.WithLabelValues(code).Inc()
	g.logger.Warn().
		Str("user_id", userID).
		Str("device_id", deviceID).
		Str("ip", c.ClientIP()).
		Str("user_agent", c.Request.UserAgent()).
		Str("endpoint", c.Request.URL.Path).
		Str("violation_type", code).
		Interface("details", details).
		Msg("Geofence violation")
}

func projectIDFrom(p models.Payload) *int64 {
	v, ok := p.Float("project_id")
	if !ok || v <= 0 {
		return nil
	}
	id := int64(v)
	return &id
}
