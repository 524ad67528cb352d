package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/service"
	"github.com/jengzang/geofence-verify/pkg/response"
	"github.com/rs/zerolog"
)

// Mobile auth error codes
const (
	CodeMissingMobileHeader      = "MISSING_MOBILE_HEADER"
	CodeInvalidTokenType         = "INVALID_TOKEN_TYPE"
	CodeDeviceRequirementsNotMet = "DEVICE_REQUIREMENTS_NOT_MET"
)

// MobileAuth authenticates the mobile app: app header, bearer token with a mobile scope,
// minimum app version and device capabilities. It sets the user and the mobile context.
func MobileAuth(secret []byte, gate *service.MobileGate, logger zerolog.Logger) gin.HandlerFunc {
	logger = logger.With().Str("component", "mobile_auth").Logger()
	policy := gate.Policy()

	return func(c *gin.Context) {
		if c.GetHeader("X-Mobile-App") == "" {
			response.Reject(c, http.StatusUnauthorized, response.Rejection{
				Error:   "Mobile app header required",
				Code:    CodeMissingMobileHeader,
				Message: "This endpoint is only available to the mobile app.",
			})
			return
		}

		claims, err := ParseBearer(c.Request, secret)
		if err != nil {
			rejectToken(c, err, CodeMissingToken)
			return
		}

		user := &models.User{ID: claims.Subject, Scopes: claims.Scopes}
		if !hasAnyScope(user, policy.MobileScopes) {
			response.Reject(c, http.StatusUnauthorized, response.Rejection{
				Error:   "Invalid token type",
				Code:    CodeInvalidTokenType,
				Message: "This token does not grant mobile access.",
			})
			return
		}

		payload := RequestPayload(c)

		version := c.GetHeader("X-App-Version")
		if version == "" {
			version = payload.String("app_version")
		}
		if check := gate.CheckAppVersion(version); !check.Compatible {
			logger.Info().Str("user_id", user.ID).Str("app_version", version).Str("code", check.Code).Msg("App version rejected")
			c.AbortWithStatusJSON(http.StatusUpgradeRequired, gin.H{
				"error":           "App update required",
				"code":            check.Code,
				"message":         check.Reason,
				"current_version": check.Version,
				"min_version":     check.MinVersion,
				"update_required": true,
				"download_url":    policy.AppDownloadURL,
			})
			return
		}

		platform := platformFrom(c, payload)
		if check := gate.CheckDeviceRequirements(platform, payload); !check.MeetsRequirements {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "Device requirements not met",
				"code":    CodeDeviceRequirementsNotMet,
				"message": "Your device does not meet the minimum requirements for this app.",
				"issues":  check.Issues,
				"requirements": gin.H{
					"supported_platforms": policy.SupportedPlatforms,
					"gps_required":        policy.GPSRequired,
					"min_storage_mb":      policy.MinStorageMB,
					"network_required":    policy.NetworkRequired,
				},
			})
			return
		}

		sessionID := c.GetHeader("X-Session-ID")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		c.Header("X-Session-ID", sessionID)

		c.Set(ContextUser, user)
		c.Set(ContextMobileContext, &models.MobileContext{
			AuthenticatedAt: time.Now(),
			UserID:          user.ID,
			AppVersion:      version,
			Platform:        platform,
			DeviceID:        deviceIDFrom(c, payload),
			SessionID:       sessionID,
		})
		c.Next()
	}
}

func hasAnyScope(user *models.User, scopes []string) bool {
	if len(scopes) == 0 {
		return true
	}
	for _, s := range scopes {
		if user.HasScope(s) {
			return true
		}
	}
	return false
}

func platformFrom(c *gin.Context, p models.Payload) string {
	if v := c.GetHeader("X-Platform"); v != "" {
		return v
	}
	if v := p.String("platform"); v != "" {
		return v
	}
	return p.String("device.platform")
}

func deviceIDFrom(c *gin.Context, p models.Payload) string {
	if v := p.String("device_id"); v != "" {
		return v
	}
	if v := c.GetHeader("X-Device-ID"); v != "" {
		return v
	}
	return p.String("device.device_id")
}
