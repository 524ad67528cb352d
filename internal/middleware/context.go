package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/models"
)

// Keys under which the pipeline stores its results in the gin context
const (
	ContextUser                 = "user"
	ContextPayload              = "request_payload"
	ContextLocation             = "location_sample"
	ContextGeofenceData         = "geofence_data"
	ContextSecurityVerification = "security_verification"
	ContextMobileContext        = "mobile_context"
)

// CurrentUser returns the authenticated user
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil && user.ID != ""
}

// GeofenceDataFrom returns what the geofence check attached
func GeofenceDataFrom(c *gin.Context) (*models.GeofenceData, bool) {
	v, ok := c.Get(ContextGeofenceData)
	if !ok {
		return nil, false
	}
	data, ok := v.(*models.GeofenceData)
	return data, ok
}

// SecurityVerificationFrom returns what the verification stage attached
func SecurityVerificationFrom(c *gin.Context) (*models.SecurityVerification, bool) {
	v, ok := c.Get(ContextSecurityVerification)
	if !ok {
		return nil, false
	}
	sv, ok := v.(*models.SecurityVerification)
	return sv, ok
}

// MobileContextFrom returns what the mobile auth middleware attached
func MobileContextFrom(c *gin.Context) (*models.MobileContext, bool) {
	v, ok := c.Get(ContextMobileContext)
	if !ok {
		return nil, false
	}
	mc, ok := v.(*models.MobileContext)
	return mc, ok
}

func locationFrom(c *gin.Context) (*models.LocationSample, bool) {
	v, ok := c.Get(ContextLocation)
	if !ok {
		return nil, false
	}
	sample, ok := v.(*models.LocationSample)
	return sample, ok
}
