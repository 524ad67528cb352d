package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/middleware"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/service"
	"github.com/jengzang/geofence-verify/pkg/response"
)

// GeofenceHandler handles explicit location checks
type GeofenceHandler struct {
	geofenceService *service.GeofenceService
}

// NewGeofenceHandler creates a new geofence handler
func NewGeofenceHandler(geofenceService *service.GeofenceService) *GeofenceHandler {
	return &GeofenceHandler{
		geofenceService: geofenceService,
	}
}

// ValidateLocation handles POST /api/v1/geofence/validate
func (h *GeofenceHandler) ValidateLocation(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, 401, "Authentication required")
		return
	}

	var req models.ValidateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.geofenceService.ValidateLocation(c.Request.Context(), *req.Latitude, *req.Longitude, user.ID, req.ProjectID)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, result)
}

// NearestZone handles GET /api/v1/geofence/nearest
func (h *GeofenceHandler) NearestZone(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, 401, "Authentication required")
		return
	}

	var query models.NearestZoneQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	nearest, err := h.geofenceService.FindNearestZone(c.Request.Context(), *query.Latitude, *query.Longitude, user.ID, query.ProjectID)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if nearest == nil {
		response.NotFound(c, "No geofence zones available")
		return
	}

	response.Success(c, nearest)
}

// SuggestedZones handles GET /api/v1/geofence/suggested
func (h *GeofenceHandler) SuggestedZones(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, 401, "Authentication required")
		return
	}

	zones, err := h.geofenceService.SuggestedZones(c.Request.Context(), user.ID)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"data":  zones,
		"count": len(zones),
	})
}
