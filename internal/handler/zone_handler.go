package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/middleware"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/repository"
	"github.com/jengzang/geofence-verify/internal/service"
	"github.com/jengzang/geofence-verify/pkg/response"
)

// ZoneHandler handles zone and project administration
type ZoneHandler struct {
	zoneService *service.ZoneService
}

// NewZoneHandler creates a new zone handler
func NewZoneHandler(zoneService *service.ZoneService) *ZoneHandler {
	return &ZoneHandler{
		zoneService: zoneService,
	}
}

// CreateZone handles POST /api/v1/geofence/zones
func (h *ZoneHandler) CreateZone(c *gin.Context) {
	var req models.CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	zone, err := h.zoneService.CreateZone(c.Request.Context(), req)
	if err != nil {
		if service.IsValidationError(err) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	response.Created(c, zone)
}

// ListZones handles GET /api/v1/geofence/zones
func (h *ZoneHandler) ListZones(c *gin.Context) {
	var filter models.ZoneFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	zones, total, err := h.zoneService.ListZones(c.Request.Context(), filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"data":  zones,
		"total": total,
	})
}

// GetZone handles GET /api/v1/geofence/zones/:id
func (h *ZoneHandler) GetZone(c *gin.Context) {
	id, ok := parseZoneID(c)
	if !ok {
		return
	}

	zone, err := h.zoneService.GetZone(c.Request.Context(), id)
	if err != nil {
		h.zoneError(c, err)
		return
	}

	response.Success(c, zone)
}

// ToggleZone handles PATCH /api/v1/geofence/zones/:id/toggle
func (h *ZoneHandler) ToggleZone(c *gin.Context) {
	id, ok := parseZoneID(c)
	if !ok {
		return
	}

	zone, err := h.zoneService.ToggleZone(c.Request.Context(), id)
	if err != nil {
		h.zoneError(c, err)
		return
	}

	response.Success(c, zone)
}

// DeleteZone handles DELETE /api/v1/geofence/zones/:id
func (h *ZoneHandler) DeleteZone(c *gin.Context) {
	id, ok := parseZoneID(c)
	if !ok {
		return
	}

	if err := h.zoneService.DeleteZone(c.Request.Context(), id); err != nil {
		h.zoneError(c, err)
		return
	}

	response.Success(c, gin.H{"id": id})
}

// AssignUser handles POST /api/v1/geofence/projects/:project_id/users
func (h *ZoneHandler) AssignUser(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("project_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid project ID")
		return
	}

	var req models.AssignUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.zoneService.AssignUser(c.Request.Context(), projectID, req.UserID); err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"project_id": projectID, "user_id": req.UserID})
}

// UnassignUser handles DELETE /api/v1/geofence/projects/:project_id/users/:user_id
func (h *ZoneHandler) UnassignUser(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("project_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid project ID")
		return
	}

	if err := h.zoneService.UnassignUser(c.Request.Context(), projectID, c.Param("user_id")); err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"project_id": projectID, "user_id": c.Param("user_id")})
}

// MyProjects handles GET /api/v1/geofence/projects
func (h *ZoneHandler) MyProjects(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, 401, "Authentication required")
		return
	}

	ids, err := h.zoneService.UserProjects(c.Request.Context(), user.ID)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"project_ids": ids})
}

func (h *ZoneHandler) zoneError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrZoneNotFound) {
		response.NotFound(c, "Zone not found")
		return
	}
	response.InternalError(c, err.Error())
}

func parseZoneID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid zone ID")
		return 0, false
	}
	return id, true
}
