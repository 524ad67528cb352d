package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/middleware"
	"github.com/jengzang/geofence-verify/internal/service"
	"github.com/jengzang/geofence-verify/pkg/response"
)

// DeviceHandler lets users see and release their registered devices
type DeviceHandler struct {
	devices *service.DeviceRegistry
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(devices *service.DeviceRegistry) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// ListDevices handles GET /api/v1/geofence/devices
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, 401, "Authentication required")
		return
	}

	devices, err := h.devices.Devices(c.Request.Context(), user.ID)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"data":  devices,
		"count": len(devices),
	})
}

// RevokeDevice handles DELETE /api/v1/geofence/devices/:device_id
func (h *DeviceHandler) RevokeDevice(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, 401, "Authentication required")
		return
	}

	deviceID := c.Param("device_id")
	if err := h.devices.Revoke(c.Request.Context(), user.ID, deviceID); err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			response.NotFound(c, "Device not found")
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"device_id": deviceID})
}
