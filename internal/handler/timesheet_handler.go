package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/middleware"
	"github.com/jengzang/geofence-verify/pkg/response"
	"github.com/rs/zerolog"
)

// TimesheetHandler records attendance events that passed the verification pipeline
type TimesheetHandler struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewTimesheetHandler creates a new timesheet handler
func NewTimesheetHandler(logger zerolog.Logger) *TimesheetHandler {
	return &TimesheetHandler{
		logger: logger.With().Str("component", "timesheet").Logger(),
		now:    time.Now,
	}
}

// ClockIn handles POST /api/mobile/timesheet/clock-in
func (h *TimesheetHandler) ClockIn(c *gin.Context) {
	h.record(c, "clock_in")
}

// RecordLocation handles POST /api/mobile/timesheet/location and /api/v1/timesheet/location
func (h *TimesheetHandler) RecordLocation(c *gin.Context) {
	h.record(c, "location_update")
}

func (h *TimesheetHandler) record(c *gin.Context, action string) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, 401, "Authentication required")
		return
	}

	event := gin.H{
		"user_id":     user.ID,
		"action":      action,
		"recorded_at": h.now().Unix(),
	}
	if data, ok := middleware.GeofenceDataFrom(c); ok {
		event["geofence_data"] = data
	}
	if verification, ok := middleware.SecurityVerificationFrom(c); ok {
		event["security_verification"] = verification
	}
	if mc, ok := middleware.MobileContextFrom(c); ok {
		event["mobile_context"] = mc
	}

	h.logger.Info().Str("user_id", user.ID).Str("action", action).Msg("Timesheet event recorded")
	response.Success(c, event)
}
