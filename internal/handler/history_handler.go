package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/middleware"
	"github.com/jengzang/geofence-verify/internal/service"
	"github.com/jengzang/geofence-verify/pkg/response"
)

// HistoryHandler exposes the location history kept for the consistency check
type HistoryHandler struct {
	checker *service.SecurityChecker
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(checker *service.SecurityChecker) *HistoryHandler {
	return &HistoryHandler{checker: checker}
}

// LocationHistory handles GET /api/v1/geofence/history
func (h *HistoryHandler) LocationHistory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, 401, "Authentication required")
		return
	}

	history, err := h.checker.History(c.Request.Context(), user.ID)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, history)
}
