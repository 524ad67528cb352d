package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created sends a 201 response with the new resource
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound sends a 404 not found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

// UnprocessableEntity sends a 422 response
func UnprocessableEntity(c *gin.Context, message string) {
	Error(c, http.StatusUnprocessableEntity, message)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// Rejection is the body returned when a request is stopped by a guard.
// Exactly one of Error or Warning is set.
type Rejection struct {
	Error          string      `json:"error,omitempty"`
	Warning        string      `json:"warning,omitempty"`
	Code           string      `json:"code,omitempty"`
	Message        string      `json:"message,omitempty"`
	Violations     interface{} `json:"violations,omitempty"`
	Issues         []string    `json:"issues,omitempty"`
	SuggestedZones interface{} `json:"suggested_zones,omitempty"`
	Details        []string    `json:"details,omitempty"`
}

// Reject aborts the request with status and body
func Reject(c *gin.Context, status int, body Rejection) {
	c.AbortWithStatusJSON(status, body)
}

// Warn aborts the request with a 200 carrying a warning
func Warn(c *gin.Context, body Rejection) {
	c.AbortWithStatusJSON(http.StatusOK, body)
}
