package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/pkg/response"
)

// Auth error codes
const (
	CodeAuthRequired = "AUTH_REQUIRED"
	CodeMissingToken = "MISSING_TOKEN"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeForbidden    = "INSUFFICIENT_SCOPE"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errTokenExpired = errors.New("token expired")
)

// Claims is the token body. The subject is the user id.
type Claims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// ParseBearer reads and verifies the Authorization header.
// Tokens are issued elsewhere, only HMAC-SHA256 signatures are accepted.
func ParseBearer(r *http.Request, secret []byte) (*Claims, error) {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return nil, errMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(fields[1], claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errTokenExpired
		}
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid token: missing subject")
	}
	return claims, nil
}

// Auth verifies the bearer token and stores the user in the context
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseBearer(c.Request, secret)
		if err != nil {
			rejectToken(c, err, CodeAuthRequired)
			return
		}

		c.Set(ContextUser, &models.User{ID: claims.Subject, Scopes: claims.Scopes})
		c.Next()
	}
}

// RequireScope rejects users whose token lacks scope
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			authRequired(c)
			return
		}
		if user.HasScope(scope) {
			c.Next()
			return
		}
		response.Reject(c, http.StatusForbidden, response.Rejection{
			Error:   "Insufficient permissions",
			Code:    CodeForbidden,
			Message: fmt.Sprintf("This operation requires the %s scope.", scope),
		})
	}
}

func rejectToken(c *gin.Context, err error, missingCode string) {
	switch {
	case errors.Is(err, errMissingToken):
		response.Reject(c, http.StatusUnauthorized, response.Rejection{
			Error:   "Authentication required",
			Code:    missingCode,
			Message: "A bearer token is required for this operation.",
		})
	case errors.Is(err, errTokenExpired):
		response.Reject(c, http.StatusUnauthorized, response.Rejection{
			Error:   "Token expired",
			Code:    CodeTokenExpired,
			Message: "Your session has expired. Please sign in again.",
		})
	default:
		response.Reject(c, http.StatusUnauthorized, response.Rejection{
			Error:   "Invalid token",
			Code:    CodeInvalidToken,
			Message: "The provided token is invalid.",
		})
	}
}

func authRequired(c *gin.Context) {
	response.Reject(c, http.StatusUnauthorized, response.Rejection{
		Error:   "Authentication required",
		Code:    CodeAuthRequired,
		Message: "Please sign in and try again.",
	})
}
