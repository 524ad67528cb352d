package middleware

import (
	"bytes"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/jengzang/geofence-verify/internal/models"
)

// maxPayloadBytes caps how much of a JSON body is read for location data
const maxPayloadBytes = 1 << 20

// RequestPayload merges the query string, form values and JSON body of the request.
// Later sources win on key clashes. The body is restored so handlers can bind it again.
// The result is cached on the context.
func RequestPayload(c *gin.Context) models.Payload {
	if v, ok := c.Get(ContextPayload); ok {
		if p, ok := v.(models.Payload); ok {
			return p
		}
	}

	payload := models.Payload{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}

	contentType := c.ContentType()
	switch {
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"),
		strings.HasPrefix(contentType, "multipart/form-data"):
		if err := c.Request.ParseMultipartForm(maxPayloadBytes); err != nil {
			_ = c.Request.ParseForm()
		}
		for key, values := range c.Request.PostForm {
			if len(values) > 0 {
				payload[key] = values[0]
			}
		}
	case c.Request.Body != nil:
		// Oversized bodies are passed on whole but not decoded
		rest := c.Request.Body
		body, err := io.ReadAll(io.LimitReader(rest, maxPayloadBytes+1))
		c.Request.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), rest), Closer: rest}
		if err == nil && len(body) <= maxPayloadBytes {
			var decoded map[string]interface{}
			if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &decoded) == nil {
				for key, value := range decoded {
					payload[key] = value
				}
			}
		}
	}

	c.Set(ContextPayload, payload)
	return payload
}

type readCloser struct {
	io.Reader
	io.Closer
}
