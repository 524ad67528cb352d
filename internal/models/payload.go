package models

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Payload is the merged request input: JSON body, form values and query string.
// Nested objects are addressed with dotted paths such as "gps.latitude".
type Payload map[string]any

// Lookup returns the value at path. A literal dotted key wins over nested traversal.
func (p Payload) Lookup(path string) (any, bool) {
	if v, ok := p[path]; ok {
		return v, v != nil
	}

	var current any = map[string]any(p)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, current != nil
}

// Float returns the value at path coerced to float64
func (p Payload) Float(path string) (float64, bool) {
	v, ok := p.Lookup(path)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// String returns the value at path as a string
func (p Payload) String(path string) string {
	v, ok := p.Lookup(path)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// True reports whether the value at path is an explicit true.
// Form and query values "true" and "1" count as true.
func (p Payload) True(path string) bool {
	v, ok := p.Lookup(path)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	}
	return false
}

// False reports whether the value at path is an explicit false
func (p Payload) False(path string) bool {
	v, ok := p.Lookup(path)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return !t
	case string:
		return t == "false" || t == "0"
	}
	return false
}

// toFloat coerces v to a finite number. NaN and infinities are rejected.
func toFloat(v any) (float64, bool) {
	f, ok := rawFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
