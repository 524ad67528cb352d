package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a TTL key/value store shared by the verification components.
// Get and Put are atomic per key; read-modify-write sequences are not.
type Store interface {
	// Get decodes the value stored at key into dest
	Get(ctx context.Context, key string, dest any) error
	// Put stores value at key for ttl. A ttl of zero keeps the key until deleted.
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	// TTL returns the remaining lifetime of key, zero when it never expires
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, key string) error
}

// LocationHistoryKey holds the recent fixes of a user
func LocationHistoryKey(userID string) string {
	return "user_location_history_" + userID
}

// DevicesKey holds the registered devices of a user
func DevicesKey(userID string) string {
	return "user_devices_" + userID
}

// RequestFrequencyKey holds the request timestamps of a user in the current window
func RequestFrequencyKey(userID string) string {
	return "request_frequency_" + userID
}
