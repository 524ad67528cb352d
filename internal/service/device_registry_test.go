package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/kvstore"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(store kvstore.Store, c *clock) *DeviceRegistry {
	return NewDeviceRegistry(config.DefaultPolicy().DeviceFingerprinting, store, zerolog.Nop()).WithClock(c.Now)
}

func iphone() models.DeviceFingerprint {
	return models.DeviceFingerprint{UserAgent: "App/1.2 (iPhone)", Platform: "ios", Model: "iPhone 14"}
}

func TestDeviceRegistryLimit(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: fixedNow}
	r := newRegistry(kvstore.NewMemoryStore(), c)

	for i := 1; i <= 3; i++ {
		res, err := r.Verify(ctx, "u1", fmt.Sprintf("dev-%d", i), iphone())
		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.Equal(t, fmt.Sprintf("dev-%d", i), res.DeviceID)
		c.Advance(time.Second)
	}

	res, err := r.Verify(ctx, "u1", "dev-4", iphone())
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonTooManyDevices, res.Reason)

	// known devices keep working
	res, err = r.Verify(ctx, "u1", "dev-2", iphone())
	require.NoError(t, err)
	assert.True(t, res.Valid)

	// other users are independent
	res, err = r.Verify(ctx, "u2", "dev-4", iphone())
	require.NoError(t, err)
	assert.True(t, res.Valid)

	devices, err := r.Devices(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "dev-1", devices[0].DeviceID)
}

func TestDeviceRegistryMissingID(t *testing.T) {
	res, err := newRegistry(kvstore.NewMemoryStore(), &clock{t: fixedNow}).Verify(context.Background(), "u1", "", iphone())
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonMissingDeviceID, res.Reason)
}

func TestDeviceRegistryDriftIsLoggedOnly(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	c := &clock{t: fixedNow}
	r := newRegistry(store, c)

	_, err := r.Verify(ctx, "u1", "dev-1", iphone())
	require.NoError(t, err)

	c.Advance(time.Hour)
	changed := iphone()
	changed.Model = "iPhone 15"
	changed.Platform = ""
	res, err := r.Verify(ctx, "u1", "dev-1", changed)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, models.FieldChange{Old: "iPhone 14", New: "iPhone 15"}, res.Changes["model"])

	devices, err := r.Devices(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "iPhone 14", devices[0].Fingerprint.Model, "first fingerprint is kept")
	assert.True(t, c.t.Equal(devices[0].LastSeen))
	assert.True(t, fixedNow.Equal(devices[0].RegisteredAt))
}

func TestDetectDeviceChanges(t *testing.T) {
	a := iphone()
	b := iphone()
	assert.Empty(t, DetectDeviceChanges(a, b))

	b.UserAgent = "App/1.3 (iPhone)"
	b.OSVersion = "17.1"
	changes := DetectDeviceChanges(a, b)
	assert.Len(t, changes, 1)
	assert.Contains(t, changes, "user_agent")
}

func TestDeviceRegistryRevoke(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	r := newRegistry(store, &clock{t: fixedNow})

	for i := 1; i <= 3; i++ {
		_, err := r.Verify(ctx, "u1", fmt.Sprintf("dev-%d", i), iphone())
		require.NoError(t, err)
	}

	require.NoError(t, r.Revoke(ctx, "u1", "dev-1"))
	assert.ErrorIs(t, r.Revoke(ctx, "u1", "dev-1"), ErrDeviceNotFound)

	res, err := r.Verify(ctx, "u1", "dev-4", iphone())
	require.NoError(t, err)
	assert.True(t, res.Valid, "revoked slot is reusable")

	for _, id := range []string{"dev-2", "dev-3", "dev-4"} {
		require.NoError(t, r.Revoke(ctx, "u1", id))
	}
	_, err = store.TTL(ctx, kvstore.DevicesKey("u1"))
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestDeviceRegistryDisabled(t *testing.T) {
	r := NewDeviceRegistry(config.DevicePolicy{}, brokenStore{}, zerolog.Nop())

	res, err := r.Verify(context.Background(), "u1", "", iphone())
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestDeviceRegistryStoreFailure(t *testing.T) {
	r := newRegistry(brokenStore{}, &clock{t: fixedNow})

	res, err := r.Verify(context.Background(), "u1", "dev-1", iphone())
	assert.ErrorIs(t, err, errStoreDown)
	assert.True(t, res.Valid)
}

func TestDeviceRegistryNullRecord(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, kvstore.DevicesKey("u1"), nil, time.Hour))
	r := newRegistry(store, &clock{t: fixedNow})

	devices, err := r.Devices(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, devices)

	res, err := r.Verify(ctx, "u1", "dev-1", iphone())
	require.NoError(t, err)
	assert.True(t, res.Valid)
}
