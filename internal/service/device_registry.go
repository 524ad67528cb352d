package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/kvstore"
	"github.com/jengzang/geofence-verify/internal/metrics"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/rs/zerolog"
)

// Device rejection reasons
const (
	ReasonMissingDeviceID = "Missing device ID"
	ReasonTooManyDevices  = "Maximum number of devices exceeded"
)

// ErrDeviceNotFound is returned when revoking an unknown device
var ErrDeviceNotFound = errors.New("device not registered")

// DeviceRegistry tracks the devices each user signs in from
type DeviceRegistry struct {
	policy config.DevicePolicy
	store  kvstore.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewDeviceRegistry creates a registry persisted in store
func NewDeviceRegistry(policy config.DevicePolicy, store kvstore.Store, logger zerolog.Logger) *DeviceRegistry {
	return &DeviceRegistry{
		policy: policy,
		store:  store,
		logger: logger.With().Str("component", "device_registry").Logger(),
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (r *DeviceRegistry) WithClock(now func() time.Time) *DeviceRegistry {
	r.now = now
	return r
}

// Verify registers unseen devices up to the per-user limit and refreshes known ones.
// Fingerprint drift on known devices is logged and never rejects the device.
// On a store failure the returned result is valid and the error is set.
func (r *DeviceRegistry) Verify(ctx context.Context, userID, deviceID string, fp models.DeviceFingerprint) (*models.DeviceResult, error) {
	if !r.policy.Enabled {
		return &models.DeviceResult{Valid: true, Checks: map[string]bool{}}, nil
	}

	if deviceID == "" {
		return &models.DeviceResult{
			Valid:  false,
			Checks: map[string]bool{"device_id": false},
			Reason: ReasonMissingDeviceID,
		}, nil
	}

	key := kvstore.DevicesKey(userID)
	devices, err := r.load(ctx, key)
	if err != nil {
		return &models.DeviceResult{
			Valid:    true,
			DeviceID: deviceID,
			Checks:   map[string]bool{"device_registered": true},
		}, err
	}

	now := r.now()
	result := &models.DeviceResult{
		Valid:    true,
		DeviceID: deviceID,
		Checks:   map[string]bool{"device_registered": true},
	}

	record, known := devices[deviceID]
	if !known {
		if len(devices) >= r.policy.MaxDevicesPerUser {
			return &models.DeviceResult{
				Valid:    false,
				DeviceID: deviceID,
				Checks:   map[string]bool{"device_limit": false},
				Reason:   ReasonTooManyDevices,
			}, nil
		}
		record = models.DeviceRecord{
			DeviceID:     deviceID,
			RegisteredAt: now,
			Fingerprint:  fp,
		}
		r.logger.Info().Str("user_id", userID).Str("device_id", deviceID).Msg("Registered new device")
	} else if r.policy.TrackDeviceChanges {
		if changes := DetectDeviceChanges(record.Fingerprint, fp); len(changes) > 0 {
			for field := range changes {
				metrics.DeviceDriftTotal.WithLabelValues(field).Inc()
			}
			r.logger.Warn().
				Str("user_id", userID).
				Str("device_id", deviceID).
				Interface("changes", changes).
				Msg("Device fingerprint changes detected")
			result.Changes = changes
		}
	}

	record.LastSeen = now
	devices[deviceID] = record

	if err := r.store.Put(ctx, key, devices, r.policy.TTL); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("device_registry").Inc()
		return result, fmt.Errorf("failed to save devices: %w", err)
	}
	return result, nil
}

// DetectDeviceChanges compares the critical fingerprint fields.
// Fields empty on either side are not compared.
func DetectDeviceChanges(stored, current models.DeviceFingerprint) map[string]models.FieldChange {
	changes := map[string]models.FieldChange{}
	compare := func(field, old, cur string) {
		if old != "" && cur != "" && old != cur {
			changes[field] = models.FieldChange{Old: old, New: cur}
		}
	}

	compare("platform", stored.Platform, current.Platform)
	compare("model", stored.Model, current.Model)
	compare("user_agent", stored.UserAgent, current.UserAgent)
	return changes
}

// Devices lists a user's registered devices, oldest first
func (r *DeviceRegistry) Devices(ctx context.Context, userID string) ([]models.DeviceRecord, error) {
	devices, err := r.load(ctx, kvstore.DevicesKey(userID))
	if err != nil {
		return nil, err
	}

	list := make([]models.DeviceRecord, 0, len(devices))
	for _, d := range devices {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RegisteredAt.Before(list[j].RegisteredAt) })
	return list, nil
}

// Revoke removes a device so its slot can be reused
func (r *DeviceRegistry) Revoke(ctx context.Context, userID, deviceID string) error {
	key := kvstore.DevicesKey(userID)
	devices, err := r.load(ctx, key)
	if err != nil {
		return err
	}
	if _, ok := devices[deviceID]; !ok {
		return ErrDeviceNotFound
	}

	delete(devices, deviceID)
	if len(devices) == 0 {
		return r.store.Delete(ctx, key)
	}
	if err := r.store.Put(ctx, key, devices, r.policy.TTL); err != nil {
		return fmt.Errorf("failed to save devices: %w", err)
	}
	return nil
}

func (r *DeviceRegistry) load(ctx context.Context, key string) (map[string]models.DeviceRecord, error) {
	devices := map[string]models.DeviceRecord{}
	if err := r.store.Get(ctx, key, &devices); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return map[string]models.DeviceRecord{}, nil
		}
		metrics.StoreErrorsTotal.WithLabelValues("device_registry").Inc()
		return nil, fmt.Errorf("failed to load devices: %w", err)
	}
	if devices == nil {
		// stored as null
		devices = map[string]models.DeviceRecord{}
	}
	return devices, nil
}
