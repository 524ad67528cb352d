package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/kvstore"
	"github.com/jengzang/geofence-verify/internal/metrics"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/spatial"
	"github.com/jengzang/geofence-verify/internal/stats"
	"github.com/rs/zerolog"
)

// Check names as reported in checks_passed
const (
	CheckMockLocation        = "mock_location"
	CheckDeveloperOptions    = "developer_options"
	CheckRootJailbreak       = "root_jailbreak"
	CheckLocationConsistency = "location_consistency"
)

// Security issues
const (
	IssueMockLocation     = "Mock location detected"
	IssueDeveloperOptions = "Developer options enabled"
	IssueRootJailbreak    = "Rooted/jailbroken device detected"
	IssueInconsistency    = "Location data inconsistency detected"
)

var (
	mockLocationHeaders = []string{"X-Mock-Location", "X-Fake-GPS", "X-Location-Spoofed"}
	mockProviders       = []string{"mock", "fake", "test"}
	developerIndicators = []string{"developer_options_enabled", "usb_debugging_enabled", "allow_mock_location"}
	rootIndicators      = []string{"is_rooted", "is_jailbroken", "has_superuser", "has_cydia"}
)

// SecurityRequest carries what the anti-spoofing checks inspect
type SecurityRequest struct {
	UserID   string
	Payload  models.Payload
	Headers  http.Header
	Location *models.LocationSample
}

// SecurityChecker runs the anti-spoofing checks enabled by policy
type SecurityChecker struct {
	policy config.AntiSpoofingPolicy
	store  kvstore.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewSecurityChecker creates a checker storing location history in store
func NewSecurityChecker(policy config.AntiSpoofingPolicy, store kvstore.Store, logger zerolog.Logger) *SecurityChecker {
	return &SecurityChecker{
		policy: policy,
		store:  store,
		logger: logger.With().Str("component", "security_checker").Logger(),
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (c *SecurityChecker) WithClock(now func() time.Time) *SecurityChecker {
	c.now = now
	return c
}

// Check runs every enabled check. Passed is the AND of the enabled checks.
// A store failure is returned alongside a result where the consistency check passed.
func (c *SecurityChecker) Check(ctx context.Context, req SecurityRequest) (*models.SecurityResult, error) {
	result := &models.SecurityResult{
		Checks: map[string]bool{},
		Issues: []string{},
	}
	if !c.policy.Enabled {
		result.Passed = true
		return result, nil
	}

	record := func(name string, ok bool, issue string) {
		result.Checks[name] = ok
		if !ok {
			result.Issues = append(result.Issues, issue)
			metrics.SecurityIssuesTotal.WithLabelValues(name).Inc()
		}
	}

	if c.policy.CheckMockLocations {
		record(CheckMockLocation, CheckMockLocationIndicators(req.Payload, req.Headers), IssueMockLocation)
	}
	if c.policy.CheckDeveloperOptions {
		record(CheckDeveloperOptions, !anyFlagSet(req.Payload, developerIndicators), IssueDeveloperOptions)
	}
	if c.policy.CheckRootJailbreak {
		record(CheckRootJailbreak, !anyFlagSet(req.Payload, rootIndicators), IssueRootJailbreak)
	}

	var storeErr error
	if c.policy.VerifyLocationConsistency {
		ok, err := c.VerifyLocationConsistency(ctx, req.UserID, req.Location)
		storeErr = err
		record(CheckLocationConsistency, ok, IssueInconsistency)
	}

	result.Passed = len(result.Issues) == 0
	return result, storeErr
}

// CheckMockLocationIndicators returns false when headers or payload show a mocked fix
func CheckMockLocationIndicators(p models.Payload, headers http.Header) bool {
	for _, h := range mockLocationHeaders {
		if _, ok := headers[http.CanonicalHeaderKey(h)]; ok {
			return false
		}
	}

	if p.True("is_mock_location") || p.True("location.is_mock") {
		return false
	}

	provider := p.String("gps.provider")
	if provider == "" {
		provider = p.String("location.provider")
	}
	provider = strings.ToLower(provider)
	for _, mock := range mockProviders {
		if provider == mock {
			return false
		}
	}
	return true
}

// anyFlagSet checks each indicator at the top level and under device
func anyFlagSet(p models.Payload, indicators []string) bool {
	for _, name := range indicators {
		if p.True(name) || p.True("device."+name) {
			return true
		}
	}
	return false
}

// VerifyLocationConsistency compares the fix with the user's last one and rejects impossible speeds.
// The first fix seeds the history. A rejected fix is not recorded.
func (c *SecurityChecker) VerifyLocationConsistency(ctx context.Context, userID string, loc *models.LocationSample) (bool, error) {
	if loc == nil {
		return true, nil
	}

	key := kvstore.LocationHistoryKey(userID)
	current := models.LocationHistoryEntry{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Timestamp: c.now(),
	}

	var history []models.LocationHistoryEntry
	if err := c.store.Get(ctx, key, &history); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		metrics.StoreErrorsTotal.WithLabelValues("location_history").Inc()
		return true, fmt.Errorf("failed to load location history: %w", err)
	}

	if len(history) > 0 {
		last := history[len(history)-1]
		elapsed := current.Timestamp.Sub(last.Timestamp).Seconds()
		if elapsed > 0 {
			distance := spatial.HaversineDistance(last.Latitude, last.Longitude, current.Latitude, current.Longitude)
			speed := spatial.Speed(last.Latitude, last.Longitude, current.Latitude, current.Longitude, elapsed)
			if speed > c.policy.MaxSpeed {
				c.logger.Warn().
					Str("user_id", userID).
					Float64("speed", speed).
					Float64("distance", distance).
					Float64("time_diff", elapsed).
					Interface("last_location", last).
					Interface("current_location", current).
					Msg("Impossible movement speed detected")
				return false, nil
			}
		}
	}

	history = append(history, current)
	if size := c.historySize(); len(history) > size {
		history = history[len(history)-size:]
	}
	if err := c.store.Put(ctx, key, history, c.policy.HistoryTTL); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("location_history").Inc()
		return true, fmt.Errorf("failed to save location history: %w", err)
	}
	return true, nil
}

// History returns the stored fixes of a user, oldest first, with their speed summary
func (c *SecurityChecker) History(ctx context.Context, userID string) (*models.LocationHistory, error) {
	var entries []models.LocationHistoryEntry
	if err := c.store.Get(ctx, kvstore.LocationHistoryKey(userID), &entries); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			metrics.StoreErrorsTotal.WithLabelValues("location_history").Inc()
			return nil, fmt.Errorf("failed to load location history: %w", err)
		}
	}
	if entries == nil {
		entries = []models.LocationHistoryEntry{}
	}

	return &models.LocationHistory{
		Entries: entries,
		Speed:   stats.Summarize(MovementSpeeds(entries)),
	}, nil
}

// MovementSpeeds returns the speed between each consecutive pair of fixes.
// Pairs without elapsed time are skipped.
func MovementSpeeds(history []models.LocationHistoryEntry) []float64 {
	speeds := make([]float64, 0, len(history))
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		elapsed := cur.Timestamp.Sub(prev.Timestamp).Seconds()
		if elapsed <= 0 {
			continue
		}
		speeds = append(speeds, spatial.Speed(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude, elapsed))
	}
	return speeds
}

func (c *SecurityChecker) historySize() int {
	if c.policy.HistorySize < 1 {
		return 10
	}
	return c.policy.HistorySize
}
