package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/kvstore"
	"github.com/jengzang/geofence-verify/internal/metrics"
	"github.com/jengzang/geofence-verify/internal/models"
)

// Pattern check names and issues
const (
	CheckRequestFrequency = "request_frequency"
	CheckAutomation       = "automation"

	IssueRequestFrequency = "Suspicious request frequency"
	IssueAutomation       = "Automation indicators detected"
)

var botIndicators = []string{
	"bot", "crawler", "spider", "scraper", "automation",
	"selenium", "phantomjs", "headless", "curl", "wget",
}

// PatternGuard flags request bursts and automated clients
type PatternGuard struct {
	policy config.RateLimitPolicy
	store  kvstore.Store
	now    func() time.Time
}

// NewPatternGuard creates a guard keeping request windows in store
func NewPatternGuard(policy config.RateLimitPolicy, store kvstore.Store) *PatternGuard {
	return &PatternGuard{policy: policy, store: store, now: time.Now}
}

// WithClock replaces the time source
func (g *PatternGuard) WithClock(now func() time.Time) *PatternGuard {
	g.now = now
	return g
}

// Check records the request and runs both pattern checks.
// On a store failure the frequency check passes and the error is returned.
func (g *PatternGuard) Check(ctx context.Context, userID, userAgent string) (*models.PatternResult, error) {
	result := &models.PatternResult{
		Checks: map[string]bool{},
		Issues: []string{},
	}

	frequencyOK, err := g.CheckRequestFrequency(ctx, userID)
	result.Checks[CheckRequestFrequency] = frequencyOK
	if !frequencyOK {
		result.Issues = append(result.Issues, IssueRequestFrequency)
	}

	automationOK := !IsAutomatedUserAgent(userAgent)
	result.Checks[CheckAutomation] = automationOK
	if !automationOK {
		result.Issues = append(result.Issues, IssueAutomation)
	}

	result.Safe = len(result.Issues) == 0
	return result, err
}

// CheckRequestFrequency adds the current request to the sliding window and
// reports whether the window still holds at most requests_per_minute entries
func (g *PatternGuard) CheckRequestFrequency(ctx context.Context, userID string) (bool, error) {
	key := kvstore.RequestFrequencyKey(userID)
	now := g.now()
	window := g.policy.Window

	var requests []int64 // unix milliseconds
	if err := g.store.Get(ctx, key, &requests); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		metrics.StoreErrorsTotal.WithLabelValues("request_window").Inc()
		return true, fmt.Errorf("failed to load request window: %w", err)
	}

	cutoff := now.Add(-window).UnixMilli()
	valid := requests[:0]
	for _, ts := range requests {
		if ts > cutoff {
			valid = append(valid, ts)
		}
	}
	valid = append(valid, now.UnixMilli())

	if err := g.store.Put(ctx, key, valid, window); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("request_window").Inc()
		return true, fmt.Errorf("failed to save request window: %w", err)
	}
	return len(valid) <= g.policy.RequestsPerMinute, nil
}

// IsAutomatedUserAgent reports whether the user agent names a bot or scripting tool
func IsAutomatedUserAgent(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, indicator := range botIndicators {
		if strings.Contains(ua, indicator) {
			return true
		}
	}
	return false
}
