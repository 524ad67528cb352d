package service

import (
	"context"
	"net/http"
	"time"

	"github.com/jengzang/geofence-verify/internal/metrics"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/rs/zerolog"
)

// Score deductions
const (
	maxSecurityScore     = 100
	securityIssuePenalty = 20
	deviceFailurePenalty = 30
	patternIssuePenalty  = 15
)

// Verification stages that can reject a request
const (
	StageSecurity = "security"
	StageDevice   = "device"
	StagePattern  = "pattern"
)

// VerifyRequest is everything the device and anti-spoofing stages read from a request
type VerifyRequest struct {
	UserID      string
	DeviceID    string
	Fingerprint models.DeviceFingerprint
	Payload     models.Payload
	Headers     http.Header
	Location    *models.LocationSample
	UserAgent   string
}

// VerifyOutcome holds each stage result. FailedStage is empty when the request passed.
type VerifyOutcome struct {
	Security     *models.SecurityResult
	Device       *models.DeviceResult
	Pattern      *models.PatternResult
	Score        int
	FailedStage  string
	Verification *models.SecurityVerification
}

// VerificationService runs security checks, the device registry and the pattern guard in order,
// stopping at the first stage that fails
type VerificationService struct {
	security *SecurityChecker
	devices  *DeviceRegistry
	patterns *PatternGuard
	logger   zerolog.Logger
	now      func() time.Time
}

// NewVerificationService wires the three stages together
func NewVerificationService(security *SecurityChecker, devices *DeviceRegistry, patterns *PatternGuard, logger zerolog.Logger) *VerificationService {
	return &VerificationService{
		security: security,
		devices:  devices,
		patterns: patterns,
		logger:   logger.With().Str("component", "verification").Logger(),
		now:      time.Now,
	}
}

// WithClock replaces the time source for verified_at
func (s *VerificationService) WithClock(now func() time.Time) *VerificationService {
	s.now = now
	return s
}

// Devices exposes the registry for the device admin endpoints
func (s *VerificationService) Devices() *DeviceRegistry {
	return s.devices
}

// Verify runs the stages. Store failures are logged and treated as a pass for the affected check.
func (s *VerificationService) Verify(ctx context.Context, req VerifyRequest) *VerifyOutcome {
	out := &VerifyOutcome{
		Device:  &models.DeviceResult{Valid: true, Checks: map[string]bool{}},
		Pattern: &models.PatternResult{Safe: true, Checks: map[string]bool{}, Issues: []string{}},
	}

	security, err := s.security.Check(ctx, SecurityRequest{
		UserID:   req.UserID,
		Payload:  req.Payload,
		Headers:  req.Headers,
		Location: req.Location,
	})
	s.logStoreError(err, req.UserID, StageSecurity)
	out.Security = security
	if !security.Passed {
		return s.fail(out, StageSecurity)
	}

	device, err := s.devices.Verify(ctx, req.UserID, req.DeviceID, req.Fingerprint)
	s.logStoreError(err, req.UserID, StageDevice)
	out.Device = device
	if !device.Valid {
		return s.fail(out, StageDevice)
	}

	pattern, err := s.patterns.Check(ctx, req.UserID, req.UserAgent)
	s.logStoreError(err, req.UserID, StagePattern)
	out.Pattern = pattern
	if !pattern.Safe {
		return s.fail(out, StagePattern)
	}

	out.Score = SecurityScore(out.Security, out.Device, out.Pattern)
	metrics.SecurityScore.Observe(float64(out.Score))
	out.Verification = &models.SecurityVerification{
		VerifiedAt:    s.now(),
		DeviceID:      device.DeviceID,
		SecurityScore: out.Score,
		ChecksPassed:  mergeChecks(security.Checks, device.Checks, pattern.Checks),
	}
	return out
}

func (s *VerificationService) fail(out *VerifyOutcome, stage string) *VerifyOutcome {
	out.FailedStage = stage
	out.Score = SecurityScore(out.Security, out.Device, out.Pattern)
	return out
}

func (s *VerificationService) logStoreError(err error, userID, stage string) {
	if err == nil {
		return
	}
	s.logger.Error().Err(err).Str("user_id", userID).Str("stage", stage).Msg("verification state unavailable, check skipped")
}

// SecurityScore starts at 100 and deducts 20 per security issue, 30 for an invalid device
// and 15 per suspicious pattern, never going below 0
func SecurityScore(security *models.SecurityResult, device *models.DeviceResult, pattern *models.PatternResult) int {
	score := maxSecurityScore
	if security != nil {
		score -= securityIssuePenalty * len(security.Issues)
	}
	if device != nil && !device.Valid {
		score -= deviceFailurePenalty
	}
	if pattern != nil {
		score -= patternIssuePenalty * len(pattern.Issues)
	}
	if score < 0 {
		return 0
	}
	return score
}

func mergeChecks(sets ...map[string]bool) map[string]bool {
	merged := map[string]bool{}
	for _, set := range sets {
		for k, v := range set {
			merged[k] = v
		}
	}
	return merged
}
