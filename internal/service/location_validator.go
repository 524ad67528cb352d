package service

import (
	"fmt"
	"math"
	"time"

	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/models"
	"github.com/jengzang/geofence-verify/internal/spatial"
)

// Validation messages
const (
	ErrInvalidLatitude  = "Invalid latitude value"
	ErrInvalidLongitude = "Invalid longitude value"
	ErrLocationTooOld   = "Location data is too old"
)

// LocationValidator checks coordinate ranges, GPS accuracy and freshness
type LocationValidator struct {
	policy config.GPSPolicy
	now    func() time.Time
}

// NewLocationValidator creates a validator for the given GPS policy
func NewLocationValidator(policy config.GPSPolicy) *LocationValidator {
	return &LocationValidator{policy: policy, now: time.Now}
}

// WithClock replaces the time source
func (v *LocationValidator) WithClock(now func() time.Time) *LocationValidator {
	v.now = now
	return v
}

// Validate accumulates every problem with the sample
func (v *LocationValidator) Validate(sample models.LocationSample) models.ValidationResult {
	problems := []string{}
	hard := false

	if !spatial.ValidLatitude(sample.Latitude) {
		problems = append(problems, ErrInvalidLatitude)
		hard = true
	}
	if !spatial.ValidLongitude(sample.Longitude) {
		problems = append(problems, ErrInvalidLongitude)
		hard = true
	}

	if sample.Accuracy != nil {
		accuracy := *sample.Accuracy
		if math.IsNaN(accuracy) || accuracy < v.policy.MinAccuracy || accuracy > v.policy.MaxAccuracy {
			problems = append(problems, fmt.Sprintf("GPS accuracy out of acceptable range (%g-%gm)",
				v.policy.MinAccuracy, v.policy.MaxAccuracy))
		}
	}

	if sample.Timestamp != nil && v.now().Sub(*sample.Timestamp) > v.policy.MaxLocationAge {
		problems = append(problems, ErrLocationTooOld)
		hard = true
	}

	return models.ValidationResult{
		Valid:    len(problems) == 0,
		Errors:   problems,
		Advisory: len(problems) > 0 && !hard,
	}
}
