package service

import (
	"fmt"
	"math"
	"slices"

	"github.com/and161185/sakhatype/internal/errs"
	"github.com/and161185/sakhatype/internal/model"
)

// TimeModes is the set of accepted session durations in seconds.
type TimeModes []int

// DefaultTimeModes are the modes offered by the client.
var DefaultTimeModes = TimeModes{15, 30, 60, 120}

// Validate rejects modes outside the set.
func (m TimeModes) Validate(mode int) error {
	if !slices.Contains(m, mode) {
		return fmt.Errorf("%w: unknown time_mode %d", errs.ErrInvalidParameter, mode)
	}
	return nil
}

func validateLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", errs.ErrInvalidParameter, limit)
	}
	return nil
}

func validateSubmission(s model.Submission, modes TimeModes) error {
	floats := []struct {
		name string
		v    float64
	}{
		{"wpm", s.WPM},
		{"raw_wpm", s.RawWPM},
		{"accuracy", s.Accuracy},
		{"burst_wpm", s.BurstWPM},
		{"consistency", s.Consistency},
	}
	for _, f := range floats {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", errs.ErrInvalidParameter, f.name)
		}
	}
	if s.TotalErrors < 0 {
		return fmt.Errorf("%w: total_errors must be non-negative", errs.ErrInvalidParameter)
	}
	if s.TestDuration < 0 {
		return fmt.Errorf("%w: test_duration must be non-negative", errs.ErrInvalidParameter)
	}
	return modes.Validate(s.TimeMode)
}
