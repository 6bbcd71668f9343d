package service

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/sakhatype/internal/clock"
	"github.com/and161185/sakhatype/internal/errs"
	"github.com/and161185/sakhatype/internal/model"
	"github.com/and161185/sakhatype/internal/repository"
)

// WeeklyWindowDays is the length of the trailing weekly-XP window.
const WeeklyWindowDays = 7

// LeaderboardService exposes the read-only ranking views.
type LeaderboardService interface {
	// Global ranks users with at least one test by best wpm or best accuracy.
	Global(ctx context.Context, metric model.Metric, limit int) ([]model.UserRanking, error)
	// TimeMode ranks users by their all-time best wpm in a mode.
	TimeMode(ctx context.Context, mode, limit int) ([]model.ModeRanking, error)
	// DailyTimeMode is TimeMode restricted to the current UTC day.
	DailyTimeMode(ctx context.Context, mode, limit int) ([]model.ModeRanking, error)
	// WeeklyXP ranks users by sum(wpm+accuracy) over the trailing seven days.
	WeeklyXP(ctx context.Context, limit int) ([]model.WeeklyXPRanking, error)
}

type LeaderboardServiceImpl struct {
	repo  repository.LeaderboardRepository
	modes TimeModes
	clk   clock.Clock
}

// NewLeaderboardService constructs LeaderboardService. Windows are derived from clk at query time.
func NewLeaderboardService(repo repository.LeaderboardRepository, modes TimeModes, clk clock.Clock) *LeaderboardServiceImpl {
	if len(modes) == 0 {
		modes = DefaultTimeModes
	}
	return &LeaderboardServiceImpl{repo: repo, modes: modes, clk: clk}
}

// Global validates the metric and limit.
func (s *LeaderboardServiceImpl) Global(ctx context.Context, metric model.Metric, limit int) ([]model.UserRanking, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: unknown metric %q", errs.ErrInvalidParameter, metric)
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	return s.repo.TopUsers(ctx, metric, limit)
}

// TimeMode ranks over all results of the mode.
func (s *LeaderboardServiceImpl) TimeMode(ctx context.Context, mode, limit int) ([]model.ModeRanking, error) {
	if err := s.validateMode(mode, limit); err != nil {
		return nil, err
	}
	return s.repo.TopByMode(ctx, mode, model.Window{}, limit)
}

// DailyTimeMode ranks over results created in [today 00:00 UTC, tomorrow 00:00 UTC).
func (s *LeaderboardServiceImpl) DailyTimeMode(ctx context.Context, mode, limit int) ([]model.ModeRanking, error) {
	if err := s.validateMode(mode, limit); err != nil {
		return nil, err
	}
	from, to := clock.Day(s.clk.Now())
	return s.repo.TopByMode(ctx, mode, model.Window{From: from, To: to}, limit)
}

// WeeklyXP ranks over results created from now minus seven days through now.
func (s *LeaderboardServiceImpl) WeeklyXP(ctx context.Context, limit int) ([]model.WeeklyXPRanking, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	now := s.clk.Now()
	// To is exclusive and stored timestamps keep microseconds, so a result stamped at now still counts.
	w := model.Window{From: clock.TrailingDays(now, WeeklyWindowDays), To: now.Add(time.Microsecond)}
	return s.repo.TopWeeklyXP(ctx, w, limit)
}

func (s *LeaderboardServiceImpl) validateMode(mode, limit int) error {
	if err := s.modes.Validate(mode); err != nil {
		return err
	}
	return validateLimit(limit)
}
