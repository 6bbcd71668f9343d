package repository

import (
	"context"

	"github.com/and161185/sakhatype/internal/model"
)

// LeaderboardRepository runs the read-only ranking queries.
type LeaderboardRepository interface {
	// TopUsers ranks users with at least one test by the given best metric.
	TopUsers(ctx context.Context, metric model.Metric, limit int) ([]model.UserRanking, error)

	// TopByMode ranks users by their best wpm in timeMode among results inside w.
	// A zero window means all time.
	TopByMode(ctx context.Context, timeMode int, w model.Window, limit int) ([]model.ModeRanking, error)

	// TopWeeklyXP ranks users by sum(wpm+accuracy) over results inside w.
	TopWeeklyXP(ctx context.Context, w model.Window, limit int) ([]model.WeeklyXPRanking, error)
}
