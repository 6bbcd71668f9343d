package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/sakhatype/internal/errs"
	"github.com/and161185/sakhatype/internal/model"
)

// Global rankings read the user aggregates directly.
const (
	topByWPMQuery = `
SELECT username, best_wpm, best_accuracy, total_tests, level
FROM users
WHERE total_tests > 0
ORDER BY best_wpm DESC, username ASC
LIMIT $1`

	topByAccuracyQuery = `
SELECT username, best_wpm, best_accuracy, total_tests, level
FROM users
WHERE total_tests > 0
ORDER BY best_accuracy DESC, username ASC
LIMIT $1`
)

// bestPerModeTmpl picks each user's best-wpm row in a mode (earliest on ties) and ranks them.
// The %s slot takes an optional created_at filter.
const bestPerModeTmpl = `
SELECT b.username, b.wpm, b.accuracy, b.raw_wpm, b.consistency, b.created_at, u.level
FROM (
    SELECT DISTINCT ON (r.username)
           r.username, r.wpm, r.accuracy, r.raw_wpm, r.consistency, r.created_at
    FROM test_results r
    WHERE r.time_mode = $1%s
    ORDER BY r.username, r.wpm DESC, r.created_at ASC, r.id ASC
) b
JOIN users u ON u.username = b.username
ORDER BY b.wpm DESC, b.created_at ASC, b.username ASC
LIMIT $2`

var (
	bestPerModeAllTimeQuery = fmt.Sprintf(bestPerModeTmpl, "")
	bestPerModeWindowQuery  = fmt.Sprintf(bestPerModeTmpl, "\n      AND r.created_at >= $3 AND r.created_at < $4")
)

// weeklyXPTmpl takes an optional upper created_at bound in its %s slot.
const weeklyXPTmpl = `
SELECT r.username,
       SUM(r.wpm + r.accuracy) AS xp_gained,
       SUM(r.test_duration)    AS time_typed,
       MAX(r.created_at)       AS last_activity,
       u.level
FROM test_results r
JOIN users u ON u.username = r.username
WHERE r.created_at >= $1%s
GROUP BY r.username, u.level
ORDER BY xp_gained DESC, r.username ASC
LIMIT $2`

var (
	weeklyXPOpenQuery    = fmt.Sprintf(weeklyXPTmpl, "")
	weeklyXPBoundedQuery = fmt.Sprintf(weeklyXPTmpl, " AND r.created_at < $3")
)

// LeaderboardRepo implements LeaderboardRepository with set-oriented SQL.
type LeaderboardRepo struct{ db *DB }

// NewLeaderboardRepo constructs a leaderboard repository.
func NewLeaderboardRepo(db *DB) *LeaderboardRepo { return &LeaderboardRepo{db: db} }

// TopUsers ranks users with at least one test by best wpm or best accuracy.
func (r *LeaderboardRepo) TopUsers(ctx context.Context, metric model.Metric, limit int) ([]model.UserRanking, error) {
	var q string
	switch metric {
	case model.MetricWPM:
		q = topByWPMQuery
	case model.MetricAccuracy:
		q = topByAccuracyQuery
	default:
		return nil, fmt.Errorf("%w: metric %q", errs.ErrInvalidParameter, metric)
	}

	rows, err := r.db.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.UserRanking{}
	for rows.Next() {
		var e model.UserRanking
		if err = rows.Scan(&e.Username, &e.BestWPM, &e.BestAccuracy, &e.TotalTests, &e.Level); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TopByMode ranks users by their best wpm in a time mode, optionally within a created_at window.
func (r *LeaderboardRepo) TopByMode(ctx context.Context, timeMode int, w model.Window, limit int) ([]model.ModeRanking, error) {
	q, args := bestPerModeAllTimeQuery, []any{timeMode, limit}
	if !w.IsZero() {
		q, args = bestPerModeWindowQuery, append(args, w.From, w.To)
	}

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ModeRanking{}
	for rows.Next() {
		var e model.ModeRanking
		if err = rows.Scan(&e.Username, &e.WPM, &e.Accuracy, &e.RawWPM, &e.Consistency, &e.Date, &e.Level); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TopWeeklyXP sums wpm+accuracy per user over results created inside w.
func (r *LeaderboardRepo) TopWeeklyXP(ctx context.Context, w model.Window, limit int) ([]model.WeeklyXPRanking, error) {
	q, args := weeklyXPOpenQuery, []any{w.From, limit}
	if !w.To.IsZero() {
		q, args = weeklyXPBoundedQuery, append(args, w.To)
	}
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.WeeklyXPRanking{}
	for rows.Next() {
		var e model.WeeklyXPRanking
		if err = rows.Scan(&e.Username, &e.XPGained, &e.TimeTyped, &e.LastActivity, &e.Level); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
