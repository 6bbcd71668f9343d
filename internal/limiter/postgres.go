package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/and161185/sakhatype/internal/clock"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG keeps failure streaks in the login_attempts table.
type PG struct {
	q        querier
	clk      clock.Clock
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

// NewPG constructs a PostgreSQL-backed limiter. A streak older than window restarts at one;
// maxFails failures inside it block the pair for blockFor.
func NewPG(q querier, clk clock.Clock, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return &PG{q: q, clk: clk, window: window, maxFails: maxFails, blockFor: blockFor}
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM login_attempts WHERE username=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, username, ipHash).Scan(&blockedUntil)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	case err != nil:
		return false, 0, err
	}
	if now := l.clk.Now(); blockedUntil.After(now) {
		return false, blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success resets the streak for (username, ip).
func (l *PG) Success(ctx context.Context, username string, ipHash []byte) error {
	const q = `DELETE FROM login_attempts WHERE username=$1 AND ip_hash=$2`
	_, err := l.q.Exec(ctx, q, username, ipHash)
	return err
}

// Failure extends or restarts the streak and blocks once it reaches maxFails.
func (l *PG) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	now := l.clk.Now()

	const q = `
INSERT INTO login_attempts (username, ip_hash, fail_count, first_failed_at, blocked_until)
VALUES ($1, $2, 1, $3, 'epoch')
ON CONFLICT (username, ip_hash) DO UPDATE
SET fail_count = CASE WHEN login_attempts.first_failed_at < $4 THEN 1 ELSE login_attempts.fail_count + 1 END,
    first_failed_at = CASE WHEN login_attempts.first_failed_at < $4 THEN $3 ELSE login_attempts.first_failed_at END
RETURNING fail_count`
	var fails int
	if err := l.q.QueryRow(ctx, q, username, ipHash, now, now.Add(-l.window)).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.maxFails {
		return false, 0, nil
	}

	const upd = `UPDATE login_attempts SET blocked_until=$3 WHERE username=$1 AND ip_hash=$2`
	if _, err := l.q.Exec(ctx, upd, username, ipHash, now.Add(l.blockFor)); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}
