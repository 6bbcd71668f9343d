package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/sakhatype/internal/errs"
	"github.com/and161185/sakhatype/internal/model"
	"github.com/and161185/sakhatype/internal/repository"
)

// ResultRepo implements ResultRepository using PostgreSQL.
type ResultRepo struct{ db *DB }

// NewResultRepo constructs a result repository.
func NewResultRepo(db *DB) *ResultRepo { return &ResultRepo{db: db} }

// Record locks the owner row, appends the result and writes the folded aggregates in one transaction.
// The row lock serializes concurrent submissions of the same user; other users do not contend.
func (r *ResultRepo) Record(
	ctx context.Context, res *model.TestResult, agg repository.Aggregator,
) (updated *model.User, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errs.NotPersisted(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			res.ID = 0
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = errs.NotPersisted(e)
			updated = nil
			res.ID = 0
		}
	}()

	const sel = `SELECT ` + userColumns + ` FROM users WHERE username=$1 FOR UPDATE`
	const ins = `
INSERT INTO test_results (username, wpm, raw_wpm, accuracy, burst_wpm, total_errors,
                          time_mode, test_duration, consistency, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id`
	const upd = `
UPDATE users
SET total_tests=$2, total_time_seconds=$3, best_wpm=$4, best_accuracy=$5,
    total_experience=$6, level=$7
WHERE username=$1`

	cur, err := scanUser(tx.QueryRow(ctx, sel, res.Username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrUserNotFound
		}
		return nil, errs.NotPersisted(err)
	}

	if err = tx.QueryRow(ctx, ins,
		res.Username, res.WPM, res.RawWPM, res.Accuracy, res.BurstWPM, res.TotalErrors,
		res.TimeMode, res.TestDuration, res.Consistency, res.CreatedAt,
	).Scan(&res.ID); err != nil {
		if isForeignKeyViolation(err) {
			return nil, errs.ErrUserNotFound
		}
		return nil, errs.NotPersisted(err)
	}

	next := agg(*cur, *res)
	if _, err = tx.Exec(ctx, upd,
		next.Username, next.TotalTests, next.TotalTimeSeconds, next.BestWPM, next.BestAccuracy,
		next.TotalExperience, next.Level,
	); err != nil {
		return nil, errs.NotPersisted(err)
	}
	return &next, nil
}

// ListByUser returns a user's results ordered by recency.
func (r *ResultRepo) ListByUser(ctx context.Context, username string, limit int) ([]model.TestResult, error) {
	const q = `
SELECT id, username, wpm, raw_wpm, accuracy, burst_wpm, total_errors,
       time_mode, test_duration, consistency, created_at
FROM test_results
WHERE username=$1
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TestResult{}
	for rows.Next() {
		var t model.TestResult
		if err = rows.Scan(
			&t.ID, &t.Username, &t.WPM, &t.RawWPM, &t.Accuracy, &t.BurstWPM, &t.TotalErrors,
			&t.TimeMode, &t.TestDuration, &t.Consistency, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
