package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/sakhatype/internal/errs"
	"github.com/and161185/sakhatype/internal/model"
)

const userColumns = `username, password_hash, total_tests, total_time_seconds,
       best_wpm, best_accuracy, total_experience, level, created_at`

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row with zeroed aggregates.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (username, password_hash, total_tests, total_time_seconds,
                   best_wpm, best_accuracy, total_experience, level, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Pool.Exec(ctx, q,
		u.Username, u.PasswordHash, u.TotalTests, u.TotalTimeSeconds,
		u.BestWPM, u.BestAccuracy, u.TotalExperience, u.Level, u.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return errs.NotPersisted(err)
	}
	return nil
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.Username, &u.PasswordHash, &u.TotalTests, &u.TotalTimeSeconds,
		&u.BestWPM, &u.BestAccuracy, &u.TotalExperience, &u.Level, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
