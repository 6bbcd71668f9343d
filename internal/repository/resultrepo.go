package repository

import (
	"context"

	"github.com/and161185/sakhatype/internal/model"
)

// Aggregator folds a freshly inserted result into the owner's aggregates.
type Aggregator func(u model.User, r model.TestResult) model.User

// ResultRepository stores the append-only result log.
type ResultRepository interface {
	// Record inserts r and applies agg to the owner's row as one transaction.
	// The owner row is locked for the duration; r.ID is filled on success.
	// A missing owner yields errs.ErrUserNotFound and nothing is written.
	Record(ctx context.Context, r *model.TestResult, agg Aggregator) (*model.User, error)

	// ListByUser returns a user's results, newest first.
	ListByUser(ctx context.Context, username string, limit int) ([]model.TestResult, error)
}
