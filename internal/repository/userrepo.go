// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/sakhatype/internal/model"
)

// UserRepository provides access to user accounts and their aggregates.
type UserRepository interface {
	// Create inserts a new user; a taken username yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByUsername loads a user by username or returns errs.ErrUserNotFound.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}
