package service

import (
	"context"

	"github.com/and161185/sakhatype/internal/model"
	"github.com/and161185/sakhatype/internal/repository"
)

// ProfileService reads single user aggregates.
type ProfileService interface {
	// Profile returns the user or errs.ErrUserNotFound.
	Profile(ctx context.Context, username string) (*model.User, error)
}

type ProfileServiceImpl struct {
	users repository.UserRepository
}

// NewProfileService constructs ProfileService.
func NewProfileService(users repository.UserRepository) *ProfileServiceImpl {
	return &ProfileServiceImpl{users: users}
}

// Profile loads a user by username.
func (s *ProfileServiceImpl) Profile(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// WordService hands out practice vocabulary.
type WordService interface {
	Words(ctx context.Context, limit int) ([]string, error)
}

type WordServiceImpl struct {
	words repository.WordRepository
}

// NewWordService constructs WordService.
func NewWordService(words repository.WordRepository) *WordServiceImpl {
	return &WordServiceImpl{words: words}
}

// Words returns up to limit random words.
func (s *WordServiceImpl) Words(ctx context.Context, limit int) ([]string, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	return s.words.Random(ctx, limit)
}
