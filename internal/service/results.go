package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/sakhatype/internal/clock"
	"github.com/and161185/sakhatype/internal/errs"
	"github.com/and161185/sakhatype/internal/model"
	"github.com/and161185/sakhatype/internal/progression"
	"github.com/and161185/sakhatype/internal/repository"
)

// ResultService records typing sessions and lists a user's history.
type ResultService interface {
	// Record stamps and stores a submission for an authenticated user and folds it into
	// the user's statistics atomically.
	Record(ctx context.Context, username string, sub model.Submission) (*model.TestResult, error)
	// History returns the user's results, newest first.
	History(ctx context.Context, username string, limit int) ([]model.TestResult, error)
}

type ResultServiceImpl struct {
	repo  repository.ResultRepository
	modes TimeModes
	clk   clock.Clock
	log   *zap.Logger
}

// NewResultService constructs ResultService.
func NewResultService(repo repository.ResultRepository, modes TimeModes, clk clock.Clock, log *zap.Logger) *ResultServiceImpl {
	if len(modes) == 0 {
		modes = DefaultTimeModes
	}
	return &ResultServiceImpl{repo: repo, modes: modes, clk: clk, log: log}
}

// Record validates the submission and persists it together with the aggregate update.
// A username without a user row is rejected with errs.ErrUserNotFound and nothing is stored.
func (s *ResultServiceImpl) Record(ctx context.Context, username string, sub model.Submission) (*model.TestResult, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: empty username", errs.ErrInvalidParameter)
	}
	if err := validateSubmission(sub, s.modes); err != nil {
		return nil, err
	}

	res := model.NewTestResult(username, sub, s.clk.Now())
	u, err := s.repo.Record(ctx, &res, progression.ApplyResult)
	if err != nil {
		return nil, err
	}

	s.log.Debug("result recorded",
		zap.String("username", username),
		zap.Int64("result_id", res.ID),
		zap.Int("time_mode", res.TimeMode),
		zap.Int("total_experience", u.TotalExperience),
		zap.Int("level", u.Level),
	)
	return &res, nil
}

// History validates the limit and delegates to the repository.
func (s *ResultServiceImpl) History(ctx context.Context, username string, limit int) ([]model.TestResult, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, username, limit)
}
