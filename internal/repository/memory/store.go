// Package memory implements the repository interfaces in process memory.
// It backs the "memory" store mode and end-to-end service tests.
package memory

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/and161185/sakhatype/internal/errs"
	"github.com/and161185/sakhatype/internal/model"
	"github.com/and161185/sakhatype/internal/repository"
)

var (
	_ repository.UserRepository        = (*Store)(nil)
	_ repository.ResultRepository      = (*Store)(nil)
	_ repository.LeaderboardRepository = (*Store)(nil)
	_ repository.WordRepository        = (*Store)(nil)
	_ repository.Pinger                = (*Store)(nil)
)

// Store keeps users, results and words behind one lock, so a recorded result and
// its aggregate update become visible to readers together.
type Store struct {
	mu      sync.RWMutex
	users   map[string]model.User
	results []model.TestResult
	nextID  int64
	words   []string
}

// New returns an empty store seeded with the given practice words.
func New(words ...string) *Store {
	return &Store{
		users: map[string]model.User{},
		words: append([]string(nil), words...),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Create inserts a new user.
func (s *Store) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return errs.ErrAlreadyExists
	}
	s.users[u.Username] = *u
	return nil
}

// GetByUsername returns a copy of the user.
func (s *Store) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return &u, nil
}

// Record appends r and stores agg's output for its owner under the write lock.
func (s *Store) Record(ctx context.Context, r *model.TestResult, agg repository.Aggregator) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.NotPersisted(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[r.Username]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	s.nextID++
	r.ID = s.nextID
	s.results = append(s.results, *r)

	next := agg(cur, *r)
	s.users[r.Username] = next
	return &next, nil
}

// ListByUser returns a user's results, newest first.
func (s *Store) ListByUser(_ context.Context, username string, limit int) ([]model.TestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.TestResult{}
	for _, r := range s.results {
		if r.Username == username {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b model.TestResult) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return truncate(out, limit), nil
}

// TopUsers ranks users with at least one test by the chosen best metric, then username.
func (s *Store) TopUsers(_ context.Context, metric model.Metric, limit int) ([]model.UserRanking, error) {
	if !metric.Valid() {
		return nil, errs.ErrInvalidParameter
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.UserRanking{}
	for _, u := range s.users {
		if u.TotalTests == 0 {
			continue
		}
		out = append(out, model.UserRanking{
			Username:     u.Username,
			BestWPM:      u.BestWPM,
			BestAccuracy: u.BestAccuracy,
			TotalTests:   u.TotalTests,
			Level:        u.Level,
		})
	}
	score := func(e model.UserRanking) float64 {
		if metric == model.MetricAccuracy {
			return e.BestAccuracy
		}
		return e.BestWPM
	}
	slices.SortFunc(out, func(a, b model.UserRanking) int {
		if c := cmp.Compare(score(b), score(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
	return truncate(out, limit), nil
}

// TopByMode ranks each user's best-wpm result in timeMode inside w.
// Among equal best scores the earliest result represents the user.
func (s *Store) TopByMode(_ context.Context, timeMode int, w model.Window, limit int) ([]model.ModeRanking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := map[string]model.TestResult{}
	for _, r := range s.results {
		if r.TimeMode != timeMode || !w.Contains(r.CreatedAt) {
			continue
		}
		cur, ok := best[r.Username]
		if !ok || betterModeRow(r, cur) {
			best[r.Username] = r
		}
	}

	out := make([]model.ModeRanking, 0, len(best))
	for name, r := range best {
		u, ok := s.users[name]
		if !ok {
			continue
		}
		out = append(out, model.ModeRanking{
			Username:    name,
			WPM:         r.WPM,
			Accuracy:    r.Accuracy,
			RawWPM:      r.RawWPM,
			Consistency: r.Consistency,
			Date:        r.CreatedAt,
			Level:       u.Level,
		})
	}
	slices.SortFunc(out, func(a, b model.ModeRanking) int {
		if c := cmp.Compare(b.WPM, a.WPM); c != 0 {
			return c
		}
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
	return truncate(out, limit), nil
}

func betterModeRow(r, cur model.TestResult) bool {
	if r.WPM != cur.WPM {
		return r.WPM > cur.WPM
	}
	if !r.CreatedAt.Equal(cur.CreatedAt) {
		return r.CreatedAt.Before(cur.CreatedAt)
	}
	return r.ID < cur.ID
}

// TopWeeklyXP sums wpm+accuracy, duration and last activity per user inside w.
func (s *Store) TopWeeklyXP(_ context.Context, w model.Window, limit int) ([]model.WeeklyXPRanking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc := map[string]*model.WeeklyXPRanking{}
	for _, r := range s.results {
		if !w.Contains(r.CreatedAt) {
			continue
		}
		u, ok := s.users[r.Username]
		if !ok {
			continue
		}
		e, ok := acc[r.Username]
		if !ok {
			e = &model.WeeklyXPRanking{Username: r.Username, Level: u.Level}
			acc[r.Username] = e
		}
		e.XPGained += r.WPM + r.Accuracy
		e.TimeTyped += int64(r.TestDuration)
		if r.CreatedAt.After(e.LastActivity) {
			e.LastActivity = r.CreatedAt
		}
	}

	out := make([]model.WeeklyXPRanking, 0, len(acc))
	for _, e := range acc {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b model.WeeklyXPRanking) int {
		if c := cmp.Compare(b.XPGained, a.XPGained); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
	return truncate(out, limit), nil
}

// Random returns up to limit shuffled words.
func (s *Store) Random(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	out := append([]string{}, s.words...)
	s.mu.RUnlock()

	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return truncate(out, limit), nil
}

func truncate[T any](s []T, limit int) []T {
	if limit >= 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
