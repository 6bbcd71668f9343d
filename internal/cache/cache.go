// Package cache puts a short-lived read-through cache in front of leaderboard reads.
//
// Every key carries a generation number kept under genKey. Recording a result
// bumps the generation, so boards read after a write never see older entries.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/sakhatype/internal/clock"
	"github.com/and161185/sakhatype/internal/model"
	"github.com/and161185/sakhatype/internal/service"
)

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

const genKey = "lb:gen"

// Store is the minimal key/value surface the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) error
}

// RedisStore adapts a go-redis client to Store.
type RedisStore struct {
	rdb redis.Cmdable
}

// NewRedisStore wraps rdb.
func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Get maps redis.Nil to ErrMiss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, val, ttl).Err()
}

func (s *RedisStore) Incr(ctx context.Context, key string) error {
	return s.rdb.Incr(ctx, key).Err()
}

// Results decorates a ResultService and invalidates cached boards after each
// recorded result.
type Results struct {
	service.ResultService
	store Store
	log   *zap.Logger
}

var _ service.ResultService = (*Results)(nil)

func NewResults(next service.ResultService, store Store, log *zap.Logger) *Results {
	return &Results{ResultService: next, store: store, log: log}
}

func (r *Results) Record(ctx context.Context, username string, sub model.Submission) (*model.TestResult, error) {
	res, err := r.ResultService.Record(ctx, username, sub)
	if err != nil {
		return nil, err
	}
	if err := r.store.Incr(ctx, genKey); err != nil {
		r.log.Error("cache: invalidate failed", zap.String("username", username), zap.Error(err))
	}
	return res, nil
}

// Leaderboard decorates a LeaderboardService. Cache failures are logged and
// the call falls through to the wrapped service.
type Leaderboard struct {
	next  service.LeaderboardService
	store Store
	ttl   time.Duration
	clk   clock.Clock
	log   *zap.Logger
}

var _ service.LeaderboardService = (*Leaderboard)(nil)

// NewLeaderboard builds the caching decorator.
func NewLeaderboard(next service.LeaderboardService, store Store, ttl time.Duration, clk clock.Clock, log *zap.Logger) *Leaderboard {
	return &Leaderboard{next: next, store: store, ttl: ttl, clk: clk, log: log}
}

func (c *Leaderboard) Global(ctx context.Context, metric model.Metric, limit int) ([]model.UserRanking, error) {
	name := fmt.Sprintf("global:%s:%d", metric, limit)
	return readThrough(ctx, c, name, func() ([]model.UserRanking, error) {
		return c.next.Global(ctx, metric, limit)
	})
}

func (c *Leaderboard) TimeMode(ctx context.Context, mode, limit int) ([]model.ModeRanking, error) {
	name := fmt.Sprintf("mode:%d:%d", mode, limit)
	return readThrough(ctx, c, name, func() ([]model.ModeRanking, error) {
		return c.next.TimeMode(ctx, mode, limit)
	})
}

// DailyTimeMode keys on the UTC date so entries never outlive their day.
func (c *Leaderboard) DailyTimeMode(ctx context.Context, mode, limit int) ([]model.ModeRanking, error) {
	day := clock.StartOfDay(c.clk.Now()).Format(time.DateOnly)
	name := fmt.Sprintf("daily:%d:%s:%d", mode, day, limit)
	return readThrough(ctx, c, name, func() ([]model.ModeRanking, error) {
		return c.next.DailyTimeMode(ctx, mode, limit)
	})
}

func (c *Leaderboard) WeeklyXP(ctx context.Context, limit int) ([]model.WeeklyXPRanking, error) {
	name := fmt.Sprintf("weekly:%d", limit)
	return readThrough(ctx, c, name, func() ([]model.WeeklyXPRanking, error) {
		return c.next.WeeklyXP(ctx, limit)
	})
}

// generation returns the current key generation. A missing counter is generation 0.
func (c *Leaderboard) generation(ctx context.Context) (int64, error) {
	raw, err := c.store.Get(ctx, genKey)
	if errors.Is(err, ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

// readThrough bypasses the cache entirely when the generation is unknown.
func readThrough[T any](ctx context.Context, c *Leaderboard, name string, load func() ([]T, error)) ([]T, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn("cache: generation unavailable", zap.Error(err))
		return load()
	}
	key := fmt.Sprintf("lb:%d:%s", gen, name)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var out []T
		if uerr := json.Unmarshal(raw, &out); uerr == nil {
			return out, nil
		}
		c.log.Warn("cache: bad entry", zap.String("key", key))
	case !errors.Is(err, ErrMiss):
		c.log.Warn("cache: get failed", zap.String("key", key), zap.Error(err))
	}

	out, err := load()
	if err != nil {
		return nil, err
	}
	raw, err = json.Marshal(out)
	if err != nil {
		return out, nil
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.log.Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}
