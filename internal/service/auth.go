// Package service contains application services for identity, results and leaderboards.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/sakhatype/internal/clock"
	pkgcrypto "github.com/and161185/sakhatype/internal/crypto"
	"github.com/and161185/sakhatype/internal/errs"
	"github.com/and161185/sakhatype/internal/limiter"
	"github.com/and161185/sakhatype/internal/model"
	"github.com/and161185/sakhatype/internal/progression"
	"github.com/and161185/sakhatype/internal/repository"
)

const maxUsernameLen = 64

// AuthService defines registration, login and token verification.
type AuthService interface {
	// Register creates a new user with zeroed statistics and returns an access token.
	Register(ctx context.Context, username, password string) (model.Tokens, error)
	// Login applies rate-limiting and authenticates the user.
	Login(ctx context.Context, username, password, ip string) (model.Tokens, error)
	// Authenticate verifies an access token and returns its username.
	Authenticate(ctx context.Context, token string) (string, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	clk       clock.Clock
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter, clk clock.Clock) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, clk: clk}
}

// Register hashes the password and stores a level-1 user.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (model.Tokens, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.Tokens{}, fmt.Errorf("%w: empty username/password", errs.ErrInvalidParameter)
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return model.Tokens{}, fmt.Errorf("%w: username longer than %d", errs.ErrInvalidParameter, maxUsernameLen)
	}
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return model.Tokens{}, err
	}

	u := &model.User{
		Username:     username,
		PasswordHash: hash,
		Level:        progression.Level(0),
		CreatedAt:    s.clk.Now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Tokens{}, err
	}
	return s.issueAccessToken(username)
}

// Login authenticates with rate limiting by (username, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, username, password, ip string) (model.Tokens, error) {
	username = strings.TrimSpace(username)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Tokens{}, err
	}
	if !allowed {
		return model.Tokens{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrUserNotFound) {
		return model.Tokens{}, err
	}
	ok := false
	if err == nil {
		ok, _ = pkgcrypto.VerifyPassword(password, u.PasswordHash)
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.Tokens{}, errs.ErrRateLimited
		}
		// unknown user and wrong password look the same
		return model.Tokens{}, errs.ErrUnauthorized
	}

	// best-effort
	_ = s.lim.Success(ctx, username, ipHash)

	return s.issueAccessToken(u.Username)
}

// Authenticate parses an HS256 token and returns its subject.
func (s *AuthServiceImpl) Authenticate(_ context.Context, token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(s.clk.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", errs.ErrUnauthorized)
	}
	return claims.Subject, nil
}

// issueAccessToken creates a signed HS256 JWT for the given username.
func (s *AuthServiceImpl) issueAccessToken(username string) (model.Tokens, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, err
	}
	now := s.clk.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, Username: username, ExpiresAt: exp}, nil
}
