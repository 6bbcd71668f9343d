// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrUserNotFound indicates the referenced username has no user aggregate.
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotPersisted indicates a store write failed or was rolled back.
	ErrNotPersisted = errors.New("not persisted")

	// ErrInvalidParameter indicates a rejected input (limit, time mode, negative metric).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// NotPersisted marks a store write failure while keeping the cause matchable.
func NotPersisted(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrNotPersisted, err)
}
