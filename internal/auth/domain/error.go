package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidSession     = errors.New("invalid_session")
	ErrSessionNotFound    = errors.New("session_not_found")
	ErrAdminNotFound      = errors.New("admin_not_found")
	ErrAdminExists        = errors.New("admin_exists")
	ErrInvalidResetToken  = errors.New("invalid_reset_token")
	ErrResetTokenExpired  = errors.New("reset_token_expired")
	ErrRateLimited        = errors.New("rate_limited")
)

// RateLimitedError carries how long the caller should wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }
