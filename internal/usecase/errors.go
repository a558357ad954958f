package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrRateLimited           = errors.New("rate limited by upstream")
	ErrMalformedResponse     = errors.New("malformed upstream response")
)
