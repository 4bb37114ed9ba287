package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrMalformedBatch = errors.New("malformed batch input")
	ErrInvalidRecord  = errors.New("invalid record")
	ErrUnknownVariant = errors.New("unknown normalization variant")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrLockHeld       = errors.New("lock already held")
)
