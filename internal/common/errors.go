// Package common defines shared constants and sentinel errors used across
// the console, the store server and the storage backends. Callers should use
// errors.Is to match these values; operation errors are usually wrapped
// together with the underlying store error.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorUnavailable  = errors.New("store unavailable")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Operation errors reported to the operator.
	ErrValidation   = errors.New("validation error")
	ErrWrite        = errors.New("write error")
	ErrDelete       = errors.New("delete error")
	ErrUpload       = errors.New("upload error")
	ErrSubscription = errors.New("subscription error")

	// ErrRefresh marks a failed re-fetch after an otherwise successful mutation.
	ErrRefresh = errors.New("refresh error")

	// ErrBusy rejects a second submit while the first one is still pending.
	ErrBusy = errors.New("operation in progress")
)
