// Package service holds the booking core: the session registry, the token
// ledger, the booking commit protocol, the read-side query facade and
// account authentication.  Handlers depend on the services; the services
// depend on repository.Store and lock.Locker.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Failure kinds returned by the services.  Callers classify with errors.Is.
var (
	ErrNotFound         = errors.New("session not found")
	ErrInvalidToken     = errors.New("token outside session range")
	ErrLimitExceeded    = errors.New("too many tokens in one booking")
	ErrConflict         = errors.New("token already booked")
	ErrCapacityExceeded = errors.New("session capacity exceeded")
	ErrBusy             = errors.New("session busy, retry")
	ErrStorage          = errors.New("storage failure")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// ValidationError reports malformed input.  Fields maps the offending input
// field to a human-readable reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// TokenError attaches the tokens involved to ErrInvalidToken or
// ErrConflict.  For a conflict Tokens lists every token already taken in the
// session so the client can refresh its view.
type TokenError struct {
	Err    error
	Tokens []int
}

func (e *TokenError) Error() string { return fmt.Sprintf("%v: %v", e.Err, e.Tokens) }

func (e *TokenError) Unwrap() error { return e.Err }

// StorageError wraps a failure of the underlying store.  It matches
// ErrStorage with errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error { return &StorageError{Op: op, Err: err} }
