// Package repository defines the persistence layer.  Store is the
// abstraction the services depend on; SQLStore and MemoryStore implement it.
// The sentinel errors below let higher layers tell failure scenarios apart
// without knowing which backend produced them.
package repository

import "errors"

// ErrSessionNotFound is returned when no session has the requested id.
var ErrSessionNotFound = errors.New("session not found")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registering an email that is already used.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenTaken is returned by InsertBooking when the storage-level
// uniqueness guard on (session, token) rejects the write.  Handlers should
// translate this into an HTTP 409 response.
var ErrTokenTaken = errors.New("token already taken")
