package repository

import (
	"context"

	"github.com/iliyamo/clinic-queue/internal/model"
)

// Store holds the two booking collections, sessions and bookings.  The
// session registry and the commit protocol are its only writers.  Read
// methods return snapshots; a read racing a commit may observe either side
// of it.
type Store interface {
	CreateSession(ctx context.Context, s model.Session) error
	GetSession(ctx context.Context, id string) (model.Session, error)
	// ListSessions orders by start time, then insertion order.  Bookings are
	// not joined.
	ListSessions(ctx context.Context) ([]model.Session, error)
	// ConfirmedBookings returns CONFIRMED bookings of the given sessions, or
	// of every session when no id is passed, in commit order.
	ConfirmedBookings(ctx context.Context, sessionIDs ...string) ([]model.Booking, error)
	// BookingsByPatient returns a patient's CONFIRMED bookings, newest first.
	BookingsByPatient(ctx context.Context, patientID string) ([]model.Booking, error)
	// InSession runs fn while holding exclusive write access to the
	// session's booking log.  Writes made through the BookingTx are
	// discarded when fn returns an error.  Returns ErrSessionNotFound when
	// the session does not exist.
	InSession(ctx context.Context, sessionID string, fn func(tx BookingTx) error) error
}

// BookingTx is the view of one session's booking log handed to InSession
// callbacks.
type BookingTx interface {
	// ConfirmedBookings reads the authoritative booking set, including
	// bookings inserted earlier in the same transaction.
	ConfirmedBookings(ctx context.Context) ([]model.Booking, error)
	InsertBooking(ctx context.Context, b model.Booking) error
}

// UserStore persists accounts used for authentication.
type UserStore interface {
	CreateUser(ctx context.Context, u model.User) error
	UserByEmail(ctx context.Context, email string) (model.User, error)
	UserByID(ctx context.Context, id string) (model.User, error)
}
