package model

import "time"

// Booking statuses.  Only CONFIRMED bookings hold tokens.  FAILED is kept
// so that stored rows written by other tools remain readable; the commit
// path never writes it.
const (
	BookingConfirmed = "CONFIRMED"
	BookingFailed    = "FAILED"
)

// Booking records a patient's claim on one or more queue tokens of a
// session.  Bookings are append-only: they are never updated or deleted.
//
// Fields:
//  ID        – opaque unique identifier (UUID).
//  SessionID – session the tokens belong to.
//  PatientID – user who made the booking.
//  TokenIDs  – claimed token numbers, sorted ascending.
//  Status    – CONFIRMED or FAILED.
//  CreatedAt – commit timestamp (UTC).
type Booking struct {
	ID        string    `json:"id"`         // bookings.id
	SessionID string    `json:"session_id"` // bookings.session_id
	PatientID string    `json:"patient_id"` // bookings.patient_id
	TokenIDs  []int     `json:"token_ids"`  // booking_tokens.token
	Status    string    `json:"status"`     // bookings.status
	CreatedAt time.Time `json:"created_at"` // bookings.created_at_ms
}
