// Package queue defines message payloads exchanged over the message broker
// together with the publisher used by the commit path and the consumer that
// turns confirmed bookings into log lines.
package queue

// BookingConfirmedQueue is the default queue name for confirmed bookings.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a booking is committed.  It
// carries enough of the session for downstream consumers to log or notify
// without reading the store.
type BookingConfirmedEvent struct {
	BookingID    string `json:"booking_id"`
	SessionID    string `json:"session_id"`
	PatientID    string `json:"patient_id"`
	ProviderName string `json:"provider_name"`
	Specialty    string `json:"specialty"`
	StartsAt     string `json:"starts_at"`
	TokenIDs     []int  `json:"tokens"`
	FeeCents     int64  `json:"fee_cents"`
	ConfirmedAt  string `json:"confirmed_at"`
}
