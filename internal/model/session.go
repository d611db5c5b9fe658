package model

import "time"

// Session represents a timed consultation published by an administrator.
// Patients claim numbered queue tokens within it; tokens are numbered
// 1..Capacity.  Sessions are immutable once created.
//
// Fields:
//  ID           – opaque unique identifier (UUID).
//  ProviderName – name of the doctor running the session.
//  Specialty    – specialty tag shown to patients.
//  StartTime    – scheduled start, always normalized to UTC.
//  Capacity     – number of distinct queue tokens.
//  FeeCents     – consultation fee in cents.
//  CreatedAt    – creation timestamp.
//  Bookings     – CONFIRMED bookings joined in by read operations.
type Session struct {
	ID           string    `json:"id"`            // sessions.id
	ProviderName string    `json:"provider_name"` // sessions.provider_name
	Specialty    string    `json:"specialty"`     // sessions.specialty
	StartTime    time.Time `json:"start_time"`    // sessions.starts_at_ms
	Capacity     int       `json:"capacity"`      // sessions.capacity
	FeeCents     int64     `json:"fee_cents"`     // sessions.fee_cents
	CreatedAt    time.Time `json:"created_at"`    // sessions.created_at_ms
	Bookings     []Booking `json:"bookings"`
}

// Fee returns the consultation fee as a decimal amount.
func (s Session) Fee() float64 { return float64(s.FeeCents) / 100 }
