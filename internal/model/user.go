package model

import "time"

// Roles carried in access tokens.
const (
	RoleAdmin   = "ADMIN"
	RolePatient = "PATIENT"
)

// User represents an account stored in the `users` table.  Patients
// register themselves; administrators are provisioned from configuration.
//
// Fields:
//  ID           – opaque unique identifier (UUID).
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or PATIENT.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           string    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at_ms
}
