package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect names accepted by EnsureSchema.
const (
	MySQL  = "mysql"
	SQLite = "sqlite"
)

// Both dialects share column names and types; only the auto-increment
// sequence column differs.  seq records insertion order for tie-breaking.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		seq           BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id            VARCHAR(36) NOT NULL UNIQUE,
		provider_name VARCHAR(200) NOT NULL,
		specialty     VARCHAR(120) NOT NULL,
		starts_at_ms  BIGINT NOT NULL,
		capacity      INT NOT NULL,
		fee_cents     BIGINT NOT NULL,
		created_at_ms BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		seq           BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id            VARCHAR(36) NOT NULL UNIQUE,
		session_id    VARCHAR(36) NOT NULL,
		patient_id    VARCHAR(64) NOT NULL,
		status        VARCHAR(16) NOT NULL,
		created_at_ms BIGINT NOT NULL,
		INDEX idx_bookings_session (session_id),
		INDEX idx_bookings_patient (patient_id),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	)`,
	`CREATE TABLE IF NOT EXISTS booking_tokens (
		session_id VARCHAR(36) NOT NULL,
		token      INT NOT NULL,
		booking_id VARCHAR(36) NOT NULL,
		PRIMARY KEY (session_id, token),
		FOREIGN KEY (booking_id) REFERENCES bookings(id)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		seq           BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id            VARCHAR(36) NOT NULL UNIQUE,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16) NOT NULL,
		created_at_ms BIGINT NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		provider_name TEXT NOT NULL,
		specialty     TEXT NOT NULL,
		starts_at_ms  INTEGER NOT NULL,
		capacity      INTEGER NOT NULL,
		fee_cents     INTEGER NOT NULL,
		created_at_ms INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		session_id    TEXT NOT NULL REFERENCES sessions(id),
		patient_id    TEXT NOT NULL,
		status        TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_session ON bookings(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_patient ON bookings(patient_id)`,
	`CREATE TABLE IF NOT EXISTS booking_tokens (
		session_id TEXT NOT NULL,
		token      INTEGER NOT NULL,
		booking_id TEXT NOT NULL REFERENCES bookings(id),
		PRIMARY KEY (session_id, token)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL
	)`,
}

// EnsureSchema creates the tables used by the SQL store when they do not
// exist yet.  Statements are idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect string) error {
	var stmts []string
	switch dialect {
	case MySQL:
		stmts = mysqlSchema
	case SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("unknown dialect %q", dialect)
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
