package config

import (
	"strings"
	"time"
)

// Lock backends for the commit protocol.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// BookingConfig tunes the booking commit protocol.  LockWait bounds how long
// a commit waits for the per-session lock before failing as busy; LockTTL
// bounds how long a Redis lock survives a crashed holder.
type BookingConfig struct {
	LockBackend         string
	LockWait            time.Duration
	LockTTL             time.Duration
	LockPrefix          string
	MaxTokensPerBooking int
}

// LoadBookingConfig reads BOOKING_* variables, falling back to defaults.
func LoadBookingConfig() BookingConfig {
	cfg := BookingConfig{
		LockBackend:         strings.ToLower(envStr("LOCK_BACKEND", LockLocal)),
		LockWait:            envDur("BOOKING_LOCK_WAIT", 2*time.Second),
		LockTTL:             envDur("BOOKING_LOCK_TTL", 10*time.Second),
		LockPrefix:          envStr("BOOKING_LOCK_PREFIX", "lock:session"),
		MaxTokensPerBooking: envInt("BOOKING_MAX_TOKENS", 3),
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 2 * time.Second
	}
	if cfg.LockTTL < cfg.LockWait {
		cfg.LockTTL = cfg.LockWait
	}
	if cfg.MaxTokensPerBooking < 1 {
		cfg.MaxTokensPerBooking = 1
	}
	return cfg
}
