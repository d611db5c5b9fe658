package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/clinic-queue/internal/model"
)

// bookingQuerier is satisfied by *sql.DB and *sql.Tx so that reads can run
// inside or outside a transaction.
type bookingQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryBookings loads bookings joined with their tokens.  where is appended
// after the CONFIRMED filter and must start with "AND" when non-empty.
// Rows arrive ordered by booking, so tokens are folded into the previous
// booking while its id repeats.
func queryBookings(ctx context.Context, q bookingQuerier, where, order string, args ...any) ([]model.Booking, error) {
	query := `SELECT b.id, b.session_id, b.patient_id, b.status, b.created_at_ms, t.token
	          FROM bookings b
	          JOIN booking_tokens t ON t.booking_id = b.id
	          WHERE b.status = ? ` + where + `
	          ORDER BY ` + order + `, t.token ASC`
	rows, err := q.QueryContext(ctx, query, append([]any{model.BookingConfirmed}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		var (
			b         model.Booking
			createdAt int64
			token     int
		)
		if err := rows.Scan(&b.ID, &b.SessionID, &b.PatientID, &b.Status, &createdAt, &token); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].ID == b.ID {
			out[n-1].TokenIDs = append(out[n-1].TokenIDs, token)
			continue
		}
		b.CreatedAt = fromMillis(createdAt)
		b.TokenIDs = []int{token}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmedBookings returns CONFIRMED bookings for the given sessions (all
// sessions when none are given) in commit order.
func (s *SQLStore) ConfirmedBookings(ctx context.Context, sessionIDs ...string) ([]model.Booking, error) {
	if len(sessionIDs) == 0 {
		return queryBookings(ctx, s.db, "", "b.seq ASC")
	}
	args := make([]any, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		args = append(args, id)
	}
	where := `AND b.session_id IN (` + placeholders(len(sessionIDs)) + `)`
	return queryBookings(ctx, s.db, where, "b.seq ASC", args...)
}

// BookingsByPatient returns the CONFIRMED bookings made by a patient,
// newest first.
func (s *SQLStore) BookingsByPatient(ctx context.Context, patientID string) ([]model.Booking, error) {
	return queryBookings(ctx, s.db, "AND b.patient_id = ?", "b.seq DESC", patientID)
}

// InSession begins a transaction, locks the session row and hands fn a
// BookingTx bound to that transaction.  The transaction commits only when
// fn returns nil.
func (s *SQLStore) InSession(ctx context.Context, sessionID string, fn func(tx BookingTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE id = ?`+s.lockClause, sessionID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("lock session: %w", err)
	}

	if err := fn(&sqlBookingTx{tx: tx, sessionID: sessionID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// sqlBookingTx is the BookingTx handed out by SQLStore.InSession.
type sqlBookingTx struct {
	tx        *sql.Tx
	sessionID string
}

func (t *sqlBookingTx) ConfirmedBookings(ctx context.Context) ([]model.Booking, error) {
	return queryBookings(ctx, t.tx, "AND b.session_id = ?", "b.seq ASC", t.sessionID)
}

// InsertBooking writes the booking row and, for CONFIRMED bookings, one
// booking_tokens row per token in a single statement.  The primary key on
// (session_id, token) makes a second claim on a token fail with
// ErrTokenTaken even if the caller skipped its own check.
func (t *sqlBookingTx) InsertBooking(ctx context.Context, b model.Booking) error {
	if b.SessionID != t.sessionID {
		return fmt.Errorf("booking for session %s inserted in transaction of %s", b.SessionID, t.sessionID)
	}
	const q = `INSERT INTO bookings (id, session_id, patient_id, status, created_at_ms) VALUES (?, ?, ?, ?, ?)`
	if _, err := t.tx.ExecContext(ctx, q, b.ID, b.SessionID, b.PatientID, b.Status, toMillis(b.CreatedAt)); err != nil {
		return err
	}
	if b.Status != model.BookingConfirmed || len(b.TokenIDs) == 0 {
		return nil
	}
	query := `INSERT INTO booking_tokens (session_id, token, booking_id) VALUES `
	args := make([]any, 0, len(b.TokenIDs)*3)
	for i, token := range b.TokenIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, b.SessionID, token, b.ID)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrTokenTaken
		}
		return err
	}
	return nil
}
