package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/clinic-queue/internal/model"
)

const sessionColumns = `id, provider_name, specialty, starts_at_ms, capacity, fee_cents, created_at_ms`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (model.Session, error) {
	var (
		s                   model.Session
		startsAt, createdAt int64
	)
	if err := r.Scan(&s.ID, &s.ProviderName, &s.Specialty, &startsAt, &s.Capacity, &s.FeeCents, &createdAt); err != nil {
		return model.Session{}, err
	}
	s.StartTime = fromMillis(startsAt)
	s.CreatedAt = fromMillis(createdAt)
	return s, nil
}

// CreateSession inserts a new session.  The caller assigns the id and
// timestamps; sessions are never updated afterwards.
func (s *SQLStore) CreateSession(ctx context.Context, sess model.Session) error {
	const q = `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		sess.ID, sess.ProviderName, sess.Specialty, toMillis(sess.StartTime),
		sess.Capacity, sess.FeeCents, toMillis(sess.CreatedAt),
	)
	return err
}

// GetSession retrieves a session by its id.  It returns ErrSessionNotFound
// if there is no matching row.
func (s *SQLStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	sess, err := scanSession(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrSessionNotFound
		}
		return model.Session{}, err
	}
	return sess, nil
}

// ListSessions returns every session ordered by start time ascending.
// Sessions starting at the same instant keep their insertion order (seq).
// When no sessions exist it returns an empty slice and nil error.
func (s *SQLStore) ListSessions(ctx context.Context) ([]model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions ORDER BY starts_at_ms ASC, seq ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
