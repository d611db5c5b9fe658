package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/clinic-queue/internal/model"
)

// CreateUser inserts a user.  The email is normalized to lower case; a
// duplicate email yields ErrEmailExists.
func (s *SQLStore) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role, created_at_ms) VALUES (?,?,?,?,?)",
		u.ID, normalizeEmail(u.Email), u.PasswordHash, u.Role, toMillis(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// UserByEmail fetches a user by normalized email.
func (s *SQLStore) UserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,created_at_ms FROM users WHERE email=? LIMIT 1",
		normalizeEmail(email)))
}

// UserByID fetches a user by id.
func (s *SQLStore) UserByID(ctx context.Context, id string) (model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,created_at_ms FROM users WHERE id=? LIMIT 1",
		id))
}

func (s *SQLStore) scanUser(row *sql.Row) (model.User, error) {
	var (
		u         model.User
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
