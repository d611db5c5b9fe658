package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/clinic-queue/internal/database"
	"github.com/iliyamo/clinic-queue/internal/model"
)

type testStore interface {
	Store
	UserStore
}

func newSQLiteStore(t *testing.T) testStore {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.EnsureSchema(context.Background(), db, database.SQLite); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return NewSQLStore(db, database.SQLite)
}

func newMemStore(t *testing.T) testStore { return NewMemoryStore() }

var backends = map[string]func(t *testing.T) testStore{
	"memory": newMemStore,
	"sqlite": newSQLiteStore,
}

var base = time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)

func session(id string, start time.Time, capacity int) model.Session {
	return model.Session{
		ID:           id,
		ProviderName: "Dr. " + id,
		Specialty:    "General Physician",
		StartTime:    start,
		Capacity:     capacity,
		FeeCents:     5000,
		CreatedAt:    base,
	}
}

func confirmed(id, sessionID, patientID string, tokens ...int) model.Booking {
	return model.Booking{
		ID:        id,
		SessionID: sessionID,
		PatientID: patientID,
		TokenIDs:  tokens,
		Status:    model.BookingConfirmed,
		CreatedAt: base,
	}
}

func mustCreate(t *testing.T, s Store, sess model.Session) {
	t.Helper()
	if err := s.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("create session %s: %v", sess.ID, err)
	}
}

func insert(t *testing.T, s Store, b model.Booking) error {
	t.Helper()
	return s.InSession(context.Background(), b.SessionID, func(tx BookingTx) error {
		return tx.InsertBooking(context.Background(), b)
	})
}

func TestStore_SessionRoundTrip(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			want := session("s1", base.Add(3*time.Hour), 15)
			want.FeeCents = 15000
			mustCreate(t, s, want)

			got, err := s.GetSession(context.Background(), "s1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.ID != want.ID || got.ProviderName != want.ProviderName || got.Specialty != want.Specialty ||
				got.Capacity != want.Capacity || got.FeeCents != want.FeeCents || !got.StartTime.Equal(want.StartTime) {
				t.Fatalf("got %+v, want %+v", got, want)
			}
			if got.StartTime.Location() != time.UTC {
				t.Fatalf("start time not UTC: %v", got.StartTime.Location())
			}

			if _, err := s.GetSession(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("expected ErrSessionNotFound, got %v", err)
			}
		})
	}
}

func TestStore_ListSessionsOrder(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			mustCreate(t, s, session("late", base.Add(48*time.Hour), 5))
			mustCreate(t, s, session("tie-first", base, 5))
			mustCreate(t, s, session("early", base.Add(-time.Hour), 5))
			mustCreate(t, s, session("tie-second", base, 5))

			got, err := s.ListSessions(context.Background())
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			want := []string{"early", "tie-first", "tie-second", "late"}
			if len(got) != len(want) {
				t.Fatalf("got %d sessions, want %d", len(got), len(want))
			}
			for i, id := range want {
				if got[i].ID != id {
					t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestStore_InSessionInsertAndRead(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			mustCreate(t, s, session("s1", base, 5))
			mustCreate(t, s, session("s2", base, 5))

			if err := insert(t, s, confirmed("b1", "s1", "p1", 1, 3)); err != nil {
				t.Fatalf("insert b1: %v", err)
			}
			if err := insert(t, s, confirmed("b2", "s2", "p1", 1)); err != nil {
				t.Fatalf("insert b2: %v", err)
			}
			if err := insert(t, s, confirmed("b3", "s1", "p2", 2)); err != nil {
				t.Fatalf("insert b3: %v", err)
			}

			got, err := s.ConfirmedBookings(context.Background(), "s1")
			if err != nil {
				t.Fatalf("bookings: %v", err)
			}
			if len(got) != 2 || got[0].ID != "b1" || got[1].ID != "b3" {
				t.Fatalf("unexpected bookings %+v", got)
			}
			if len(got[0].TokenIDs) != 2 || got[0].TokenIDs[0] != 1 || got[0].TokenIDs[1] != 3 {
				t.Fatalf("unexpected tokens %v", got[0].TokenIDs)
			}

			all, err := s.ConfirmedBookings(context.Background())
			if err != nil {
				t.Fatalf("all bookings: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("got %d bookings, want 3", len(all))
			}

			mine, err := s.BookingsByPatient(context.Background(), "p1")
			if err != nil {
				t.Fatalf("by patient: %v", err)
			}
			if len(mine) != 2 || mine[0].ID != "b2" || mine[1].ID != "b1" {
				t.Fatalf("expected newest first, got %+v", mine)
			}
		})
	}
}

func TestStore_TokenUniquenessGuard(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			mustCreate(t, s, session("s1", base, 3))
			mustCreate(t, s, session("s2", base, 3))
			if err := insert(t, s, confirmed("b1", "s1", "p1", 1)); err != nil {
				t.Fatalf("insert b1: %v", err)
			}
			if err := insert(t, s, confirmed("b2", "s1", "p2", 2, 1)); !errors.Is(err, ErrTokenTaken) {
				t.Fatalf("expected ErrTokenTaken, got %v", err)
			}
			// the same token number is free in another session
			if err := insert(t, s, confirmed("b3", "s2", "p2", 1)); err != nil {
				t.Fatalf("insert b3: %v", err)
			}
			got, _ := s.ConfirmedBookings(context.Background(), "s1")
			if len(got) != 1 {
				t.Fatalf("rejected booking was persisted: %+v", got)
			}
		})
	}
}

func TestStore_InSessionRollsBackOnError(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			mustCreate(t, s, session("s1", base, 3))
			boom := errors.New("boom")
			err := s.InSession(context.Background(), "s1", func(tx BookingTx) error {
				if err := tx.InsertBooking(context.Background(), confirmed("b1", "s1", "p1", 1)); err != nil {
					return err
				}
				seen, err := tx.ConfirmedBookings(context.Background())
				if err != nil {
					return err
				}
				if len(seen) != 1 {
					t.Errorf("transaction should see its own insert, saw %d", len(seen))
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected callback error, got %v", err)
			}
			got, _ := s.ConfirmedBookings(context.Background(), "s1")
			if len(got) != 0 {
				t.Fatalf("expected rollback, found %+v", got)
			}
		})
	}
}

func TestStore_InSessionUnknownSession(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			called := false
			err := s.InSession(context.Background(), "nope", func(tx BookingTx) error {
				called = true
				return nil
			})
			if !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("expected ErrSessionNotFound, got %v", err)
			}
			if called {
				t.Fatal("callback ran for unknown session")
			}
		})
	}
}

func TestStore_Users(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			u := model.User{ID: "u1", Email: " Alice@Example.com ", PasswordHash: "hash", Role: model.RolePatient, CreatedAt: base}
			if err := s.CreateUser(context.Background(), u); err != nil {
				t.Fatalf("create: %v", err)
			}
			dup := model.User{ID: "u2", Email: "alice@example.com", PasswordHash: "x", Role: model.RolePatient, CreatedAt: base}
			if err := s.CreateUser(context.Background(), dup); !errors.Is(err, ErrEmailExists) {
				t.Fatalf("expected ErrEmailExists, got %v", err)
			}
			got, err := s.UserByEmail(context.Background(), "ALICE@example.com")
			if err != nil || got.ID != "u1" || got.Email != "alice@example.com" {
				t.Fatalf("by email: %+v %v", got, err)
			}
			if _, err := s.UserByID(context.Background(), "u1"); err != nil {
				t.Fatalf("by id: %v", err)
			}
			if _, err := s.UserByID(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound, got %v", err)
			}
		})
	}
}
