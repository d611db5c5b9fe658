package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/clinic-queue/internal/model"
)

// MemoryStore is an in-process Store and UserStore.  It backs tests and the
// STORE_DRIVER=memory mode; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions []model.Session // insertion order
	index    map[string]int  // session id -> position in sessions
	bookings []model.Booking // commit order
	users    map[string]model.User
	emails   map[string]string // email -> user id

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex // per-session write guards
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index:  make(map[string]int),
		users:  make(map[string]model.User),
		emails: make(map[string]string),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (m *MemoryStore) CreateSession(ctx context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	s.Bookings = nil
	m.index[s.ID] = len(m.sessions)
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return m.sessions[i], nil
}

func (m *MemoryStore) ListSessions(ctx context.Context) ([]model.Session, error) {
	m.mu.RLock()
	out := make([]model.Session, len(m.sessions))
	copy(out, m.sessions)
	m.mu.RUnlock()
	// Stable sort keeps insertion order for equal start times.
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *MemoryStore) ConfirmedBookings(ctx context.Context, sessionIDs ...string) ([]model.Booking, error) {
	want := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		want[id] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Booking, 0)
	for _, b := range m.bookings {
		if b.Status != model.BookingConfirmed {
			continue
		}
		if len(want) > 0 && !want[b.SessionID] {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	return out, nil
}

func (m *MemoryStore) BookingsByPatient(ctx context.Context, patientID string) ([]model.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Booking, 0)
	for i := len(m.bookings) - 1; i >= 0; i-- {
		b := m.bookings[i]
		if b.PatientID == patientID && b.Status == model.BookingConfirmed {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

// InSession serializes callers per session with a dedicated mutex, so
// commits on different sessions never wait for each other.  Inserted
// bookings are buffered and appended to the log only when fn succeeds.
func (m *MemoryStore) InSession(ctx context.Context, sessionID string, fn func(tx BookingTx) error) error {
	if _, err := m.GetSession(ctx, sessionID); err != nil {
		return err
	}
	guard := m.sessionLock(sessionID)
	guard.Lock()
	defer guard.Unlock()

	tx := &memoryBookingTx{store: m, sessionID: sessionID}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.bookings = append(m.bookings, tx.pending...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) sessionLock(id string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

type memoryBookingTx struct {
	store     *MemoryStore
	sessionID string
	pending   []model.Booking
}

func (t *memoryBookingTx) ConfirmedBookings(ctx context.Context) ([]model.Booking, error) {
	out, err := t.store.ConfirmedBookings(ctx, t.sessionID)
	if err != nil {
		return nil, err
	}
	for _, b := range t.pending {
		if b.Status == model.BookingConfirmed {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

// InsertBooking mirrors the SQL uniqueness guard: a CONFIRMED booking may
// not reuse a token already held in the session.
func (t *memoryBookingTx) InsertBooking(ctx context.Context, b model.Booking) error {
	if b.SessionID != t.sessionID {
		return fmt.Errorf("booking for session %s inserted in transaction of %s", b.SessionID, t.sessionID)
	}
	if b.Status == model.BookingConfirmed {
		existing, err := t.ConfirmedBookings(ctx)
		if err != nil {
			return err
		}
		held := make(map[int]bool)
		for _, e := range existing {
			for _, token := range e.TokenIDs {
				held[token] = true
			}
		}
		seen := make(map[int]bool, len(b.TokenIDs))
		for _, token := range b.TokenIDs {
			if held[token] || seen[token] {
				return ErrTokenTaken
			}
			seen[token] = true
		}
	}
	t.pending = append(t.pending, cloneBooking(b))
	return nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, u model.User) error {
	u.Email = normalizeEmail(u.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.emails[u.Email]; ok {
		return ErrEmailExists
	}
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) UserByEmail(ctx context.Context, email string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[normalizeEmail(email)]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *MemoryStore) UserByID(ctx context.Context, id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

func cloneBooking(b model.Booking) model.Booking {
	b.TokenIDs = append([]int(nil), b.TokenIDs...)
	return b
}
