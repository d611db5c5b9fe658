package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/config"
	"github.com/iliyamo/clinic-queue/internal/database"
	"github.com/iliyamo/clinic-queue/internal/lock"
	"github.com/iliyamo/clinic-queue/internal/model"
	"github.com/iliyamo/clinic-queue/internal/queue"
	"github.com/iliyamo/clinic-queue/internal/repository"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    repository.Store
	locker   *lock.Local
	registry *Registry
	booking  *BookingService
	query    *QueryService
	events   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, repository.NewMemoryStore())
}

func newSQLiteFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.EnsureSchema(context.Background(), db, database.SQLite); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return newFixtureWith(t, repository.NewSQLStore(db, database.SQLite))
}

// fixtures runs store-sensitive tests against every Store implementation.
var fixtures = map[string]func(t *testing.T) *fixture{
	"memory": newFixture,
	"sqlite": newSQLiteFixture,
}

func newFixtureWith(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	locker := lock.NewLocal()
	events := &recordingPublisher{}
	reg := NewRegistry(store, zap.NewNop())
	reg.now = func() time.Time { return fixedNow }
	cfg := config.BookingConfig{LockWait: 5 * time.Second, MaxTokensPerBooking: 3}
	svc := NewBookingService(store, locker, cfg, events, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return &fixture{
		store:    store,
		locker:   locker,
		registry: reg,
		booking:  svc,
		query:    NewQueryService(reg, store),
		events:   events,
	}
}

func (f *fixture) session(t *testing.T, capacity int) model.Session {
	t.Helper()
	s, err := f.registry.CreateSession(context.Background(), CreateSessionInput{
		ProviderName: "Dr. Emily Chen",
		Specialty:    "Pediatrician",
		StartTime:    "2026-10-20T09:00:00Z",
		Capacity:     capacity,
		Fee:          80,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func (f *fixture) commit(t *testing.T, sessionID, patientID string, tokens ...int) CommitResult {
	t.Helper()
	res, err := f.booking.CommitBooking(context.Background(), sessionID, tokens, patientID)
	if err != nil {
		t.Fatalf("unexpected storage error: %v", err)
	}
	return res
}

func (f *fixture) availability(t *testing.T, sessionID string) Availability {
	t.Helper()
	a, err := f.query.Availability(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	return a
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
}

func (p *recordingPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) snapshot() []queue.BookingConfirmedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.BookingConfirmedEvent(nil), p.events...)
}

// brokenStore fails every transactional write.
type brokenStore struct {
	*repository.MemoryStore
}

var errDiskFull = errors.New("disk full")

func (b brokenStore) InSession(ctx context.Context, sessionID string, fn func(tx repository.BookingTx) error) error {
	return errDiskFull
}
