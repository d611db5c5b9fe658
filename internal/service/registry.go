package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/model"
	"github.com/iliyamo/clinic-queue/internal/repository"
)

// CreateSessionInput is the administrative request to publish a session.
// StartTime must be an RFC 3339 timestamp; Fee is a decimal amount.
type CreateSessionInput struct {
	ProviderName string  `json:"provider_name" validate:"required,max=200"`
	Specialty    string  `json:"specialty" validate:"required,max=120"`
	StartTime    string  `json:"start_time" validate:"required"`
	Capacity     int     `json:"capacity" validate:"gt=0,lte=1000"`
	Fee          float64 `json:"fee" validate:"gte=0,lte=1000000"`
}

// Registry creates sessions and serves them joined with their CONFIRMED
// bookings.
type Registry struct {
	store    repository.Store
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

// NewRegistry returns a registry backed by store.
func NewRegistry(store repository.Store, log *zap.Logger) *Registry {
	return &Registry{
		store:    store,
		validate: newValidator(),
		log:      log.Named("registry"),
		now:      time.Now,
	}
}

// CreateSession validates in, assigns a fresh id and persists the session
// with no bookings.  Invalid input yields *ValidationError and nothing is
// written.
func (r *Registry) CreateSession(ctx context.Context, in CreateSessionInput) (model.Session, error) {
	in.ProviderName = strings.TrimSpace(in.ProviderName)
	in.Specialty = strings.TrimSpace(in.Specialty)
	in.StartTime = strings.TrimSpace(in.StartTime)
	if err := validateStruct(r.validate, in); err != nil {
		return model.Session{}, err
	}
	start, err := time.Parse(time.RFC3339, in.StartTime)
	if err != nil {
		return model.Session{}, newValidationError("start_time", "must be an RFC 3339 timestamp")
	}

	s := model.Session{
		ID:           uuid.NewString(),
		ProviderName: in.ProviderName,
		Specialty:    in.Specialty,
		StartTime:    start.UTC(),
		Capacity:     in.Capacity,
		FeeCents:     int64(math.Round(in.Fee * 100)),
		CreatedAt:    r.now().UTC(),
		Bookings:     []model.Booking{},
	}
	if err := r.store.CreateSession(ctx, s); err != nil {
		return model.Session{}, storageErr("create session", err)
	}
	r.log.Info("session created",
		zap.String("session_id", s.ID),
		zap.String("provider", s.ProviderName),
		zap.Time("starts_at", s.StartTime),
		zap.Int("capacity", s.Capacity),
	)
	return s, nil
}

// ListSessions returns every session with its CONFIRMED bookings, ordered by
// start time and then creation order.
func (r *Registry) ListSessions(ctx context.Context) ([]model.Session, error) {
	sessions, err := r.store.ListSessions(ctx)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	bookings, err := r.store.ConfirmedBookings(ctx)
	if err != nil {
		return nil, storageErr("list bookings", err)
	}
	bySession := make(map[string][]model.Booking, len(sessions))
	for _, b := range bookings {
		bySession[b.SessionID] = append(bySession[b.SessionID], b)
	}
	for i := range sessions {
		sessions[i].Bookings = bySession[sessions[i].ID]
		if sessions[i].Bookings == nil {
			sessions[i].Bookings = []model.Booking{}
		}
	}
	return sessions, nil
}

// GetSession returns one session with its CONFIRMED bookings, or
// ErrNotFound.
func (r *Registry) GetSession(ctx context.Context, id string) (model.Session, error) {
	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, storageErr("get session", err)
	}
	bookings, err := r.store.ConfirmedBookings(ctx, id)
	if err != nil {
		return model.Session{}, storageErr("list bookings", err)
	}
	s.Bookings = bookings
	return s, nil
}

// SeedDemo publishes three demo sessions when the store holds none.  It
// returns how many sessions were created.
func (r *Registry) SeedDemo(ctx context.Context) (int, error) {
	existing, err := r.store.ListSessions(ctx)
	if err != nil {
		return 0, storageErr("list sessions", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	now := r.now().UTC()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 9, 0, 0, 0, time.UTC)
	demo := []CreateSessionInput{
		{ProviderName: "Dr. Sarah Bennett", Specialty: "Cardiologist", StartTime: tomorrow.Format(time.RFC3339), Capacity: 15, Fee: 150},
		{ProviderName: "Dr. Emily Chen", Specialty: "Pediatrician", StartTime: tomorrow.AddDate(0, 0, 1).Add(5 * time.Hour).Format(time.RFC3339), Capacity: 20, Fee: 80},
		{ProviderName: "Dr. James Wilson", Specialty: "General Physician", StartTime: now.Add(5 * time.Hour).Truncate(time.Minute).Format(time.RFC3339), Capacity: 30, Fee: 50},
	}
	for i, in := range demo {
		if _, err := r.CreateSession(ctx, in); err != nil {
			return i, err
		}
	}
	return len(demo), nil
}
