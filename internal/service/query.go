package service

import (
	"context"

	"github.com/iliyamo/clinic-queue/internal/model"
	"github.com/iliyamo/clinic-queue/internal/repository"
)

// Availability is the token view of one session at read time.
type Availability struct {
	SessionID       string `json:"session_id"`
	Capacity        int    `json:"capacity"`
	Taken           []int  `json:"taken"`
	AvailableTokens []int  `json:"available_tokens"`
	Available       int    `json:"available"`
	Full            bool   `json:"full"`
}

// QueryService is the read side used to render sessions and availability.
// Every call reads the store afresh.
type QueryService struct {
	registry *Registry
	store    repository.Store
}

// NewQueryService returns a query facade over the registry and store.
func NewQueryService(registry *Registry, store repository.Store) *QueryService {
	return &QueryService{registry: registry, store: store}
}

func (q *QueryService) ListSessions(ctx context.Context) ([]model.Session, error) {
	return q.registry.ListSessions(ctx)
}

func (q *QueryService) GetSession(ctx context.Context, id string) (model.Session, error) {
	return q.registry.GetSession(ctx, id)
}

// Availability derives the session's ledger from its current bookings.
func (q *QueryService) Availability(ctx context.Context, sessionID string) (Availability, error) {
	s, err := q.registry.GetSession(ctx, sessionID)
	if err != nil {
		return Availability{}, err
	}
	return AvailabilityOf(s), nil
}

// AvailabilityOf computes the availability of a session already joined with
// its bookings.
func AvailabilityOf(s model.Session) Availability {
	l := NewLedger(s.Capacity, s.Bookings)
	return Availability{
		SessionID:       s.ID,
		Capacity:        s.Capacity,
		Taken:           l.Taken(),
		AvailableTokens: l.AvailableTokens(),
		Available:       l.Available(),
		Full:            l.Full(),
	}
}

// PatientBookings lists a patient's CONFIRMED bookings, newest first.
func (q *QueryService) PatientBookings(ctx context.Context, patientID string) ([]model.Booking, error) {
	out, err := q.store.BookingsByPatient(ctx, patientID)
	if err != nil {
		return nil, storageErr("list patient bookings", err)
	}
	return out, nil
}
