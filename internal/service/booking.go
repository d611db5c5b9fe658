package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/config"
	"github.com/iliyamo/clinic-queue/internal/lock"
	"github.com/iliyamo/clinic-queue/internal/model"
	"github.com/iliyamo/clinic-queue/internal/queue"
	"github.com/iliyamo/clinic-queue/internal/repository"
)

// EventPublisher receives booking.confirmed events after a commit.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// CommitResult is the outcome of CommitBooking.  On success Booking holds
// the stored booking; otherwise Err says why nothing was written.
type CommitResult struct {
	Success bool
	Booking *model.Booking
	Err     error
}

// BookingService runs the commit protocol: the only writer of bookings.
type BookingService struct {
	store     repository.Store
	locker    lock.Locker
	publisher EventPublisher
	log       *zap.Logger

	lockWait  time.Duration
	maxTokens int
	now       func() time.Time

	pending sync.WaitGroup // in-flight event publishes
}

// NewBookingService wires the commit protocol.  pub may be nil, in which
// case no events are published.
func NewBookingService(store repository.Store, locker lock.Locker, cfg config.BookingConfig, pub EventPublisher, log *zap.Logger) *BookingService {
	if cfg.LockWait <= 0 {
		cfg.LockWait = 2 * time.Second
	}
	if cfg.MaxTokensPerBooking < 1 {
		cfg.MaxTokensPerBooking = 3
	}
	return &BookingService{
		store:     store,
		locker:    locker,
		publisher: pub,
		log:       log.Named("booking"),
		lockWait:  cfg.LockWait,
		maxTokens: cfg.MaxTokensPerBooking,
		now:       time.Now,
	}
}

// CommitBooking claims tokens of a session for a patient.  Steps run under
// the session's lock: read the confirmed bookings, reject overlaps and
// capacity overruns, then insert one CONFIRMED booking.
//
// Recoverable failures (*ValidationError, ErrNotFound, ErrInvalidToken,
// ErrLimitExceeded, ErrConflict, ErrCapacityExceeded, ErrBusy) are reported
// in CommitResult.Err with a nil error.  A storage failure is reported in
// both.
func (s *BookingService) CommitBooking(ctx context.Context, sessionID string, tokens []int, patientID string) (CommitResult, error) {
	if patientID == "" {
		return failed(newValidationError("patient_id", "is required"))
	}
	if len(tokens) == 0 {
		return failed(newValidationError("tokens", "at least one token is required"))
	}
	seen := make(map[int]bool, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			return failed(newValidationError("tokens", fmt.Sprintf("token %d requested twice", t)))
		}
		seen[t] = true
	}
	if len(tokens) > s.maxTokens {
		return failed(fmt.Errorf("%w: %d requested, at most %d allowed", ErrLimitExceeded, len(tokens), s.maxTokens))
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return failed(ErrNotFound)
		}
		return storageFailure("load session", err)
	}
	requested := append([]int(nil), tokens...)
	sort.Ints(requested)
	var outOfRange []int
	for _, t := range requested {
		if t < 1 || t > session.Capacity {
			outOfRange = append(outOfRange, t)
		}
	}
	if len(outOfRange) > 0 {
		return failed(&TokenError{Err: ErrInvalidToken, Tokens: outOfRange})
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	release, err := s.locker.Acquire(lockCtx, sessionID)
	cancel()
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.log.Warn("session lock wait timed out", zap.String("session_id", sessionID), zap.Duration("wait", s.lockWait))
			return failed(ErrBusy)
		}
		return storageFailure("acquire session lock", err)
	}
	defer release()

	var booking model.Booking
	err = s.store.InSession(ctx, sessionID, func(tx repository.BookingTx) error {
		current, err := tx.ConfirmedBookings(ctx)
		if err != nil {
			return storageErr("read bookings", err)
		}
		ledger := NewLedger(session.Capacity, current)
		if c := ledger.Conflicts(requested); len(c) > 0 {
			return &TokenError{Err: ErrConflict, Tokens: ledger.Taken()}
		}
		if taken := len(ledger.Taken()); taken+len(requested) > session.Capacity {
			return fmt.Errorf("%w: %d taken, %d requested, capacity %d", ErrCapacityExceeded, taken, len(requested), session.Capacity)
		}
		booking = model.Booking{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			PatientID: patientID,
			TokenIDs:  requested,
			Status:    model.BookingConfirmed,
			CreatedAt: s.now().UTC(),
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrTokenTaken) {
				return &TokenError{Err: ErrConflict, Tokens: ledger.Taken()}
			}
			return storageErr("insert booking", err)
		}
		return nil
	})
	if err != nil {
		var serr *StorageError
		switch {
		case errors.Is(err, ErrConflict), errors.Is(err, ErrCapacityExceeded):
			s.log.Info("booking rejected", zap.String("session_id", sessionID), zap.Ints("tokens", requested), zap.Error(err))
			return failed(err)
		case errors.Is(err, repository.ErrSessionNotFound):
			return failed(ErrNotFound)
		case errors.As(err, &serr):
			s.log.Error("booking storage failure", zap.String("session_id", sessionID), zap.Error(err))
			return CommitResult{Err: serr}, serr
		default:
			s.log.Error("booking storage failure", zap.String("session_id", sessionID), zap.Error(err))
			return storageFailure("commit booking", err)
		}
	}

	s.log.Info("booking confirmed",
		zap.String("booking_id", booking.ID),
		zap.String("session_id", sessionID),
		zap.String("patient_id", patientID),
		zap.Ints("tokens", booking.TokenIDs),
	)
	s.publish(session, booking)
	return CommitResult{Success: true, Booking: &booking}, nil
}

// publish sends the booking.confirmed event in the background.  Failures are
// logged only; the commit already happened.
func (s *BookingService) publish(session model.Session, b model.Booking) {
	if s.publisher == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:    b.ID,
		SessionID:    session.ID,
		PatientID:    b.PatientID,
		ProviderName: session.ProviderName,
		Specialty:    session.Specialty,
		StartsAt:     session.StartTime.Format(time.RFC3339),
		TokenIDs:     append([]int(nil), b.TokenIDs...),
		FeeCents:     session.FeeCents * int64(len(b.TokenIDs)),
		ConfirmedAt:  b.CreatedAt.Format(time.RFC3339),
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
			s.log.Warn("booking event not published", zap.String("booking_id", ev.BookingID), zap.Error(err))
		}
	}()
}

// Wait blocks until background event publishes have finished.
func (s *BookingService) Wait() { s.pending.Wait() }

func failed(err error) (CommitResult, error) {
	return CommitResult{Err: err}, nil
}

func storageFailure(op string, err error) (CommitResult, error) {
	serr := storageErr(op, err)
	return CommitResult{Err: serr}, serr
}
