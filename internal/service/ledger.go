package service

import (
	"sort"

	"github.com/iliyamo/clinic-queue/internal/model"
)

// TakenTokens returns the sorted union of tokens held by CONFIRMED bookings.
func TakenTokens(bookings []model.Booking) []int {
	seen := make(map[int]struct{})
	for _, b := range bookings {
		if b.Status != model.BookingConfirmed {
			continue
		}
		for _, t := range b.TokenIDs {
			seen[t] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// Ledger is the derived token view of one session.  It is computed from a
// booking snapshot and never stored.
type Ledger struct {
	capacity int
	taken    []int
	set      map[int]struct{}
}

// NewLedger derives the ledger for a session of the given capacity.
func NewLedger(capacity int, bookings []model.Booking) Ledger {
	taken := TakenTokens(bookings)
	set := make(map[int]struct{}, len(taken))
	for _, t := range taken {
		set[t] = struct{}{}
	}
	return Ledger{capacity: capacity, taken: taken, set: set}
}

// Taken returns the taken tokens in ascending order.
func (l Ledger) Taken() []int { return append([]int(nil), l.taken...) }

func (l Ledger) IsTaken(token int) bool {
	_, ok := l.set[token]
	return ok
}

// Available is capacity minus the number of taken tokens, floored at zero.
func (l Ledger) Available() int {
	if n := l.capacity - len(l.taken); n > 0 {
		return n
	}
	return 0
}

func (l Ledger) Full() bool { return l.Available() == 0 }

// AvailableTokens lists the free token numbers in 1..capacity.
func (l Ledger) AvailableTokens() []int {
	out := make([]int, 0, l.Available())
	for t := 1; t <= l.capacity; t++ {
		if !l.IsTaken(t) {
			out = append(out, t)
		}
	}
	return out
}

// Conflicts returns the requested tokens that are already taken, sorted.
func (l Ledger) Conflicts(requested []int) []int {
	var out []int
	for _, t := range requested {
		if l.IsTaken(t) {
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out
}
