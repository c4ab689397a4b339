package services

import (
	"cadete-dispatch-service/internal/domain"
	"fmt"
	"sort"
	"sync"
	"time"
)

// TripStore holds the day's active trips and completed history in memory.
// It is safe for concurrent use; AddActive runs the duplicate check and the
// insert under the same lock.
type TripStore struct {
	mu       sync.Mutex
	active   []domain.Trip
	history  []domain.Trip
	detector DuplicateDetector
	now      func() time.Time
	loc      *time.Location
	day      string
}

func NewTripStore(detector DuplicateDetector, now func() time.Time, loc *time.Location) *TripStore {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &TripStore{detector: detector, now: now, loc: loc}
}

// AddActive inserts trip unless it duplicates an active one.
func (s *TripStore) AddActive(trip domain.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detector.IsDuplicate(&trip, s.active) {
		return fmt.Errorf("add active trip %d: %w", trip.ID, domain.ErrDuplicateTrip)
	}

	trip.Status = domain.TripStatusActive
	s.active = append(s.active, trip.Clone())
	return nil
}

// Complete moves trip id to history. Missing ids are a no-op.
func (s *TripStore) Complete(id int64) (domain.Trip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.active, id)
	if i < 0 {
		return domain.Trip{}, false
	}

	t := s.active[i]
	s.active = append(s.active[:i], s.active[i+1:]...)

	done := s.now()
	t.Status = domain.TripStatusCompleted
	t.CompletedAt = &done
	s.insertHistory(t)

	return t.Clone(), true
}

// Delete removes trip id from the active list. Missing ids are a no-op.
func (s *TripStore) Delete(id int64) (domain.Trip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.active, id)
	if i < 0 {
		return domain.Trip{}, false
	}

	t := s.active[i]
	s.active = append(s.active[:i], s.active[i+1:]...)
	t.Status = domain.TripStatusCancelled
	return t, true
}

func (s *TripStore) Get(id int64) (domain.Trip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := indexOf(s.active, id); i >= 0 {
		return s.active[i].Clone(), true
	}
	if i := indexOf(s.history, id); i >= 0 {
		return s.history[i].Clone(), true
	}
	return domain.Trip{}, false
}

// ResetHistoryIfNewDay clears history when the local date changed since the
// previous check. The first check only records the date.
func (s *TripStore) ResetHistoryIfNewDay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().In(s.loc).Format("2006-01-02")
	if s.day == "" {
		s.day = today
		return false
	}
	if s.day == today {
		return false
	}

	s.day = today
	s.history = nil
	return true
}

// Restore replaces both lists, e.g. with trips loaded at start-up.
func (s *TripStore) Restore(active, history []domain.Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = cloneAll(active)
	sort.SliceStable(s.active, func(i, j int) bool { return s.active[i].ID < s.active[j].ID })

	s.history = nil
	for _, t := range history {
		s.insertHistory(t.Clone())
	}
}

func (s *TripStore) Active() []domain.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.active)
}

// History returns completed trips in creation order.
func (s *TripStore) History() []domain.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.history)
}

func (s *TripStore) Counts() (active, history int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active), len(s.history)
}

// ActiveTodayCount counts active trips created on the current local date.
func (s *TripStore) ActiveTodayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	now := s.now()
	for _, t := range s.active {
		if sameDay(t.CreatedAt, now, s.loc) {
			n++
		}
	}
	return n
}

func (s *TripStore) Location() *time.Location { return s.loc }

func (s *TripStore) insertHistory(t domain.Trip) {
	i := sort.Search(len(s.history), func(i int) bool { return s.history[i].ID > t.ID })
	s.history = append(s.history, domain.Trip{})
	copy(s.history[i+1:], s.history[i:])
	s.history[i] = t
}

func indexOf(trips []domain.Trip, id int64) int {
	for i := range trips {
		if trips[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(trips []domain.Trip) []domain.Trip {
	out := make([]domain.Trip, len(trips))
	for i := range trips {
		out[i] = trips[i].Clone()
	}
	return out
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
