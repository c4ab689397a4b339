package services

import (
	"sync"
	"time"
)

// IDSource derives trip ids from creation time in Unix milliseconds,
// bumping by one to stay unique within the same millisecond.
type IDSource struct {
	mu   sync.Mutex
	last int64
}

func (s *IDSource) Next(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := now.UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Observe records an id issued elsewhere (e.g. restored from storage).
func (s *IDSource) Observe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id > s.last {
		s.last = id
	}
}
