// Package history keeps the most recent routed transcription results
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/pushtalk/internal/session"
)

// Entry is a stored result.
type Entry struct {
	ID string `json:"id"`
	session.Outcome
}

// Store holds a bounded, in-memory result history.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
}

// NewStore creates a history store.
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{
		entries: make([]Entry, 0, maxEntries),
		maxSize: maxEntries,
	}
}

// Add stores an outcome and returns the entry it became.
func (s *Store) Add(o session.Outcome) Entry {
	if o.At.IsZero() {
		o.At = time.Now()
	}
	e := Entry{ID: uuid.NewString(), Outcome: o}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if len(s.entries) > s.maxSize {
		s.entries = s.entries[len(s.entries)-s.maxSize:]
	}
	return e
}

// Recent returns up to limit entries, newest first. A limit <= 0 returns all.
func (s *Store) Recent(limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
