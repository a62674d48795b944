// Package sessions holds per-chat clarification state between a
// follow-up question and the user's reply. At most one pending candidate
// per chat; a new extraction replaces any older pending one.
package sessions

import (
	"sync"
	"time"

	"spendlog/internal/core"
)

type Pending struct {
	Candidate core.Candidate
	Missing   []string
	AskedAt   time.Time
}

type Store struct {
	mu      sync.Mutex
	pending map[int64]Pending
}

func NewStore() *Store {
	return &Store{pending: make(map[int64]Pending)}
}

func (s *Store) Put(chatID int64, p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[chatID] = p
}

// Take removes and returns the pending candidate for the chat. The
// clarification protocol is one-shot, so the entry never survives a read.
func (s *Store) Take(chatID int64) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[chatID]
	if ok {
		delete(s.pending, chatID)
	}
	return p, ok
}

func (s *Store) Has(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[chatID]
	return ok
}
