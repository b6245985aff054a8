package challenge

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store. It is used in tests and is
// good enough for single-process development without Redis.
type MemoryStore struct {
	mu         sync.RWMutex
	challenges map[string]Challenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{challenges: make(map[string]Challenge)}
}

func (s *MemoryStore) Put(_ context.Context, ch *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challengeKey(ch.Phone, ch.Purpose)] = *ch
	return nil
}

func (s *MemoryStore) Get(_ context.Context, phone string, purpose Purpose) (*Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.challenges[challengeKey(phone, purpose)]
	if !ok {
		return nil, ErrNoChallenge
	}
	out := ch
	return &out, nil
}

func (s *MemoryStore) Update(_ context.Context, ch *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challengeKey(ch.Phone, ch.Purpose)] = *ch
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, phone string, purpose Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, challengeKey(phone, purpose))
	return nil
}
