// Package memory provides mutex-guarded in-process stores. They back the
// service test suites and the dev server mode where Postgres is not wired.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ataa-platform/ataa_backend/internal/service/user"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]user.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]user.User)}
}

func (s *UserStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.DeletedAt != nil {
			continue
		}
		if existing.Phone == u.Phone {
			return user.ErrDuplicatePhone
		}
		if u.NationalIDHash != nil && existing.NationalIDHash != nil &&
			*existing.NationalIDHash == *u.NationalIDHash {
			return user.ErrDuplicateNationalID
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) GetByPhone(_ context.Context, phone string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.DeletedAt == nil && u.Phone == phone {
			u := u
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *UserStore) GetByNationalIDHash(_ context.Context, hash string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.DeletedAt == nil && u.NationalIDHash != nil && *u.NationalIDHash == hash {
			u := u
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *UserStore) Update(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	s.users[u.ID] = *u
	return nil
}
