package certificate

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	certs map[string]Certificate
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory certificate store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{certs: make(map[string]Certificate)}
}

func (s *MemoryStore) Insert(_ context.Context, c Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.certs {
		if existing.ID == c.ID ||
			existing.Serial == c.Serial ||
			existing.VerificationCode == c.VerificationCode ||
			(existing.UserID == c.UserID && existing.CourseID == c.CourseID) {
			return ErrConflict
		}
	}
	s.certs[c.ID] = c
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.certs[id]
	if !ok {
		return Certificate{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) GetByCode(_ context.Context, code string) (Certificate, error) {
	return s.find(func(c Certificate) bool { return c.VerificationCode == code })
}

func (s *MemoryStore) GetByUserCourse(_ context.Context, userID, courseID string) (Certificate, error) {
	return s.find(func(c Certificate) bool { return c.UserID == userID && c.CourseID == courseID })
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Certificate{}
	for _, c := range s.certs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.Before(out[j].IssuedAt)
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out, nil
}

func (s *MemoryStore) find(match func(Certificate) bool) (Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.certs {
		if match(c) {
			return c, nil
		}
	}
	return Certificate{}, ErrNotFound
}
