package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store persists progress records.
type Store interface {
	// Create stores a new record. It fails with ErrAlreadyEnrolled if one exists.
	Create(ctx context.Context, rec Record) (Record, error)
	// Get returns the record or ErrNotEnrolled.
	Get(ctx context.Context, userID, courseID string) (Record, error)
	// Update applies fn to the record under an exclusive lock and saves the result.
	// Nothing is saved when fn returns an error.
	Update(ctx context.Context, userID, courseID string, fn func(*Record) error) (Record, error)
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	ListByCourse(ctx context.Context, courseID string) ([]Record, error)
}

type recordKey struct {
	userID   string
	courseID string
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[recordKey]Record
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]Record),
	}
}

func (s *MemoryStore) Create(_ context.Context, rec Record) (Record, error) {
	if rec.UserID == "" || rec.CourseID == "" {
		return Record{}, fmt.Errorf("user_id and course_id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{rec.UserID, rec.CourseID}
	if _, ok := s.records[key]; ok {
		return Record{}, ErrAlreadyEnrolled
	}
	if rec.EnrolledAt.IsZero() {
		rec.EnrolledAt = time.Now()
	}
	rec = rec.Clone()
	s.records[key] = rec
	return rec.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, userID, courseID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordKey{userID, courseID}]
	if !ok {
		return Record{}, ErrNotEnrolled
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, userID, courseID string, fn func(*Record) error) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{userID, courseID}
	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotEnrolled
	}

	working := rec.Clone()
	if err := fn(&working); err != nil {
		return Record{}, err
	}
	s.records[key] = working
	return working.Clone(), nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Record, error) {
	return s.list(func(k recordKey) bool { return k.userID == userID }), nil
}

func (s *MemoryStore) ListByCourse(_ context.Context, courseID string) ([]Record, error) {
	return s.list(func(k recordKey) bool { return k.courseID == courseID }), nil
}

func (s *MemoryStore) list(match func(recordKey) bool) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for k, rec := range s.records {
		if match(k) {
			out = append(out, rec.Clone())
		}
	}
	sortRecords(out)
	return out
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].EnrolledAt.Equal(recs[j].EnrolledAt) {
			return recs[i].EnrolledAt.Before(recs[j].EnrolledAt)
		}
		if recs[i].UserID != recs[j].UserID {
			return recs[i].UserID < recs[j].UserID
		}
		return recs[i].CourseID < recs[j].CourseID
	})
}
