package result

import (
	"context"
	"fmt"
	"sync"
	"time"

	"me_result_portal/backend/internal/shared"
)

// MemStore is an in-memory Store used by tests and local development.
// Records keep insertion order; ListRecent walks that order backwards.
type MemStore struct {
	mu      sync.Mutex
	records []StoredResult
	nextID  int

	// CreateErr and ListErr, when set, are returned by the matching
	// operation so callers can exercise failure paths.
	CreateErr error
	ListErr   error
}

// NewMemStore creates an empty MemStore
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) List(ctx context.Context, key shared.ResultKey) ([]StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListErr != nil {
		return nil, s.ListErr
	}

	var matches []StoredResult
	for _, rec := range s.records {
		if rec.Result.Key() == key {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

func (s *MemStore) Create(ctx context.Context, r shared.StudentResult) (StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return StoredResult{}, s.CreateErr
	}

	s.nextID++
	stored := StoredResult{
		ID:        fmt.Sprintf("RES_%d", s.nextID),
		CreatedAt: time.Now(),
		Result:    r,
	}
	s.records = append(s.records, stored)
	return stored, nil
}

func (s *MemStore) Update(ctx context.Context, id string, r shared.StudentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.records {
		if rec.ID == id {
			s.records[i].Result = r
			return nil
		}
	}
	return shared.ErrNotFound
}

func (s *MemStore) ListRecent(ctx context.Context, limit int64) ([]StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListErr != nil {
		return nil, s.ListErr
	}

	var results []StoredResult
	for i := len(s.records) - 1; i >= 0; i-- {
		if limit > 0 && int64(len(results)) >= limit {
			break
		}
		results = append(results, s.records[i])
	}
	return results, nil
}

func (s *MemStore) ListBatch(ctx context.Context, details shared.BatchDetails, limit int64) ([]StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListErr != nil {
		return nil, s.ListErr
	}

	var results []StoredResult
	for _, rec := range s.records {
		if limit > 0 && int64(len(results)) >= limit {
			break
		}
		if rec.Result.AcademicSession == details.AcademicSession &&
			rec.Result.Semester == details.Semester &&
			rec.Result.Year == details.Year {
			results = append(results, rec)
		}
	}
	return results, nil
}

// Count returns the number of stored records
func (s *MemStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
