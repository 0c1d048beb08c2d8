// ============================================================================
// backend/internal/result/service.go
// Result service: publish reconciliation, key lookups, batch summaries
// ============================================================================

package result

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"me_result_portal/backend/internal/shared"
)

const (
	// DefaultPublishWorkers bounds the concurrent reconcile-and-create tasks
	DefaultPublishWorkers = 8

	// latestBatchLimit caps how many records feed the latest-batch summary
	latestBatchLimit = 50
)

// Service implements the portal's result operations on top of a Store
type Service struct {
	store   Store
	workers int
}

// NewService creates a result service with the given worker bound
func NewService(store Store, workers int) *Service {
	if workers <= 0 {
		workers = DefaultPublishWorkers
	}
	return &Service{store: store, workers: workers}
}

// ============================================================================
// Publish Reconciliation
// ============================================================================

// Publish reconciles a batch of extracted results against storage. Each
// candidate whose natural key already has a record is counted as existing;
// the rest are created. Candidates with an incomplete key are dropped up
// front. Publishing the same batch twice therefore creates nothing the
// second time.
func (s *Service) Publish(ctx context.Context, results []shared.StudentResult) (shared.PublishSummary, error) {
	var summary shared.PublishSummary

	// Normalize keys and collapse in-batch duplicates before dispatch so two
	// rows with the same key never race each other into double creates.
	// First occurrence wins; repeats are reported as existing.
	seen := make(map[shared.ResultKey]bool, len(results))
	var candidates []shared.StudentResult
	for _, r := range results {
		r.Normalize()
		key := r.Key()
		if !key.IsComplete() {
			log.Printf("Warning: skipping result with incomplete key (student_id=%q)", r.StudentID)
			continue
		}
		if seen[key] {
			summary.ExistingResults++
			continue
		}
		seen[key] = true
		candidates = append(candidates, r)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	// Per-candidate failures are tallied, never propagated, so one bad
	// record cannot abort the rest of the batch.
	for _, candidate := range candidates {
		g.Go(func() error {
			existing, err := s.store.List(gctx, candidate.Key())
			if err != nil {
				log.Printf("Warning: publish lookup failed for %s: %v", candidate.StudentID, err)
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				return nil
			}
			if len(existing) > 0 {
				mu.Lock()
				summary.ExistingResults++
				mu.Unlock()
				return nil
			}
			if _, err := s.store.Create(gctx, candidate); err != nil {
				log.Printf("Warning: failed to create result for %s: %v", candidate.StudentID, err)
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			summary.Created++
			mu.Unlock()
			return nil
		})
	}

	g.Wait()

	log.Printf("INFO: publish batch complete (created=%d existing=%d failed=%d)",
		summary.Created, summary.ExistingResults, summary.Failed)

	return summary, nil
}

// ============================================================================
// Key-Based Fetch and Update
// ============================================================================

// FetchByKey returns all stored records matching the canonical form of the
// given key. An incomplete key is a validation error; an empty match set is
// ErrNotFound.
func (s *Service) FetchByKey(ctx context.Context, key shared.ResultKey) ([]StoredResult, error) {
	key = key.Normalized()
	if !key.IsComplete() {
		return nil, shared.NewValidationError(key.MissingFields()...)
	}

	matches, err := s.store.List(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}
	if len(matches) == 0 {
		return nil, shared.ErrNotFound
	}
	return matches, nil
}

// UpdateByKey overwrites the stored record whose key matches the record's
// own key. When several records share the key, the oldest is updated.
func (s *Service) UpdateByKey(ctx context.Context, r shared.StudentResult) error {
	r.Normalize()
	key := r.Key()
	if !key.IsComplete() {
		return shared.NewValidationError(key.MissingFields()...)
	}

	matches, err := s.store.List(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to locate result: %w", err)
	}
	if len(matches) == 0 {
		return shared.ErrNotFound
	}

	if err := s.store.Update(ctx, matches[0].ID, r); err != nil {
		return fmt.Errorf("failed to update result %s: %w", matches[0].ID, err)
	}
	return nil
}

// Lookup returns the single record for a key, for student-facing queries
func (s *Service) Lookup(ctx context.Context, key shared.ResultKey) (StoredResult, error) {
	matches, err := s.FetchByKey(ctx, key)
	if err != nil {
		return StoredResult{}, err
	}
	return matches[0], nil
}

// ============================================================================
// Latest Batch Summary
// ============================================================================

// BatchSummary is the latest-batch report: the batch's period details plus
// its grade distribution in grade-ladder order.
type BatchSummary struct {
	Details      shared.BatchDetails `json:"details"`
	Total        int                 `json:"total"`
	Distribution []shared.GradeCount `json:"distribution"`
}

// LatestDistribution finds the most recently published record, treats its
// (session, semester, year) as the latest batch, and summarizes that batch's
// grade distribution.
func (s *Service) LatestDistribution(ctx context.Context) (BatchSummary, error) {
	recent, err := s.store.ListRecent(ctx, 1)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("failed to find latest batch: %w", err)
	}
	if len(recent) == 0 {
		return BatchSummary{}, shared.ErrNotFound
	}

	details := shared.BatchDetails{
		AcademicSession: recent[0].Result.AcademicSession,
		Semester:        recent[0].Result.Semester,
		Year:            recent[0].Result.Year,
	}

	batch, err := s.store.ListBatch(ctx, details, latestBatchLimit)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("failed to load latest batch: %w", err)
	}

	// Grades are counted in canonical form; records without a grade do not
	// contribute a bucket
	counts := make(map[string]int)
	for _, rec := range batch {
		grade := strings.ToUpper(strings.TrimSpace(rec.Result.Grade))
		if grade == "" {
			continue
		}
		counts[grade]++
	}

	distribution := make([]shared.GradeCount, 0, len(counts))
	for grade, count := range counts {
		distribution = append(distribution, shared.GradeCount{Grade: grade, Count: count})
	}
	sort.Slice(distribution, func(i, j int) bool {
		ri, rj := shared.GradeRank(distribution[i].Grade), shared.GradeRank(distribution[j].Grade)
		if ri != rj {
			return ri < rj
		}
		return distribution[i].Grade < distribution[j].Grade
	})

	return BatchSummary{
		Details:      details,
		Total:        len(batch),
		Distribution: distribution,
	}, nil
}
