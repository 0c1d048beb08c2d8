// ============================================================================
// backend/internal/review/stage.go
// Staged extraction batches awaiting admin review before publish
// ============================================================================

package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"me_result_portal/backend/internal/result"
	"me_result_portal/backend/internal/shared"
)

// Stage holds extracted batches keyed by the reviewing admin's user id.
// A staged batch expires after the configured TTL; publishing or a fresh
// extraction replaces it.
type Stage struct {
	cache Cache
	ttl   time.Duration
}

// NewStage creates a review stage over the given cache
func NewStage(cache Cache, ttl time.Duration) *Stage {
	return &Stage{cache: cache, ttl: ttl}
}

func stageKey(userID string) string {
	return "review:" + userID
}

// Put stages a freshly extracted batch for the given admin, replacing any
// previous staged batch
func (s *Stage) Put(ctx context.Context, userID string, results []shared.StudentResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode staged batch: %w", err)
	}
	if err := s.cache.Set(ctx, stageKey(userID), payload, s.ttl); err != nil {
		return fmt.Errorf("failed to stage batch: %w", err)
	}
	return nil
}

// Snapshot returns the admin's staged batch, or ErrNotFound when nothing is
// staged or the stage has expired
func (s *Stage) Snapshot(ctx context.Context, userID string) ([]shared.StudentResult, error) {
	payload, ok, err := s.cache.Get(ctx, stageKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load staged batch: %w", err)
	}
	if !ok {
		return nil, shared.ErrNotFound
	}

	var results []shared.StudentResult
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, fmt.Errorf("failed to decode staged batch: %w", err)
	}
	return results, nil
}

// ApplyEdit rewrites one field of one staged row and restages the batch.
// Unknown fields, out-of-range rows, and malformed backlog values are
// validation errors; the staged batch is left untouched on any failure.
func (s *Stage) ApplyEdit(ctx context.Context, userID string, index int, field, value string) ([]shared.StudentResult, error) {
	results, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(results) {
		return nil, shared.NewValidationError("index")
	}

	row := &results[index]
	switch field {
	case "student_id":
		row.StudentID = strings.ToUpper(strings.TrimSpace(value))
	case "name":
		row.Name = value
	case "cgpa":
		row.CGPA = value
	case "total_credit":
		row.TotalCredit = value
	case "grade":
		row.Grade = value
	case "backlogs":
		trimmed := strings.TrimSpace(value)
		if _, err := result.DecodeBacklogs(trimmed); err != nil {
			return nil, shared.NewValidationError("backlogs")
		}
		row.Backlogs = trimmed
		row.HasBacklogs = trimmed != ""
	case "year":
		row.Year = strings.TrimSpace(value)
	case "semester":
		row.Semester = strings.TrimSpace(value)
	case "academic_session":
		row.AcademicSession = strings.TrimSpace(value)
	default:
		return nil, shared.NewValidationError("field")
	}

	if err := s.Put(ctx, userID, results); err != nil {
		return nil, err
	}
	return results, nil
}

// Invalidate drops the admin's staged batch, typically after a publish
func (s *Stage) Invalidate(ctx context.Context, userID string) error {
	return s.cache.Delete(ctx, stageKey(userID))
}
