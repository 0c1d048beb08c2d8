package result

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"me_result_portal/backend/internal/shared"
)

// StoredResult pairs a persisted StudentResult with its storage id
type StoredResult struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Result    shared.StudentResult `json:"result"`
}

// Store is the document-database surface the portal relies on: list by
// equality filter, create, and point update. The natural-key uniqueness of
// results is NOT enforced here; the publish reconciler owns that policy.
type Store interface {
	// List returns all records matching the exact 4-tuple key
	List(ctx context.Context, key shared.ResultKey) ([]StoredResult, error)

	// Create persists a new record and returns it with its storage id
	Create(ctx context.Context, r shared.StudentResult) (StoredResult, error)

	// Update overwrites the record with the given storage id
	Update(ctx context.Context, id string, r shared.StudentResult) error

	// ListRecent returns the most recently created records, newest first
	ListRecent(ctx context.Context, limit int64) ([]StoredResult, error)

	// ListBatch returns records belonging to one upload batch
	ListBatch(ctx context.Context, details shared.BatchDetails, limit int64) ([]StoredResult, error)
}

// ============================================================================
// MongoDB Implementation
// ============================================================================

const queryTimeout = 10 * time.Second

// MongoStore persists results in the "results" collection
type MongoStore struct {
	resultsCol *mongo.Collection
}

// NewMongoStore creates a MongoStore backed by the given database
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{resultsCol: db.Collection(shared.CollectionResults)}
}

func (s *MongoStore) List(ctx context.Context, key shared.ResultKey) ([]StoredResult, error) {
	filter := bson.M{
		"student_id":       key.StudentID,
		"academic_session": key.AcademicSession,
		"year":             key.Year,
		"semester":         key.Semester,
	}
	return s.find(ctx, filter, shared.BuildFindOptions(0, "created_at", 1))
}

func (s *MongoStore) Create(ctx context.Context, r shared.StudentResult) (StoredResult, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stored := StoredResult{
		ID:        shared.GenerateID("RES"),
		CreatedAt: time.Now(),
		Result:    r,
	}

	doc := resultToDocument(r)
	doc["_id"] = stored.ID
	doc["created_at"] = primitive.NewDateTimeFromTime(stored.CreatedAt)

	if _, err := s.resultsCol.InsertOne(queryCtx, doc); err != nil {
		return StoredResult{}, fmt.Errorf("failed to create result: %w", err)
	}

	return stored, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, r shared.StudentResult) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": resultToDocument(r)}
	res, err := s.resultsCol.UpdateOne(queryCtx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update result %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListRecent(ctx context.Context, limit int64) ([]StoredResult, error) {
	return s.find(ctx, bson.M{}, shared.BuildFindOptions(limit, "created_at", -1))
}

func (s *MongoStore) ListBatch(ctx context.Context, details shared.BatchDetails, limit int64) ([]StoredResult, error) {
	filter := bson.M{
		"academic_session": details.AcademicSession,
		"semester":         details.Semester,
		"year":             details.Year,
	}
	return s.find(ctx, filter, shared.BuildFindOptions(limit, "created_at", 1))
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]StoredResult, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.resultsCol.Find(queryCtx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer cursor.Close(queryCtx)

	var results []StoredResult
	for cursor.Next(queryCtx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		stored, err := documentToStoredResult(doc)
		if err != nil {
			continue
		}
		results = append(results, stored)
	}

	return results, nil
}

// ============================================================================
// Document Conversion Helpers
// ============================================================================

func resultToDocument(r shared.StudentResult) bson.M {
	return bson.M{
		"student_id":       r.StudentID,
		"name":             r.Name,
		"cgpa":             r.CGPA,
		"total_credit":     r.TotalCredit,
		"grade":            r.Grade,
		"has_backlogs":     r.HasBacklogs,
		"backlogs":         r.Backlogs,
		"year":             r.Year,
		"semester":         r.Semester,
		"academic_session": r.AcademicSession,
	}
}

func documentToStoredResult(doc bson.M) (StoredResult, error) {
	id, err := shared.GetString(doc["_id"])
	if err != nil {
		return StoredResult{}, fmt.Errorf("missing _id: %w", err)
	}

	stored := StoredResult{ID: id}

	if created, err := shared.GetTime(doc["created_at"]); err == nil {
		stored.CreatedAt = created
	}

	stored.Result.StudentID, _ = shared.GetString(doc["student_id"])
	stored.Result.Name, _ = shared.GetString(doc["name"])
	stored.Result.CGPA, _ = shared.GetString(doc["cgpa"])
	stored.Result.TotalCredit, _ = shared.GetString(doc["total_credit"])
	stored.Result.Grade, _ = shared.GetString(doc["grade"])
	stored.Result.HasBacklogs, _ = shared.GetBool(doc["has_backlogs"])
	stored.Result.Backlogs, _ = shared.GetString(doc["backlogs"])
	stored.Result.Year, _ = shared.GetString(doc["year"])
	stored.Result.Semester, _ = shared.GetString(doc["semester"])
	stored.Result.AcademicSession, _ = shared.GetString(doc["academic_session"])

	if stored.Result.StudentID == "" {
		return StoredResult{}, fmt.Errorf("document missing student_id")
	}

	return stored, nil
}
