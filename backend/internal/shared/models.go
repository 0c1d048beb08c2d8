// ============================================================================
// backend/internal/shared/models.go
// Shared data models and structs for MongoDB documents
// ============================================================================

package shared

import (
	"regexp"
	"strings"
	"time"
)

// ============================================================================
// User Models
// ============================================================================

// User represents a portal account (student or admin)
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"` // Never expose in JSON
	Role         string    `bson:"role" json:"role"`       // student, admin
	Name         string    `bson:"name" json:"name"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`

	// Student-specific fields
	StudentID       string `bson:"student_id,omitempty" json:"student_id,omitempty"`
	AcademicSession string `bson:"academic_session,omitempty" json:"academic_session,omitempty"`

	// Account status
	IsActive bool `bson:"is_active" json:"is_active"`
}

// Session represents an active user session (for JWT revocation tracking)
type Session struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	IPAddress string    `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
}

// IsExpired checks if a session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// ============================================================================
// Result Models
// ============================================================================

// StudentResult is one student's published result for one
// (year, semester, academic_session) tuple. All numeric fields are carried as
// strings because the source spreadsheets mix text and numeric cells; the
// storage schema keeps the string form.
type StudentResult struct {
	StudentID       string `bson:"student_id" json:"student_id"`
	Name            string `bson:"name" json:"name"`
	CGPA            string `bson:"cgpa" json:"cgpa"`
	TotalCredit     string `bson:"total_credit" json:"total_credit"`
	Grade           string `bson:"grade" json:"grade"`
	HasBacklogs     bool   `bson:"has_backlogs" json:"has_backlogs"`
	Backlogs        string `bson:"backlogs" json:"backlogs"` // JSON-serialized []Backlog
	Year            string `bson:"year" json:"year"`
	Semester        string `bson:"semester" json:"semester"`
	AcademicSession string `bson:"academic_session" json:"academic_session"`
}

// Backlog is one failed/incomplete course inside a StudentResult
type Backlog struct {
	Course     string  `json:"course"`
	CreditLost float64 `json:"credit_lost"`
}

// ResultKey is the natural key of a StudentResult in storage
type ResultKey struct {
	StudentID       string `json:"student_id"`
	AcademicSession string `json:"academic_session"`
	Year            string `json:"year"`
	Semester        string `json:"semester"`
}

// Normalized returns the canonical form of the key: all fields trimmed,
// student id additionally upper-cased
func (k ResultKey) Normalized() ResultKey {
	return ResultKey{
		StudentID:       strings.ToUpper(strings.TrimSpace(k.StudentID)),
		AcademicSession: strings.TrimSpace(k.AcademicSession),
		Year:            strings.TrimSpace(k.Year),
		Semester:        strings.TrimSpace(k.Semester),
	}
}

// IsComplete reports whether all four key fields are non-empty
func (k ResultKey) IsComplete() bool {
	return k.StudentID != "" && k.AcademicSession != "" && k.Year != "" && k.Semester != ""
}

// MissingFields lists the empty key fields by their wire names
func (k ResultKey) MissingFields() []string {
	var missing []string
	if k.StudentID == "" {
		missing = append(missing, "student_id")
	}
	if k.AcademicSession == "" {
		missing = append(missing, "academic_session")
	}
	if k.Year == "" {
		missing = append(missing, "year")
	}
	if k.Semester == "" {
		missing = append(missing, "semester")
	}
	return missing
}

// Key returns the (normalized) natural key of the record
func (r *StudentResult) Key() ResultKey {
	return ResultKey{
		StudentID:       r.StudentID,
		AcademicSession: r.AcademicSession,
		Year:            r.Year,
		Semester:        r.Semester,
	}.Normalized()
}

// Normalize rewrites the four key fields into canonical form in place
func (r *StudentResult) Normalize() {
	k := r.Key()
	r.StudentID = k.StudentID
	r.AcademicSession = k.AcademicSession
	r.Year = k.Year
	r.Semester = k.Semester
}

// PublishSummary is the outcome of one publish batch
type PublishSummary struct {
	Created         int `json:"created"`
	Failed          int `json:"failed"`
	ExistingResults int `json:"existingResults"`
}

// GradeCount is one bucket of the grade distribution summary
type GradeCount struct {
	Grade string `json:"grade"`
	Count int    `json:"count"`
}

// BatchDetails identifies the academic period of one upload batch
type BatchDetails struct {
	AcademicSession string `json:"academic_session"`
	Semester        string `json:"semester"`
	Year            string `json:"year"`
}

// ============================================================================
// Validation Helpers
// ============================================================================

var studentIDPattern = regexp.MustCompile(`^ME\d{5,}$`)

// IsValidStudentID checks the canonical department id form (ME followed by
// at least five digits)
func IsValidStudentID(id string) bool {
	return studentIDPattern.MatchString(id)
}

// gradeOrder is the academic grade ladder used when sorting distributions;
// unknown grades sort after all known ones
var gradeOrder = []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "D", "F"}

// GradeRank returns the sort position of a letter grade
func GradeRank(grade string) int {
	for i, g := range gradeOrder {
		if g == grade {
			return i
		}
	}
	return len(gradeOrder) + 1
}

// ============================================================================
// Constants
// ============================================================================

const (
	// User roles
	RoleStudent = "student"
	RoleAdmin   = "admin"

	// Collections
	CollectionUsers       = "users"
	CollectionSessions    = "sessions"
	CollectionResults     = "results"
	CollectionReviewCache = "review_cache"
)
