package main

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"me_result_portal/backend/internal/shared"
)

const (
	// User IDs
	AdminID    = "admin-001"
	StudentID1 = "student-001" // Rahim Uddin, ME24001
	StudentID2 = "student-002" // Karim Hossain, ME24002
	StudentID3 = "student-003" // Salma Akter, ME23015

	// Common Credentials
	CommonPassword = "password"

	// Current Academic Period
	CurrentSession  = "2023-2024"
	PreviousSession = "2022-2023"
)

// ResultSeed is one published result row for easy seeding
type ResultSeed struct {
	StudentID   string
	Name        string
	CGPA        string
	TotalCredit string
	Grade       string
	Backlogs    string // JSON-serialized backlog list, empty for none
	Year        string
	Semester    string
	Session     string
}

func main() {
	log.Println("Starting Result Portal Database Seeder...")

	if err := shared.LoadEnv(".env"); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := shared.LoadPortalConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer shared.DisconnectMongoDB(client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seedUsers(ctx, db, cfg)
	seedResults(ctx, db)

	log.Println("All data seeding completed successfully.")
}

// ============================================================================
// SEEDING FUNCTIONS
// ============================================================================

func seedUsers(ctx context.Context, db *mongo.Database, cfg *shared.PortalConfig) {
	log.Println("--- Seeding Users ---")
	usersCol := db.Collection(shared.CollectionUsers)

	adminID := cfg.Security.AdminUserID
	if adminID == "" {
		adminID = AdminID
	}

	users := []shared.User{
		{ID: adminID, Name: "Department Admin", Email: "admin@example.com", Role: shared.RoleAdmin, IsActive: true, CreatedAt: time.Now()},
		{ID: StudentID1, Name: "Rahim Uddin", Email: "rahim@example.com", Role: shared.RoleStudent, IsActive: true, CreatedAt: time.Now(), StudentID: "ME24001", AcademicSession: CurrentSession},
		{ID: StudentID2, Name: "Karim Hossain", Email: "karim@example.com", Role: shared.RoleStudent, IsActive: true, CreatedAt: time.Now(), StudentID: "ME24002", AcademicSession: CurrentSession},
		{ID: StudentID3, Name: "Salma Akter", Email: "salma@example.com", Role: shared.RoleStudent, IsActive: true, CreatedAt: time.Now(), StudentID: "ME23015", AcademicSession: PreviousSession},
	}

	hashedBytes, _ := bcrypt.GenerateFromPassword([]byte(CommonPassword), cfg.Security.BCryptCost)
	hashedPassword := string(hashedBytes)

	for _, u := range users {
		u.PasswordHash = hashedPassword
		filter := bson.M{"email": u.Email}
		update := bson.M{"$set": u}
		opts := options.Update().SetUpsert(true)

		if _, err := usersCol.UpdateOne(ctx, filter, update, opts); err != nil {
			log.Fatalf("Error seeding user %s: %v", u.Email, err)
		}
		log.Printf("Seeded %s: %s", u.Role, u.Email)
	}
}

func seedResults(ctx context.Context, db *mongo.Database) {
	log.Println("--- Seeding Published Results ---")
	resultsCol := db.Collection(shared.CollectionResults)

	seeds := []ResultSeed{
		{"ME24001", "Rahim Uddin", "3.75", "21", "A", "", "1", "1", CurrentSession},
		{"ME24002", "Karim Hossain", "3.10", "18", "B+", `[{"course":"ME 1201","credit_lost":3}]`, "1", "1", CurrentSession},
		{"ME23015", "Salma Akter", "3.42", "40", "A-", "", "2", "2", PreviousSession},
	}

	for _, s := range seeds {
		result := shared.StudentResult{
			StudentID:       s.StudentID,
			Name:            s.Name,
			CGPA:            s.CGPA,
			TotalCredit:     s.TotalCredit,
			Grade:           s.Grade,
			HasBacklogs:     s.Backlogs != "",
			Backlogs:        s.Backlogs,
			Year:            s.Year,
			Semester:        s.Semester,
			AcademicSession: s.Session,
		}

		// Upsert by natural key so re-running the seeder never duplicates
		filter := bson.M{
			"student_id":       result.StudentID,
			"academic_session": result.AcademicSession,
			"year":             result.Year,
			"semester":         result.Semester,
		}
		update := bson.M{
			"$set":         result,
			"$setOnInsert": bson.M{"_id": shared.GenerateID("RES"), "created_at": time.Now()},
		}
		opts := options.Update().SetUpsert(true)

		if _, err := resultsCol.UpdateOne(ctx, filter, update, opts); err != nil {
			log.Fatalf("Error seeding result for %s: %v", s.StudentID, err)
		}
		log.Printf("Seeded Result: %s (%s %s %s)", s.StudentID, s.Session, s.Semester, s.Year)
	}

	total, err := shared.CountDocumentsWithTimeout(ctx, resultsCol, bson.M{}, 10*time.Second)
	if err != nil {
		log.Printf("Warning: failed to count results: %v", err)
		return
	}
	log.Printf("Results collection now holds %d records", total)
}
