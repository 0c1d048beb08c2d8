package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"me_result_portal/backend/internal/result"
	"me_result_portal/backend/internal/review"
	"me_result_portal/backend/internal/shared"
)

// stubAuth maps bearer tokens to fixed users, avoiding a live database
type stubAuth struct {
	users map[string]*shared.User
}

func (s *stubAuth) Login(ctx context.Context, identifier, password string) (string, *shared.User, error) {
	for token, user := range s.users {
		if user.Email == identifier && password == "password" {
			return token, user, nil
		}
	}
	return "", nil, fmt.Errorf("%w: invalid credentials", shared.ErrUnauthorized)
}

func (s *stubAuth) Logout(ctx context.Context, token string) error {
	return nil
}

func (s *stubAuth) Validate(ctx context.Context, token string) (*shared.User, error) {
	if user, ok := s.users[token]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("%w: session expired or revoked", shared.ErrUnauthorized)
}

const (
	adminToken   = "admin-token"
	studentToken = "student-token"
)

func newTestRouter(t *testing.T) (*chi.Mux, *result.MemStore) {
	t.Helper()

	auth := &stubAuth{users: map[string]*shared.User{
		adminToken: {
			ID:       "admin-001",
			Email:    "admin@example.com",
			Role:     shared.RoleAdmin,
			Name:     "Department Admin",
			IsActive: true,
		},
		studentToken: {
			ID:        "student-001",
			Email:     "rahim@example.com",
			Role:      shared.RoleStudent,
			Name:      "Rahim Uddin",
			StudentID: "ME24001",
			IsActive:  true,
		},
	}}

	store := result.NewMemStore()
	resultService := result.NewService(store, 4)
	stage := review.NewStage(review.NewMemCache(), time.Minute)

	cfg := &shared.PortalConfig{
		Security: shared.SecurityConfig{AdminUserID: "admin-001"},
		CORS:     shared.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}

	return SetupRoutes(auth, resultService, stage, cfg), store
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func sampleKey(studentID string) map[string]string {
	return map[string]string{
		"student_id":       studentID,
		"academic_session": "2023-2024",
		"year":             "1",
		"semester":         "1",
	}
}

func sampleResult(studentID string) shared.StudentResult {
	return shared.StudentResult{
		StudentID:       studentID,
		Name:            "Test Student",
		CGPA:            "3.50",
		TotalCredit:     "21",
		Grade:           "A",
		Year:            "1",
		Semester:        "1",
		AcademicSession: "2023-2024",
	}
}

func resultsEnvelope(rows ...shared.StudentResult) map[string]interface{} {
	if rows == nil {
		rows = []shared.StudentResult{}
	}
	return map[string]interface{}{"results": rows}
}

func TestRouteAuthorization(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("Protected Route Requires Token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/results/lookup", "", sampleKey("ME24001"))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("Unknown Token Rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/results/lookup", "bogus", sampleKey("ME24001"))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("Student Cannot Reach Admin Routes", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/admin/results/latest", studentToken, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", rec.Code)
		}
	})

	t.Run("Validate Echoes User", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/auth/validate", studentToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["valid"] != true {
			t.Errorf("Expected valid response, got %v", body)
		}
	})
}

func TestLookupRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	// Publish a record as admin first
	rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/results/publish", adminToken,
		resultsEnvelope(sampleResult("ME24001"), sampleResult("ME24002")))
	if rec.Code != http.StatusOK {
		t.Fatalf("Publish failed: %d %s", rec.Code, rec.Body.String())
	}

	t.Run("Student Reads Own Result", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/results/lookup", studentToken, sampleKey("ME24001"))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Student Blocked From Other Results", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/results/lookup", studentToken, sampleKey("ME24002"))
		if rec.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", rec.Code)
		}
	})

	t.Run("Admin Reads Any Result", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/results/lookup", adminToken, sampleKey("ME24002"))
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Missing Record Returns 404", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/results/lookup", adminToken, sampleKey("ME24099"))
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})

	t.Run("Malformed Student ID Rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/results/lookup", adminToken, sampleKey("CE24001"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}

func TestExtractReviewPublishFlow(t *testing.T) {
	router, store := newTestRouter(t)

	// Build an upload: workbook plus batch parameters
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Student ID", "Name", "GPA", "Credit Earned", "Lost Credit", "Result"},
		{"me24034", "Rahim Uddin", "3.75", "21", "", "A"},
		{"ME24035", "Karim Hossain", "2.90", "18", "3(ME 1201)", "B"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("Failed to write row: %v", err)
		}
	}
	workbook, err := f.WriteToBuffer()
	f.Close()
	if err != nil {
		t.Fatalf("Failed to serialize workbook: %v", err)
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", "results.xlsx")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(workbook.Bytes())
	writer.WriteField("semester", "1")
	writer.WriteField("year", "1")
	writer.WriteField("session", "2023-2024")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/results/extract", &form)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Extract failed: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(2) {
		t.Fatalf("Expected 2 extracted rows, got %v", body["count"])
	}

	t.Run("Extraction Is Staged For Review", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/admin/results/review", adminToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Review fetch failed: %d %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["count"] != float64(2) {
			t.Errorf("Expected 2 staged rows, got %v", body["count"])
		}
	})

	t.Run("Staged Row Can Be Edited", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPatch, "/api/v1/admin/results/review", adminToken,
			map[string]interface{}{"index": 0, "field": "cgpa", "value": "3.80"})
		if rec.Code != http.StatusOK {
			t.Fatalf("Review edit failed: %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Publish Creates Records And Spends Stage", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/admin/results/review", adminToken, nil)
		body := decodeBody(t, rec)
		raw, err := json.Marshal(body["results"])
		if err != nil {
			t.Fatalf("Failed to re-marshal staged rows: %v", err)
		}
		var staged []shared.StudentResult
		if err := json.Unmarshal(raw, &staged); err != nil {
			t.Fatalf("Failed to decode staged rows: %v", err)
		}

		rec = doJSON(t, router, http.MethodPost, "/api/v1/admin/results/publish", adminToken, resultsEnvelope(staged...))
		if rec.Code != http.StatusOK {
			t.Fatalf("Publish failed: %d %s", rec.Code, rec.Body.String())
		}
		body = decodeBody(t, rec)
		if body["created"] != float64(2) || body["existingResults"] != float64(0) {
			t.Errorf("Unexpected publish summary: %v", body)
		}
		if store.Count() != 2 {
			t.Errorf("Expected 2 stored records, got %d", store.Count())
		}

		// Stage is gone after publish
		rec = doJSON(t, router, http.MethodGet, "/api/v1/admin/results/review", adminToken, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for spent stage, got %d", rec.Code)
		}
	})

	t.Run("Republish Counts Existing", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/results/publish", adminToken,
			resultsEnvelope(sampleResult("ME24034")))
		if rec.Code != http.StatusOK {
			t.Fatalf("Publish failed: %d %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["created"] != float64(0) || body["existingResults"] != float64(1) {
			t.Errorf("Unexpected publish summary: %v", body)
		}
	})

	t.Run("Latest Batch Summary", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/admin/results/latest", adminToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Latest failed: %d %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["total"] != float64(2) {
			t.Errorf("Expected 2 records in latest batch, got %v", body["total"])
		}
	})
}

func TestAuthRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("Login Success", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
			map[string]string{"identifier": "rahim@example.com", "password": "password"})
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["token"] == "" || body["token"] == nil {
			t.Errorf("Expected token in response, got %v", body)
		}
	})

	t.Run("Login Wrong Password", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
			map[string]string{"identifier": "rahim@example.com", "password": "wrong"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("Login Missing Fields", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
			map[string]string{"identifier": "rahim@example.com"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("Logout Is Idempotent", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
	})
}

func TestPublishValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("Empty Batch Rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/results/publish", adminToken,
			resultsEnvelope())
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("Bare Array Rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/results/publish", adminToken,
			[]shared.StudentResult{sampleResult("ME24001")})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for body without results envelope, got %d", rec.Code)
		}
	})

	t.Run("Malformed Body Rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/results/publish", bytes.NewReader([]byte("{broken")))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+adminToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}

func TestEditRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/results/publish", adminToken,
		resultsEnvelope(sampleResult("ME24001")))
	if rec.Code != http.StatusOK {
		t.Fatalf("Publish failed: %d %s", rec.Code, rec.Body.String())
	}

	t.Run("Fetch By Key", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/results/edit", adminToken, sampleKey("me24001"))
		if rec.Code != http.StatusOK {
			t.Fatalf("Fetch failed: %d %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["count"] != float64(1) {
			t.Errorf("Expected 1 match, got %v", body["count"])
		}
	})

	t.Run("Incomplete Key Rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/results/edit", adminToken,
			map[string]string{"student_id": "ME24001"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("Update By Key", func(t *testing.T) {
		updated := sampleResult("ME24001")
		updated.CGPA = "3.95"
		rec := doJSON(t, router, http.MethodPut, "/api/v1/admin/results/edit", adminToken,
			resultsEnvelope(updated))
		if rec.Code != http.StatusOK {
			t.Fatalf("Update failed: %d %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, router, http.MethodPost, "/api/v1/results/lookup", adminToken, sampleKey("ME24001"))
		if rec.Code != http.StatusOK {
			t.Fatalf("Lookup failed: %d %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		record, _ := body["result"].(map[string]interface{})
		inner, _ := record["result"].(map[string]interface{})
		if inner["cgpa"] != "3.95" {
			t.Errorf("Expected updated cgpa, got %v", body)
		}
	})

	t.Run("Empty Update Rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/api/v1/admin/results/edit", adminToken,
			resultsEnvelope())
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}
