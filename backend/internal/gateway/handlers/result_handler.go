package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"me_result_portal/backend/internal/gateway/util"
	"me_result_portal/backend/internal/result"
	"me_result_portal/backend/internal/review"
	"me_result_portal/backend/internal/shared"
)

// maxUploadSize bounds the multipart form held in memory during extraction
const maxUploadSize = 32 << 20

// ResultHandler exposes the result pipeline endpoints: extraction, review,
// publish, edit, lookup, and the latest-batch summary.
type ResultHandler struct {
	Results *result.Service
	Review  *review.Stage
}

// RESTKeyRequest mirrors the JSON key used by fetch, edit, and lookup
type RESTKeyRequest struct {
	StudentID       string `json:"student_id"`
	AcademicSession string `json:"academic_session"`
	Year            string `json:"year"`
	Semester        string `json:"semester"`
}

func (k RESTKeyRequest) toKey() shared.ResultKey {
	return shared.ResultKey{
		StudentID:       k.StudentID,
		AcademicSession: k.AcademicSession,
		Year:            k.Year,
		Semester:        k.Semester,
	}
}

// RESTEditRequest mirrors the JSON input for staged-row edits
type RESTEditRequest struct {
	Index int    `json:"index"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// Extract handles POST /admin/results/extract. The uploaded workbook is
// parsed, the extracted rows are staged for review, and the rows are
// returned to the caller.
func (h *ResultHandler) Extract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	var data []byte
	if err == nil {
		defer file.Close()
		data, err = io.ReadAll(file)
		if err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
	}

	params := result.BatchParams{
		Semester: r.FormValue("semester"),
		Year:     r.FormValue("year"),
		Session:  r.FormValue("session"),
	}
	if params.Session == "" {
		params.Session = r.FormValue("Session")
	}

	results, err := result.Extract(data, params)
	if err != nil {
		if _, ok := shared.AsValidationError(err); ok || errors.Is(err, shared.ErrParse) {
			util.HandleServiceError(w, err)
			return
		}
		util.WriteJSONError(w, http.StatusInternalServerError, "Failed to extract results")
		return
	}

	// Staging is best effort: a cache failure should not lose the extraction
	if user := CurrentUser(r); user != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.Review.Put(ctx, user.ID, results); err != nil {
			log.Printf("Warning: failed to stage extracted batch: %v", err)
		}
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(results),
		"results": results,
	})
}

// RESTResultsRequest is the envelope carrying result records on publish and
// edit-update requests
type RESTResultsRequest struct {
	Results []shared.StudentResult `json:"results"`
}

// Publish handles POST /admin/results/publish
func (h *ResultHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var reqBody RESTResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(reqBody.Results) == 0 {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid results data")
		return
	}

	summary, err := h.Results.Publish(r.Context(), reqBody.Results)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	// The staged batch is spent once published
	if user := CurrentUser(r); user != nil {
		if err := h.Review.Invalidate(r.Context(), user.ID); err != nil {
			log.Printf("Warning: failed to invalidate staged batch: %v", err)
		}
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"message":         "Results published successfully",
		"created":         summary.Created,
		"failed":          summary.Failed,
		"existingResults": summary.ExistingResults,
	})
}

// ReviewGet handles GET /admin/results/review
func (h *ResultHandler) ReviewGet(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
		return
	}

	results, err := h.Review.Snapshot(r.Context(), user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(results),
		"results": results,
	})
}

// ReviewEdit handles PATCH /admin/results/review
func (h *ResultHandler) ReviewEdit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
		return
	}

	var reqBody RESTEditRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	results, err := h.Review.ApplyEdit(r.Context(), user.ID, reqBody.Index, reqBody.Field, reqBody.Value)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(results),
		"results": results,
	})
}

// EditFetch handles POST /admin/results/edit: load published records by key
func (h *ResultHandler) EditFetch(w http.ResponseWriter, r *http.Request) {
	var reqBody RESTKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	matches, err := h.Results.FetchByKey(r.Context(), reqBody.toKey())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(matches),
		"results": matches,
	})
}

// EditUpdate handles PUT /admin/results/edit: overwrite published records
func (h *ResultHandler) EditUpdate(w http.ResponseWriter, r *http.Request) {
	var reqBody RESTResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(reqBody.Results) == 0 {
		util.WriteJSONError(w, http.StatusBadRequest, "No results provided for update")
		return
	}

	updated := 0
	for _, rec := range reqBody.Results {
		if err := h.Results.UpdateByKey(r.Context(), rec); err != nil {
			util.HandleServiceError(w, err)
			return
		}
		updated++
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Results updated successfully",
		"updated": updated,
	})
}

// Lookup handles POST /results/lookup. Students may only query their own
// student id; admins may query any.
func (h *ResultHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
		return
	}

	var reqBody RESTKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	studentID := strings.ToUpper(strings.TrimSpace(reqBody.StudentID))
	if !shared.IsValidStudentID(studentID) {
		util.HandleServiceError(w, shared.NewValidationError("student_id"))
		return
	}

	if user.Role != shared.RoleAdmin {
		if !strings.EqualFold(studentID, user.StudentID) {
			util.WriteJSONError(w, http.StatusForbidden, "Forbidden")
			return
		}
	}

	record, err := h.Results.Lookup(r.Context(), reqBody.toKey())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  record,
	})
}

// Latest handles GET /admin/results/latest
func (h *ResultHandler) Latest(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Results.LatestDistribution(r.Context())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"details":      summary.Details,
		"total":        summary.Total,
		"distribution": summary.Distribution,
	})
}
