package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartclass/attendance/internal/database"
	"github.com/smartclass/attendance/internal/names"
)

// SubjectHandler handles subject endpoints.
type SubjectHandler struct {
	subjects database.SubjectStore
}

// NewSubjectHandler creates a new subject handler.
func NewSubjectHandler(subjects database.SubjectStore) *SubjectHandler {
	return &SubjectHandler{subjects: subjects}
}

// SubjectResponse is one subject entry.
type SubjectResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func toSubjectResponse(s *database.Subject) SubjectResponse {
	return SubjectResponse{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

// List returns the teacher's subjects.
func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.subjects.List(r.Context(), teacherID(r))
	if err != nil {
		log.Printf("listing subjects: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list subjects")
		return
	}

	resp := make([]SubjectResponse, 0, len(subjects))
	for i := range subjects {
		resp = append(resp, toSubjectResponse(&subjects[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"subjects": resp,
		"count":    len(resp),
	})
}

// Create adds a subject. Subject names are normalized and unique per teacher;
// creating an existing name returns the stored subject unchanged.
func (h *SubjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	name := names.Normalize(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "subject name is required")
		return
	}

	tid := teacherID(r)

	existing, err := h.subjects.List(r.Context(), tid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list subjects")
		return
	}
	for i := range existing {
		if strings.EqualFold(existing[i].Name, name) {
			respondJSON(w, http.StatusOK, toSubjectResponse(&existing[i]))
			return
		}
	}

	subject := &database.Subject{
		ID:        uuid.New().String(),
		TeacherID: tid,
		Name:      name,
	}
	if err := h.subjects.Create(r.Context(), subject); err != nil {
		log.Printf("creating subject %s: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusInternalServerError, "failed to create subject")
		return
	}

	respondJSON(w, http.StatusCreated, toSubjectResponse(subject))
}
