package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smartclass/attendance/internal/config"
	"github.com/smartclass/attendance/internal/database"
	"github.com/smartclass/attendance/internal/extractor"
	"github.com/smartclass/attendance/internal/names"
	"github.com/smartclass/attendance/internal/snapshot"
	"github.com/smartclass/attendance/internal/web/metrics"
)

// StudentHandler handles student enrollment and roster endpoints.
type StudentHandler struct {
	students  database.StudentStore
	extractor FeatureExtractor
	index     *database.DescriptorIndex
	cfg       *config.RecognitionConfig
}

// NewStudentHandler creates a new student handler.
func NewStudentHandler(students database.StudentStore, fe FeatureExtractor, index *database.DescriptorIndex, cfg *config.RecognitionConfig) *StudentHandler {
	return &StudentHandler{
		students:  students,
		extractor: fe,
		index:     index,
		cfg:       cfg,
	}
}

// RegisterResponse is the enrollment result. Warnings are advisory; the
// student is enrolled regardless.
type RegisterResponse struct {
	Student  StudentResponse `json:"student"`
	Warnings []string        `json:"warnings,omitempty"`
}

// StudentResponse is a roster entry.
type StudentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RollNumber  string `json:"roll_number"`
	Email       string `json:"email,omitempty"`
	Descriptors int    `json:"descriptors"`
	CreatedAt   string `json:"created_at"`
}

func toStudentResponse(s *database.Student) StudentResponse {
	return StudentResponse{
		ID:          s.ID,
		Name:        s.Name,
		RollNumber:  s.RollNumber,
		Email:       s.Email,
		Descriptors: len(s.Descriptors),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}

// Register enrolls a student from a multipart form carrying the identity
// fields plus exactly two face captures (image1, image2). Each capture must
// contain exactly one face. Registration fails on extraction errors; the
// same-person and duplicate checks only produce warnings.
func (h *StudentHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(2 * snapshot.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	image1, err := readFormImage(r, "image1")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	image2, err := readFormImage(r, "image2")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	pair, err := h.extractor.ExtractPair(r.Context(), image1, image2)
	metrics.ObserveExtractor(start)
	if err != nil {
		if errors.Is(err, extractor.ErrNoFace) {
			respondError(w, http.StatusBadRequest, "no face detected in one of the captures")
			return
		}
		log.Printf("extracting enrollment captures: %v", err)
		respondError(w, http.StatusBadGateway, "face extraction failed")
		return
	}

	if pair.Image1.FacesCount != 1 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("first capture must contain exactly one face, found %d", pair.Image1.FacesCount))
		return
	}
	if pair.Image2.FacesCount != 1 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("second capture must contain exactly one face, found %d", pair.Image2.FacesCount))
		return
	}

	var warnings []string
	if pair.Distance > h.cfg.SamePersonThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"the two captures differ by %.3f and may show different people", pair.Distance))
	}
	warnings = append(warnings, h.duplicateWarnings(teacherID(r), pair)...)

	student := &database.Student{
		ID:         uuid.New().String(),
		TeacherID:  teacherID(r),
		Name:       names.Normalize(name),
		RollNumber: strings.TrimSpace(r.FormValue("roll_number")),
		Email:      strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Descriptors: []database.StoredDescriptor{
			{Position: 0, Embedding: pair.Image1.Encoding, Dim: len(pair.Image1.Encoding)},
			{Position: 1, Embedding: pair.Image2.Encoding, Dim: len(pair.Image2.Encoding)},
		},
	}

	if err := h.students.Create(r.Context(), student); err != nil {
		log.Printf("creating student %s: %v", sanitizeForLog(student.Name), err)
		respondError(w, http.StatusInternalServerError, "failed to enroll student")
		return
	}

	if h.index != nil {
		h.index.Add(student)
	}
	metrics.StudentsRegistered.Inc()

	respondJSON(w, http.StatusCreated, RegisterResponse{
		Student:  toStudentResponse(student),
		Warnings: warnings,
	})
}

// duplicateWarnings checks the new captures against the descriptor index and
// names any already-enrolled student whose face sits within the match radius.
// The index spans all teachers; only the caller's own students are reported.
func (h *StudentHandler) duplicateWarnings(tid string, pair *extractor.PairResult) []string {
	if h.index == nil || h.index.Count() == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var warnings []string
	for _, encoding := range [][]float32{pair.Image1.Encoding, pair.Image2.Encoding} {
		neighbors, distances, err := h.index.Nearest(encoding, database.HNSWSearchK)
		if err != nil {
			continue
		}
		for i, n := range neighbors {
			if n.TeacherID != tid || distances[i] >= h.cfg.MatchThreshold || seen[n.StudentID] {
				continue
			}
			seen[n.StudentID] = true
			warnings = append(warnings, fmt.Sprintf(
				"capture closely resembles already enrolled student %s (distance %.3f)", n.StudentName, distances[i]))
		}
	}
	return warnings
}

func readFormImage(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s capture is required", field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, snapshot.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s", field)
	}
	if len(data) > snapshot.MaxUploadBytes {
		return nil, fmt.Errorf("%s exceeds the upload size limit", field)
	}

	prepared, err := snapshot.Prepare(data)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotAnImage) {
			return nil, fmt.Errorf("%s is not a valid image", field)
		}
		return nil, fmt.Errorf("failed to process %s", field)
	}
	return prepared, nil
}

// List returns the teacher's roster in enrollment order.
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.students.List(r.Context(), teacherID(r))
	if err != nil {
		log.Printf("listing students: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}

	resp := make([]StudentResponse, 0, len(students))
	for i := range students {
		resp = append(resp, toStudentResponse(&students[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"students": resp,
		"count":    len(resp),
	})
}

// Get returns one student.
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	student, err := h.students.Get(r.Context(), teacherID(r), studentID)
	if err != nil {
		log.Printf("getting student %s: %v", sanitizeForLog(studentID), err)
		respondError(w, http.StatusInternalServerError, "failed to get student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}

	respondJSON(w, http.StatusOK, toStudentResponse(student))
}

// Delete removes a student, their descriptors, and their index entries.
// Past attendance rows stay untouched.
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	student, err := h.students.Get(r.Context(), teacherID(r), studentID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}

	if err := h.students.Delete(r.Context(), teacherID(r), studentID); err != nil {
		log.Printf("deleting student %s: %v", sanitizeForLog(studentID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete student")
		return
	}

	if h.index != nil {
		h.index.Remove(studentID)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
