package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smartclass/attendance/internal/config"
	"github.com/smartclass/attendance/internal/database"
	"github.com/smartclass/attendance/internal/extractor"
	"github.com/smartclass/attendance/internal/recognizer"
	"github.com/smartclass/attendance/internal/snapshot"
	"github.com/smartclass/attendance/internal/web/metrics"
)

// LiveHandler handles live recognition session endpoints. A session
// accumulates recognized students in memory; nothing touches the database
// until save.
type LiveHandler struct {
	sessions   *recognizer.Manager
	students   database.StudentStore
	subjects   database.SubjectStore
	attendance database.AttendanceStore
	extractor  FeatureExtractor
	cfg        *config.RecognitionConfig
}

// NewLiveHandler creates a new live session handler.
func NewLiveHandler(
	sessions *recognizer.Manager,
	students database.StudentStore,
	subjects database.SubjectStore,
	attendance database.AttendanceStore,
	fe FeatureExtractor,
	cfg *config.RecognitionConfig,
) *LiveHandler {
	return &LiveHandler{
		sessions:   sessions,
		students:   students,
		subjects:   subjects,
		attendance: attendance,
		extractor:  fe,
		cfg:        cfg,
	}
}

// SessionResponse is the state of a live session.
type SessionResponse struct {
	SessionID  string                         `json:"session_id"`
	SubjectID  string                         `json:"subject_id"`
	State      string                         `json:"state"`
	Recognized []recognizer.RecognizedStudent `json:"recognized"`
	CreatedAt  string                         `json:"created_at"`
}

func toSessionResponse(s *recognizer.Session) SessionResponse {
	return SessionResponse{
		SessionID:  s.ID,
		SubjectID:  s.SubjectID,
		State:      string(s.State()),
		Recognized: s.Recognized(),
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}
}

// Start opens a live session for a subject. The subject must exist and
// belong to the signed-in teacher.
func (h *LiveHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID string `json:"subject_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.SubjectID == "" {
		respondError(w, http.StatusBadRequest, "subject_id is required")
		return
	}

	tid := teacherID(r)

	subject, err := h.subjects.Get(r.Context(), tid, req.SubjectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get subject")
		return
	}
	if subject == nil {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}

	enrolled, err := h.students.Count(r.Context(), tid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count students")
		return
	}
	if enrolled == 0 {
		respondError(w, http.StatusConflict, "no students enrolled; register students before taking attendance")
		return
	}

	session := h.sessions.Start(tid, subject.ID)
	respondJSON(w, http.StatusCreated, toSessionResponse(session))
}

// Status returns the current state of a session.
func (h *LiveHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Get(chi.URLParam(r, "id"), teacherID(r))
	if session == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

// CaptureResponse is the result of one frame capture.
type CaptureResponse struct {
	Matched    bool                           `json:"matched"`
	Student    *recognizer.RecognizedStudent  `json:"student,omitempty"`
	Distance   float64                        `json:"distance,omitempty"`
	Recognized []recognizer.RecognizedStudent `json:"recognized"`
}

// Capture runs one frame through the recognizer. Only one capture may be in
// flight per session; a second concurrent capture is rejected rather than
// queued. No match under the threshold is a normal outcome; a frame with no
// detectable face is a 422 asking the operator to recapture.
func (h *LiveHandler) Capture(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Get(chi.URLParam(r, "id"), teacherID(r))
	if session == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	frame, err := readFrame(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := session.BeginCapture(); err != nil {
		switch {
		case errors.Is(err, recognizer.ErrCaptureInProgress):
			respondError(w, http.StatusConflict, "a capture is already being processed")
		case errors.Is(err, recognizer.ErrSessionClosed):
			respondError(w, http.StatusGone, "session is closed")
		default:
			respondError(w, http.StatusInternalServerError, "capture failed")
		}
		return
	}
	defer session.EndCapture()

	start := time.Now()
	encoding, facesCount, err := h.extractor.Extract(r.Context(), frame)
	metrics.ObserveExtractor(start)
	if err != nil {
		if errors.Is(err, extractor.ErrNoFace) {
			metrics.Recognitions.WithLabelValues("no_face").Inc()
			respondError(w, http.StatusUnprocessableEntity, "no face detected in the frame, recapture and try again")
			return
		}
		metrics.Recognitions.WithLabelValues("error").Inc()
		log.Printf("extracting frame for session %s: %v", sanitizeForLog(session.ID), err)
		respondError(w, http.StatusBadGateway, "face extraction failed")
		return
	}
	_ = facesCount // multiple faces in a frame: the extractor returns the first

	students, err := h.students.List(r.Context(), session.TeacherID)
	if err != nil {
		metrics.Recognitions.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}

	candidates := recognizer.CandidatesFromStudents(students)
	match := recognizer.FirstMatch(encoding, candidates, session.RecognizedSet(), h.cfg.MatchThreshold)
	if match == nil {
		metrics.Recognitions.WithLabelValues("no_match").Inc()
		respondJSON(w, http.StatusOK, CaptureResponse{
			Matched:    false,
			Recognized: session.Recognized(),
		})
		return
	}

	session.AddRecognized(match.StudentID, match.Name)
	metrics.Recognitions.WithLabelValues("matched").Inc()

	respondJSON(w, http.StatusOK, CaptureResponse{
		Matched:    true,
		Student:    &recognizer.RecognizedStudent{StudentID: match.StudentID, Name: match.Name},
		Distance:   match.Distance,
		Recognized: session.Recognized(),
	})
}

func readFrame(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(snapshot.MaxUploadBytes); err != nil {
		return nil, errors.New("invalid multipart form")
	}
	file, _, err := r.FormFile("frame")
	if err != nil {
		return nil, errors.New("frame is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, snapshot.MaxUploadBytes+1))
	if err != nil {
		return nil, errors.New("failed to read frame")
	}
	if len(data) > snapshot.MaxUploadBytes {
		return nil, errors.New("frame exceeds the upload size limit")
	}

	prepared, err := snapshot.Prepare(data)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotAnImage) {
			return nil, errors.New("frame is not a valid image")
		}
		return nil, errors.New("failed to process frame")
	}
	return prepared, nil
}

// SaveResponse summarizes a saved attendance batch.
type SaveResponse struct {
	BatchID string `json:"batch_id"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Total   int    `json:"total"`
}

// Save writes the session's attendance: one row per enrolled student,
// present when recognized and absent otherwise, all sharing one batch ID.
// The whole batch goes in a single transaction; the session is torn down
// afterwards.
func (h *LiveHandler) Save(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Get(chi.URLParam(r, "id"), teacherID(r))
	if session == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	// Closed while the roster is read and the batch written so no capture
	// can slip in. A failed save reopens the session for another attempt.
	session.Close()

	students, err := h.students.List(r.Context(), session.TeacherID)
	if err != nil {
		session.Reopen()
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}

	recognized := session.RecognizedSet()
	batchID := uuid.New().String()
	recordedAt := time.Now().UTC()

	records := make([]database.AttendanceRecord, 0, len(students))
	present := 0
	for i := range students {
		status := database.StatusAbsent
		if recognized[students[i].ID] {
			status = database.StatusPresent
			present++
		}
		records = append(records, database.AttendanceRecord{
			StudentID:   students[i].ID,
			StudentName: students[i].Name,
			SubjectID:   session.SubjectID,
			TeacherID:   session.TeacherID,
			BatchID:     batchID,
			Status:      status,
			RecordedAt:  recordedAt,
		})
	}

	if err := h.attendance.SaveBatch(r.Context(), records); err != nil {
		session.Reopen()
		log.Printf("saving attendance batch %s: %v", batchID, err)
		respondError(w, http.StatusInternalServerError, "failed to save attendance")
		return
	}

	h.sessions.Remove(session.ID)
	metrics.SessionsSaved.Inc()

	respondJSON(w, http.StatusOK, SaveResponse{
		BatchID: batchID,
		Present: present,
		Absent:  len(records) - present,
		Total:   len(records),
	})
}

// Discard tears a session down without writing anything.
func (h *LiveHandler) Discard(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Get(chi.URLParam(r, "id"), teacherID(r))
	if session == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	session.Close()
	h.sessions.Remove(session.ID)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
