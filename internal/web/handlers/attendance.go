package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smartclass/attendance/internal/database"
)

// AttendanceHandler serves per-subject attendance reports.
type AttendanceHandler struct {
	attendance database.AttendanceStore
	subjects   database.SubjectStore
}

// NewAttendanceHandler creates a new attendance report handler.
func NewAttendanceHandler(attendance database.AttendanceStore, subjects database.SubjectStore) *AttendanceHandler {
	return &AttendanceHandler{
		attendance: attendance,
		subjects:   subjects,
	}
}

// AttendanceEntryResponse is one report row.
type AttendanceEntryResponse struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	RollNumber  string `json:"roll_number,omitempty"`
	BatchID     string `json:"batch_id"`
	Status      string `json:"status"`
	RecordedAt  string `json:"recorded_at"`
}

// Report returns a subject's attendance rows, newest batch first. Optional
// from/to query parameters (YYYY-MM-DD) bound the range; to is inclusive of
// the whole day.
func (h *AttendanceHandler) Report(w http.ResponseWriter, r *http.Request) {
	tid := teacherID(r)
	subjectID := chi.URLParam(r, "id")

	subject, err := h.subjects.Get(r.Context(), tid, subjectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get subject")
		return
	}
	if subject == nil {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.attendance.ListBySubject(r.Context(), tid, subjectID, from, to)
	if err != nil {
		log.Printf("listing attendance for subject %s: %v", sanitizeForLog(subjectID), err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	resp := make([]AttendanceEntryResponse, 0, len(entries))
	present := 0
	for _, e := range entries {
		if e.Status == database.StatusPresent {
			present++
		}
		resp = append(resp, AttendanceEntryResponse{
			StudentID:   e.StudentID,
			StudentName: e.StudentName,
			RollNumber:  e.RollNumber,
			BatchID:     e.BatchID,
			Status:      e.Status,
			RecordedAt:  e.RecordedAt.Format(time.RFC3339),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"subject": toSubjectResponse(subject),
		"entries": resp,
		"present": present,
		"total":   len(resp),
	})
}

func parseDateRange(r *http.Request) (from, to time.Time, err error) {
	const layout = "2006-01-02"

	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse(layout, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse(layout, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}
