package handlers

import (
	"log"
	"net/http"

	"github.com/smartclass/attendance/internal/database"
	"github.com/smartclass/attendance/internal/recognizer"
)

// StatsHandler serves the teacher dashboard summary.
type StatsHandler struct {
	attendance database.AttendanceStore
	sessions   *recognizer.Manager
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(attendance database.AttendanceStore, sessions *recognizer.Manager) *StatsHandler {
	return &StatsHandler{
		attendance: attendance,
		sessions:   sessions,
	}
}

// StatsResponse is the dashboard summary.
type StatsResponse struct {
	Students       int `json:"students"`
	Subjects       int `json:"subjects"`
	SessionsSaved  int `json:"sessions_saved"`
	PresentRows    int `json:"present_rows"`
	TotalRows      int `json:"total_rows"`
	ActiveSessions int `json:"active_sessions"`
}

// Get returns the signed-in teacher's summary numbers.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.attendance.Stats(r.Context(), teacherID(r))
	if err != nil {
		log.Printf("loading stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		Students:       stats.Students,
		Subjects:       stats.Subjects,
		SessionsSaved:  stats.SessionsSaved,
		PresentRows:    stats.PresentRows,
		TotalRows:      stats.TotalRows,
		ActiveSessions: h.sessions.Count(),
	})
}
