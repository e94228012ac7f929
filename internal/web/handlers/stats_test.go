package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartclass/attendance/internal/database"
	"github.com/smartclass/attendance/internal/database/mock"
	"github.com/smartclass/attendance/internal/recognizer"
)

func TestStatsHandler_Get(t *testing.T) {
	attendance := mock.NewAttendanceStore()
	records := []database.AttendanceRecord{
		{StudentID: "alice", SubjectID: "s1", TeacherID: testTeacherID, BatchID: "b1", Status: database.StatusPresent},
		{StudentID: "bob", SubjectID: "s1", TeacherID: testTeacherID, BatchID: "b1", Status: database.StatusAbsent},
		{StudentID: "alice", SubjectID: "s1", TeacherID: testTeacherID, BatchID: "b2", Status: database.StatusPresent},
	}
	if err := attendance.SaveBatch(context.Background(), records); err != nil {
		t.Fatalf("failed to seed attendance: %v", err)
	}

	manager := recognizer.NewManager()
	t.Cleanup(manager.Stop)
	manager.Start(testTeacherID, "s1")

	handler := NewStatsHandler(attendance, manager)

	req := authedRequest(t, "GET", "/api/v1/stats", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp StatsResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.SessionsSaved != 2 {
		t.Errorf("expected 2 saved batches, got %d", resp.SessionsSaved)
	}
	if resp.PresentRows != 2 || resp.TotalRows != 3 {
		t.Errorf("expected 2 present of 3 rows, got %+v", resp)
	}
	if resp.ActiveSessions != 1 {
		t.Errorf("expected 1 active session, got %d", resp.ActiveSessions)
	}
}

func TestStatsHandler_Get_StoreError(t *testing.T) {
	attendance := mock.NewAttendanceStore()
	attendance.StatsError = errors.New("connection lost")

	manager := recognizer.NewManager()
	t.Cleanup(manager.Stop)

	handler := NewStatsHandler(attendance, manager)

	req := authedRequest(t, "GET", "/api/v1/stats", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
}
