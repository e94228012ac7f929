package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/smartclass/attendance/internal/extractor"
	"github.com/smartclass/attendance/internal/web/middleware"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// FeatureExtractor is the extractor surface handlers depend on.
// *extractor.Client implements it; tests substitute fakes.
type FeatureExtractor interface {
	Extract(ctx context.Context, imageData []byte) ([]float32, int, error)
	ExtractPair(ctx context.Context, image1, image2 []byte) (*extractor.PairResult, error)
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// teacherID returns the signed-in teacher's user ID, or "" when the request
// carries no session (only possible in tests bypassing RequireAuth).
func teacherID(r *http.Request) string {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		return ""
	}
	return session.UserID
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
