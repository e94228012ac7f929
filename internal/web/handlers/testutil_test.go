package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smartclass/attendance/internal/config"
	"github.com/smartclass/attendance/internal/extractor"
	"github.com/smartclass/attendance/internal/web/middleware"
)

const testTeacherID = "teacher-1"

// testRecognitionConfig returns the default thresholds for handler tests.
func testRecognitionConfig() *config.RecognitionConfig {
	return &config.RecognitionConfig{
		MatchThreshold:      0.5,
		SamePersonThreshold: 0.6,
		DescriptorDim:       128,
	}
}

// authedRequest creates a request with a teacher session in context,
// bypassing RequireAuth the way the middleware would have populated it.
func authedRequest(t *testing.T, method, path string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	session := &middleware.Session{
		ID:        "test-session",
		UserID:    testTeacherID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return req.WithContext(middleware.SetSessionInContext(req.Context(), session))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonBody encodes a value as a JSON request body.
func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	return bytes.NewReader(data)
}

// testImagePNG returns a small decodable PNG to stand in for a camera frame.
func testImagePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// multipartBody builds a multipart form with text fields and file parts.
func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("failed to write form field %s: %v", name, err)
		}
	}
	for name, data := range files {
		part, err := mw.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatalf("failed to create form file %s: %v", name, err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("failed to write form file %s: %v", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// fakeExtractor is a FeatureExtractor test double.
type fakeExtractor struct {
	Encoding   []float32
	FacesCount int
	Pair       *extractor.PairResult
	Err        error
	Calls      int
}

func (f *fakeExtractor) Extract(ctx context.Context, imageData []byte) ([]float32, int, error) {
	f.Calls++
	if f.Err != nil {
		return nil, 0, f.Err
	}
	return f.Encoding, f.FacesCount, nil
}

func (f *fakeExtractor) ExtractPair(ctx context.Context, image1, image2 []byte) (*extractor.PairResult, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Pair, nil
}

// encodingAt returns a descriptor whose distance from the origin is d.
func encodingAt(d float64) []float32 {
	enc := make([]float32, 4)
	enc[0] = float32(d)
	return enc
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// assertErrorContains checks the JSON error message contains a substring.
func assertErrorContains(t *testing.T, recorder *httptest.ResponseRecorder, substring string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if !strings.Contains(result["error"], substring) {
		t.Errorf("expected error containing '%s', got '%s'", substring, result["error"])
	}
}
