package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/smartclass/attendance/internal/database"
	"github.com/smartclass/attendance/internal/database/mock"
	"github.com/smartclass/attendance/internal/web/middleware"
)

func newTestAuthHandler(t *testing.T) (*AuthHandler, *mock.UserStore, *middleware.SessionManager) {
	t.Helper()
	users := mock.NewUserStore()
	sm := middleware.NewSessionManager("test-secret", nil)
	t.Cleanup(sm.Stop)
	return NewAuthHandler(users, sm), users, sm
}

func createTestUser(t *testing.T, users *mock.UserStore, email, password string) *database.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &database.User{
		ID:           "user-" + email,
		Email:        email,
		Name:         "Test Teacher",
		PasswordHash: string(hash),
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	handler, users, _ := newTestAuthHandler(t)

	body := jsonBody(t, map[string]string{
		"email":    "Teacher@School.Edu",
		"name":     "Jane Roe",
		"password": "correct-horse",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/signup", body)
	recorder := httptest.NewRecorder()

	handler.Signup(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp LoginResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Success {
		t.Errorf("expected success=true, got %+v", resp)
	}
	if resp.SessionID == "" {
		t.Error("expected a session ID")
	}

	// Email is stored lowercased
	stored, err := users.GetByEmail(context.Background(), "teacher@school.edu")
	if err != nil || stored == nil {
		t.Fatalf("expected stored user, got %v, %v", stored, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse")) != nil {
		t.Error("stored password hash does not verify")
	}

	cookies := recorder.Result().Cookies()
	if len(cookies) == 0 {
		t.Error("expected a session cookie to be set")
	}
}

func TestAuthHandler_Signup_DuplicateEmail(t *testing.T) {
	handler, users, _ := newTestAuthHandler(t)
	createTestUser(t, users, "taken@school.edu", "password1")

	body := jsonBody(t, map[string]string{
		"email":    "taken@school.edu",
		"password": "password2",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/signup", body)
	recorder := httptest.NewRecorder()

	handler.Signup(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
}

func TestAuthHandler_Signup_ShortPassword(t *testing.T) {
	handler, _, _ := newTestAuthHandler(t)

	body := jsonBody(t, map[string]string{
		"email":    "teacher@school.edu",
		"password": "short",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/signup", body)
	recorder := httptest.NewRecorder()

	handler.Signup(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	handler, users, _ := newTestAuthHandler(t)
	createTestUser(t, users, "teacher@school.edu", "correct-horse")

	body := jsonBody(t, map[string]string{
		"email":    "teacher@school.edu",
		"password": "correct-horse",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", body)
	recorder := httptest.NewRecorder()

	handler.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp LoginResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Success || resp.SessionID == "" {
		t.Errorf("expected a successful login with session, got %+v", resp)
	}
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	handler, users, _ := newTestAuthHandler(t)
	createTestUser(t, users, "teacher@school.edu", "correct-horse")

	body := jsonBody(t, map[string]string{
		"email":    "teacher@school.edu",
		"password": "wrong-horse",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", body)
	recorder := httptest.NewRecorder()

	handler.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnauthorized)
}

func TestAuthHandler_Login_UnknownEmail(t *testing.T) {
	handler, _, _ := newTestAuthHandler(t)

	body := jsonBody(t, map[string]string{
		"email":    "nobody@school.edu",
		"password": "whatever1",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", body)
	recorder := httptest.NewRecorder()

	handler.Login(recorder, req)

	// Unknown email and wrong password are indistinguishable
	assertStatusCode(t, recorder, http.StatusUnauthorized)
}

func TestAuthHandler_Login_InvalidBody(t *testing.T) {
	handler, _, _ := newTestAuthHandler(t)

	req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	recorder := httptest.NewRecorder()

	handler.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestAuthHandler_Status_Authenticated(t *testing.T) {
	handler, _, sm := newTestAuthHandler(t)

	session, err := sm.CreateSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
	recorder := httptest.NewRecorder()
	sm.SetSessionCookie(recorder, session)
	for _, c := range recorder.Result().Cookies() {
		req.AddCookie(c)
	}

	recorder = httptest.NewRecorder()
	handler.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp StatusResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Authenticated || resp.UserID != "user-1" {
		t.Errorf("expected authenticated status for user-1, got %+v", resp)
	}
}

func TestAuthHandler_Status_NoSession(t *testing.T) {
	handler, _, _ := newTestAuthHandler(t)

	req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
	recorder := httptest.NewRecorder()

	handler.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp StatusResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Authenticated {
		t.Errorf("expected unauthenticated status, got %+v", resp)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	handler, _, sm := newTestAuthHandler(t)

	session, err := sm.CreateSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	setup := httptest.NewRecorder()
	sm.SetSessionCookie(setup, session)
	for _, c := range setup.Result().Cookies() {
		req.AddCookie(c)
	}

	recorder := httptest.NewRecorder()
	handler.Logout(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if sm.GetSession(session.ID) != nil {
		t.Error("expected session to be deleted after logout")
	}
}
