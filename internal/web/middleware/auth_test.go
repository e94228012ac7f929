package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSessionManager(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	if sm == nil {
		t.Fatal("NewSessionManager returned nil")
		return
	}
	if sm.sessions == nil {
		t.Error("sessions map is nil")
	}
}

func TestSessionManager_CreateSession(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)

	session, err := sm.CreateSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if session.ID == "" {
		t.Error("session ID is empty")
	}
	if session.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", session.UserID)
	}
	if session.ExpiresAt.Before(time.Now()) {
		t.Error("session expires in the past")
	}
}

func TestSessionManager_GetSession(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)

	session, _ := sm.CreateSession(context.Background(), "user-1")

	// Get existing session.
	retrieved := sm.GetSession(session.ID)
	if retrieved == nil {
		t.Fatal("GetSession() returned nil for existing session")
		return
	}
	if retrieved.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", retrieved.UserID)
	}

	// Get non-existing session.
	notFound := sm.GetSession("nonexistent-id")
	if notFound != nil {
		t.Error("GetSession() should return nil for non-existing session")
	}
}

func TestSessionManager_DeleteSession(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)

	session, _ := sm.CreateSession(context.Background(), "user-1")

	// Delete the session.
	sm.DeleteSession(session.ID)

	// Verify it's gone.
	retrieved := sm.GetSession(session.ID)
	if retrieved != nil {
		t.Error("GetSession() should return nil after deletion")
	}
}

func TestSessionManager_SetAndGetSessionCookie(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)

	session, _ := sm.CreateSession(context.Background(), "user-1")

	recorder := httptest.NewRecorder()
	sm.SetSessionCookie(recorder, session)

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].Name != sessionCookieName {
		t.Errorf("cookie name = %s, want %s", cookies[0].Name, sessionCookieName)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])

	retrieved := sm.GetSessionFromRequest(req)
	if retrieved == nil {
		t.Fatal("GetSessionFromRequest() returned nil for a valid cookie")
		return
	}
	if retrieved.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", retrieved.UserID)
	}
}

func TestSessionManager_InvalidCookie(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)

	session, _ := sm.CreateSession(context.Background(), "user-1")

	// Tampered signature must not validate.
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  sessionCookieName,
		Value: session.ID + ".forged-signature",
	})

	if sm.GetSessionFromRequest(req) != nil {
		t.Error("GetSessionFromRequest() should reject a forged signature")
	}
}

func TestSessionManager_DifferentSecretRejects(t *testing.T) {
	sm1 := NewSessionManager("secret-one", nil)
	sm2 := NewSessionManager("secret-two", nil)

	session, _ := sm1.CreateSession(context.Background(), "user-1")

	recorder := httptest.NewRecorder()
	sm1.SetSessionCookie(recorder, session)

	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range recorder.Result().Cookies() {
		req.AddCookie(c)
	}

	if sm2.GetSessionFromRequest(req) != nil {
		t.Error("a cookie signed with another secret must not validate")
	}
}

func TestSessionManager_BearerAuth(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)

	session, _ := sm.CreateSession(context.Background(), "user-1")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)

	retrieved := sm.GetSessionFromRequest(req)
	if retrieved == nil || retrieved.UserID != "user-1" {
		t.Error("GetSessionFromRequest() should accept a bearer session ID")
	}
}

func TestRequireAuth(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)

	var sawSession *Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSession = GetSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := RequireAuth(sm)(next)

	// Without a session the request is rejected.
	req := httptest.NewRequest("GET", "/api/v1/students", nil)
	recorder := httptest.NewRecorder()
	protected.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", recorder.Code)
	}

	// With a valid session the handler runs and sees the session.
	session, _ := sm.CreateSession(context.Background(), "user-1")
	setup := httptest.NewRecorder()
	sm.SetSessionCookie(setup, session)

	req = httptest.NewRequest("GET", "/api/v1/students", nil)
	for _, c := range setup.Result().Cookies() {
		req.AddCookie(c)
	}
	recorder = httptest.NewRecorder()
	protected.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200 with session, got %d", recorder.Code)
	}
	if sawSession == nil || sawSession.UserID != "user-1" {
		t.Errorf("expected session in context, got %+v", sawSession)
	}
}

func TestGetSessionFromContext(t *testing.T) {
	session := &Session{ID: "s1", UserID: "user-1"}
	ctx := SetSessionInContext(context.Background(), session)

	got := GetSessionFromContext(ctx)
	if got == nil || got.ID != "s1" {
		t.Errorf("expected session s1, got %+v", got)
	}

	if GetSessionFromContext(context.Background()) != nil {
		t.Error("expected nil for a context without session")
	}
}

func TestSessionManager_ClearSessionCookie(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)

	recorder := httptest.NewRecorder()
	sm.ClearSessionCookie(recorder)

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("expected MaxAge -1, got %d", cookies[0].MaxAge)
	}
}
