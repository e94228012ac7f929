package recognizer

import (
	"errors"
	"sync"
	"time"
)

// State is a live session's position in its lifecycle.
type State string

const (
	// StateCapturing means the session is waiting for the next frame.
	StateCapturing State = "capturing"
	// StateRecognizing means a frame is being extracted and matched;
	// further captures are rejected until the attempt completes.
	StateRecognizing State = "recognizing"
	// StateClosed means the session was stopped, saved, or expired.
	StateClosed State = "closed"
)

var (
	// ErrCaptureInProgress is returned when a capture arrives while a
	// previous one is still being recognized.
	ErrCaptureInProgress = errors.New("a capture is already being recognized")
	// ErrSessionClosed is returned for operations on a finished session.
	ErrSessionClosed = errors.New("session is closed")
)

// RecognizedStudent is one entry of the session's recognized set.
type RecognizedStudent struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
}

// Session accumulates recognized students during one live-camera run.
// Nothing is persisted until save; a discarded session leaves no trace.
type Session struct {
	ID        string
	TeacherID string
	SubjectID string
	CreatedAt time.Time

	mu           sync.Mutex
	state        State
	lastActivity time.Time
	recognized   []RecognizedStudent
	recognizedBy map[string]bool
}

// NewSession creates a session in the capturing state.
func NewSession(id, teacherID, subjectID string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		TeacherID:    teacherID,
		SubjectID:    subjectID,
		CreatedAt:    now,
		state:        StateCapturing,
		lastActivity: now,
		recognizedBy: make(map[string]bool),
	}
}

// BeginCapture moves the session into recognizing. The caller must pair it
// with EndCapture once the match attempt completes, successful or not.
func (s *Session) BeginCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateRecognizing:
		return ErrCaptureInProgress
	}
	s.state = StateRecognizing
	s.lastActivity = time.Now()
	return nil
}

// EndCapture returns the session to capturing after a match attempt.
// A no-op once the session is closed (the attempt outlived the session;
// its result is discarded).
func (s *Session) EndCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRecognizing {
		s.state = StateCapturing
		s.lastActivity = time.Now()
	}
}

// AddRecognized records a matched student. Idempotent: re-adding a student
// already in the set reports false and changes nothing.
func (s *Session) AddRecognized(studentID, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed || s.recognizedBy[studentID] {
		return false
	}
	s.recognizedBy[studentID] = true
	s.recognized = append(s.recognized, RecognizedStudent{StudentID: studentID, Name: name})
	return true
}

// RecognizedSet returns a copy of the recognized IDs for the matcher.
func (s *Session) RecognizedSet() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]bool, len(s.recognizedBy))
	for id := range s.recognizedBy {
		set[id] = true
	}
	return set
}

// Recognized returns the recognized students in recognition order.
func (s *Session) Recognized() []RecognizedStudent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecognizedStudent, len(s.recognized))
	copy(out, s.recognized)
	return out
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close finishes the session. Further captures and additions are rejected.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// Reopen returns a closed session to capturing. A save closes the session
// before reading the roster; when the write fails the accumulated state
// must stay usable for another attempt.
func (s *Session) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		s.state = StateCapturing
		s.lastActivity = time.Now()
	}
}

// IdleSince reports the last time the session saw activity.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}
