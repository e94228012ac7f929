// Package mock provides in-memory implementations of the database
// interfaces for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/smartclass/attendance/internal/database"
)

// StudentStore is a mock implementation of database.StudentStore.
type StudentStore struct {
	mu       sync.RWMutex
	students []database.Student
	nextID   int64

	// Error injection
	CreateError error
	ListError   error
	GetError    error
	DeleteError error
	CountError  error
}

// NewStudentStore creates a new mock student store.
func NewStudentStore() *StudentStore {
	return &StudentStore{nextID: 1}
}

// Create stores a student, assigning descriptor IDs the way the real
// repository's bigserial column would.
func (m *StudentStore) Create(ctx context.Context, student *database.Student) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range student.Descriptors {
		student.Descriptors[i].ID = m.nextID
		student.Descriptors[i].StudentID = student.ID
		m.nextID++
	}
	m.students = append(m.students, *student)
	return nil
}

// List returns a teacher's students in insertion order.
func (m *StudentStore) List(ctx context.Context, teacherID string) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.Student
	for _, s := range m.students {
		if s.TeacherID == teacherID {
			out = append(out, s)
		}
	}
	return out, nil
}

// Get returns one student or nil.
func (m *StudentStore) Get(ctx context.Context, teacherID, studentID string) (*database.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.students {
		if m.students[i].TeacherID == teacherID && m.students[i].ID == studentID {
			s := m.students[i]
			return &s, nil
		}
	}
	return nil, nil
}

// Delete removes a student.
func (m *StudentStore) Delete(ctx context.Context, teacherID, studentID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.students {
		if m.students[i].TeacherID == teacherID && m.students[i].ID == studentID {
			m.students = append(m.students[:i], m.students[i+1:]...)
			return nil
		}
	}
	return nil
}

// Count returns the number of a teacher's students.
func (m *StudentStore) Count(ctx context.Context, teacherID string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.students {
		if s.TeacherID == teacherID {
			count++
		}
	}
	return count, nil
}

// SubjectStore is a mock implementation of database.SubjectStore.
type SubjectStore struct {
	mu       sync.RWMutex
	subjects []database.Subject

	CreateError error
	ListError   error
	GetError    error
}

// NewSubjectStore creates a new mock subject store.
func NewSubjectStore() *SubjectStore {
	return &SubjectStore{}
}

// Create stores a subject.
func (m *SubjectStore) Create(ctx context.Context, subject *database.Subject) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, *subject)
	return nil
}

// List returns a teacher's subjects in insertion order.
func (m *SubjectStore) List(ctx context.Context, teacherID string) ([]database.Subject, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.Subject
	for _, s := range m.subjects {
		if s.TeacherID == teacherID {
			out = append(out, s)
		}
	}
	return out, nil
}

// Get returns one subject or nil.
func (m *SubjectStore) Get(ctx context.Context, teacherID, subjectID string) (*database.Subject, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.subjects {
		if m.subjects[i].TeacherID == teacherID && m.subjects[i].ID == subjectID {
			s := m.subjects[i]
			return &s, nil
		}
	}
	return nil, nil
}

// AttendanceStore is a mock implementation of database.AttendanceStore.
type AttendanceStore struct {
	mu      sync.RWMutex
	Records []database.AttendanceRecord
	Names   map[string]database.Student // student ID -> identity for report rows

	SaveError  error
	ListError  error
	StatsError error
}

// NewAttendanceStore creates a new mock attendance store.
func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{Names: make(map[string]database.Student)}
}

// SaveBatch appends all records of one save.
func (m *AttendanceStore) SaveBatch(ctx context.Context, records []database.AttendanceRecord) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, records...)
	return nil
}

// ListBySubject returns report rows for a subject.
func (m *AttendanceStore) ListBySubject(ctx context.Context, teacherID, subjectID string, from, to time.Time) ([]database.AttendanceEntry, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.AttendanceEntry
	for _, r := range m.Records {
		if r.TeacherID != teacherID || r.SubjectID != subjectID {
			continue
		}
		if !from.IsZero() && r.RecordedAt.Before(from) {
			continue
		}
		if !to.IsZero() && r.RecordedAt.After(to) {
			continue
		}
		entry := database.AttendanceEntry{
			StudentID:   r.StudentID,
			StudentName: r.StudentName,
			BatchID:     r.BatchID,
			Status:      r.Status,
			RecordedAt:  r.RecordedAt,
		}
		// The roll number lives on the student row and goes missing with it,
		// matching the report query's left join.
		if s, ok := m.Names[r.StudentID]; ok {
			entry.RollNumber = s.RollNumber
			if entry.StudentName == "" {
				entry.StudentName = s.Name
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// Stats computes summary numbers over the stored records.
func (m *AttendanceStore) Stats(ctx context.Context, teacherID string) (*database.TeacherStats, error) {
	if m.StatsError != nil {
		return nil, m.StatsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &database.TeacherStats{}
	batches := make(map[string]bool)
	for _, r := range m.Records {
		if r.TeacherID != teacherID {
			continue
		}
		stats.TotalRows++
		if r.Status == database.StatusPresent {
			stats.PresentRows++
		}
		batches[r.BatchID] = true
	}
	stats.SessionsSaved = len(batches)
	return stats, nil
}

// UserStore is a mock implementation of database.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*database.User // keyed by email

	CreateError error
	GetError    error
}

// NewUserStore creates a new mock user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*database.User)}
}

// Create stores a user.
func (m *UserStore) Create(ctx context.Context, user *database.User) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *user
	m.users[user.Email] = &u
	return nil
}

// GetByEmail returns a user by email, or nil.
func (m *UserStore) GetByEmail(ctx context.Context, email string) (*database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

// GetByID returns a user by ID, or nil.
func (m *UserStore) GetByID(ctx context.Context, id string) (*database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}
