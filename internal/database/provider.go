package database

import (
	"context"
	"time"
)

// StudentStore provides access to enrolled students and their descriptors.
// Implementations must return students and descriptors in stored
// (insertion) order; the matcher's first-match policy depends on it.
type StudentStore interface {
	// Create stores a student together with their descriptors.
	Create(ctx context.Context, student *Student) error
	// List returns all students of a teacher, descriptors included,
	// in enrollment order.
	List(ctx context.Context, teacherID string) ([]Student, error)
	// Get returns one student with descriptors, or nil if not found.
	Get(ctx context.Context, teacherID, studentID string) (*Student, error)
	// Delete removes a student and their descriptors.
	Delete(ctx context.Context, teacherID, studentID string) error
	// Count returns the number of students enrolled by a teacher.
	Count(ctx context.Context, teacherID string) (int, error)
}

// SubjectStore provides access to a teacher's subjects.
type SubjectStore interface {
	Create(ctx context.Context, subject *Subject) error
	List(ctx context.Context, teacherID string) ([]Subject, error)
	Get(ctx context.Context, teacherID, subjectID string) (*Subject, error)
}

// AttendanceStore persists attendance batches and serves reports.
type AttendanceStore interface {
	// SaveBatch writes all records of one session save atomically.
	SaveBatch(ctx context.Context, records []AttendanceRecord) error
	// ListBySubject returns report rows for a subject, newest batch first.
	// The from/to bounds are optional; zero values mean unbounded.
	ListBySubject(ctx context.Context, teacherID, subjectID string, from, to time.Time) ([]AttendanceEntry, error)
	// Stats returns per-teacher summary numbers.
	Stats(ctx context.Context, teacherID string) (*TeacherStats, error)
}

// UserStore provides teacher account lookup and creation.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
