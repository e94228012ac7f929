package database

import (
	"time"
)

// Attendance statuses. One row per enrolled student per session save.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// User is a teacher account. All roster and attendance data is scoped to
// the owning teacher.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Student is an enrolled student with one or more face descriptors.
type Student struct {
	ID          string
	TeacherID   string
	Name        string
	RollNumber  string
	Email       string
	CreatedAt   time.Time
	Descriptors []StoredDescriptor
}

// StoredDescriptor is a face descriptor captured at registration time.
// Descriptors are appended in capture order and never recomputed.
type StoredDescriptor struct {
	ID        int64
	StudentID string
	Position  int // capture order within the student, 0-based
	Embedding []float32
	Dim       int
	CreatedAt time.Time
}

// Subject is a class subject owned by a teacher. Subjects are created on
// demand and have no deletion path.
type Subject struct {
	ID        string
	TeacherID string
	Name      string
	CreatedAt time.Time
}

// AttendanceRecord is one student's status for one saved session. All rows
// written by the same save share a batch ID and timestamp.
type AttendanceRecord struct {
	ID          int64
	StudentID   string
	StudentName string
	SubjectID   string
	TeacherID   string
	BatchID     string
	Status      string
	RecordedAt  time.Time
}

// AttendanceEntry is a report row joined with student identity.
type AttendanceEntry struct {
	StudentID   string
	StudentName string
	RollNumber  string
	BatchID     string
	Status      string
	RecordedAt  time.Time
}

// TeacherStats summarizes a teacher's data for the dashboard.
type TeacherStats struct {
	Students      int
	Subjects      int
	SessionsSaved int
	PresentRows   int
	TotalRows     int
}
