package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smartclass/attendance/internal/database"
)

// SubjectRepository provides PostgreSQL-backed subject storage.
type SubjectRepository struct {
	pool *Pool
}

// NewSubjectRepository creates a new PostgreSQL subject repository.
func NewSubjectRepository(pool *Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

// Create stores a subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *database.Subject) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subjects (id, teacher_id, name)
		VALUES ($1, $2, $3)
	`, subject.ID, subject.TeacherID, subject.Name)
	if err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

// List returns a teacher's subjects in creation order.
func (r *SubjectRepository) List(ctx context.Context, teacherID string) ([]database.Subject, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, teacher_id, name, created_at
		FROM subjects
		WHERE teacher_id = $1
		ORDER BY created_at, id
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []database.Subject
	for rows.Next() {
		var s database.Subject
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.Name, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, nil
}

// Get returns one subject, or nil if not found.
func (r *SubjectRepository) Get(ctx context.Context, teacherID, subjectID string) (*database.Subject, error) {
	var s database.Subject
	err := r.pool.QueryRow(ctx, `
		SELECT id, teacher_id, name, created_at
		FROM subjects
		WHERE teacher_id = $1 AND id = $2
	`, teacherID, subjectID).Scan(&s.ID, &s.TeacherID, &s.Name, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return &s, nil
}
