package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/smartclass/attendance/internal/database"
)

// StudentRepository provides PostgreSQL-backed student storage with
// pgvector descriptor columns.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Create stores a student and their descriptors in one transaction.
func (r *StudentRepository) Create(ctx context.Context, student *database.Student) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO students (id, teacher_id, name, roll_number, email)
		VALUES ($1, $2, $3, $4, $5)
	`, student.ID, student.TeacherID, student.Name, student.RollNumber, student.Email)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}

	for i := range student.Descriptors {
		d := &student.Descriptors[i]
		err := tx.QueryRowContext(ctx, `
			INSERT INTO student_descriptors (student_id, position, embedding, dim)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, student.ID, d.Position, pgvector.NewVector(d.Embedding), len(d.Embedding)).Scan(&d.ID)
		if err != nil {
			return fmt.Errorf("insert descriptor %d: %w", d.Position, err)
		}
		d.StudentID = student.ID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student insert: %w", err)
	}
	return nil
}

// List returns all students of a teacher in enrollment order, descriptors
// included. The matcher relies on this ordering.
func (r *StudentRepository) List(ctx context.Context, teacherID string) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, teacher_id, name, roll_number, email, created_at
		FROM students
		WHERE teacher_id = $1
		ORDER BY seq
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	index := make(map[string]int)
	for rows.Next() {
		var s database.Student
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.Name, &s.RollNumber, &s.Email, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		index[s.ID] = len(students)
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	if len(students) == 0 {
		return students, nil
	}

	descriptors, err := r.descriptorsForTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	for _, d := range descriptors {
		if i, ok := index[d.StudentID]; ok {
			students[i].Descriptors = append(students[i].Descriptors, d)
		}
	}
	return students, nil
}

// ListAll returns every student of every teacher with descriptors attached.
// Used once at startup to build the duplicate-enrollment index.
func (r *StudentRepository) ListAll(ctx context.Context) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, teacher_id, name, roll_number, email, created_at
		FROM students
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	index := make(map[string]int)
	for rows.Next() {
		var s database.Student
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.Name, &s.RollNumber, &s.Email, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		index[s.ID] = len(students)
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	if len(students) == 0 {
		return students, nil
	}

	descRows, err := r.pool.Query(ctx, `
		SELECT id, student_id, position, embedding, dim, created_at
		FROM student_descriptors
		ORDER BY student_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer descRows.Close()

	descriptors, err := scanDescriptors(descRows)
	if err != nil {
		return nil, err
	}
	for _, d := range descriptors {
		if i, ok := index[d.StudentID]; ok {
			students[i].Descriptors = append(students[i].Descriptors, d)
		}
	}
	return students, nil
}

// descriptorsForTeacher loads all descriptors of a teacher's students in
// stored order, avoiding one query per student.
func (r *StudentRepository) descriptorsForTeacher(ctx context.Context, teacherID string) ([]database.StoredDescriptor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.student_id, d.position, d.embedding, d.dim, d.created_at
		FROM student_descriptors d
		JOIN students s ON s.id = d.student_id
		WHERE s.teacher_id = $1
		ORDER BY d.student_id, d.position
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	return scanDescriptors(rows)
}

// Get returns one student with descriptors, or nil if not found.
func (r *StudentRepository) Get(ctx context.Context, teacherID, studentID string) (*database.Student, error) {
	var s database.Student
	err := r.pool.QueryRow(ctx, `
		SELECT id, teacher_id, name, roll_number, email, created_at
		FROM students
		WHERE teacher_id = $1 AND id = $2
	`, teacherID, studentID).Scan(&s.ID, &s.TeacherID, &s.Name, &s.RollNumber, &s.Email, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, position, embedding, dim, created_at
		FROM student_descriptors
		WHERE student_id = $1
		ORDER BY position
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	s.Descriptors, err = scanDescriptors(rows)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes a student; descriptors cascade. Past attendance rows
// stay untouched.
func (r *StudentRepository) Delete(ctx context.Context, teacherID, studentID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM students WHERE teacher_id = $1 AND id = $2
	`, teacherID, studentID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// Count returns the number of students enrolled by a teacher.
func (r *StudentRepository) Count(ctx context.Context, teacherID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students WHERE teacher_id = $1", teacherID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// scanDescriptors scans descriptor rows into StoredDescriptor values.
func scanDescriptors(rows *sql.Rows) ([]database.StoredDescriptor, error) {
	var out []database.StoredDescriptor
	for rows.Next() {
		var d database.StoredDescriptor
		var vec pgvector.Vector
		if err := rows.Scan(&d.ID, &d.StudentID, &d.Position, &vec, &d.Dim, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		d.Embedding = vec.Slice()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptors: %w", err)
	}
	return out, nil
}
