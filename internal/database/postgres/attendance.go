package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/smartclass/attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// SaveBatch writes all records of one session save in a single transaction.
// Either every enrolled student gets a row or nothing is written.
func (r *AttendanceRepository) SaveBatch(ctx context.Context, records []database.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance (student_id, student_name, subject_id, teacher_id, batch_id, status, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("prepare attendance insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		_, err := stmt.ExecContext(ctx,
			rec.StudentID, rec.StudentName, rec.SubjectID, rec.TeacherID, rec.BatchID, rec.Status, rec.RecordedAt)
		if err != nil {
			return fmt.Errorf("insert attendance row for student %s: %w", rec.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance batch: %w", err)
	}
	return nil
}

// ListBySubject returns report rows for a subject, newest batch first.
// The student join is LEFT so rows of since-deleted students survive; the
// name comes from the row itself. Zero time bounds mean unbounded.
func (r *AttendanceRepository) ListBySubject(ctx context.Context, teacherID, subjectID string, from, to time.Time) ([]database.AttendanceEntry, error) {
	query := `
		SELECT a.student_id, a.student_name, COALESCE(s.roll_number, ''), a.batch_id, a.status, a.recorded_at
		FROM attendance a
		LEFT JOIN students s ON s.id = a.student_id
		WHERE a.teacher_id = $1 AND a.subject_id = $2
	`
	args := []any{teacherID, subjectID}

	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND a.recorded_at >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND a.recorded_at <= $%d", len(args))
	}
	query += " ORDER BY a.recorded_at DESC, a.student_name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var entries []database.AttendanceEntry
	for rows.Next() {
		var e database.AttendanceEntry
		if err := rows.Scan(&e.StudentID, &e.StudentName, &e.RollNumber, &e.BatchID, &e.Status, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan attendance entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance entries: %w", err)
	}
	return entries, nil
}

// Stats returns per-teacher summary numbers for the dashboard.
func (r *AttendanceRepository) Stats(ctx context.Context, teacherID string) (*database.TeacherStats, error) {
	stats := &database.TeacherStats{}

	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM students WHERE teacher_id = $1", teacherID).Scan(&stats.Students)
	if err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM subjects WHERE teacher_id = $1", teacherID).Scan(&stats.Subjects)
	if err != nil {
		return nil, fmt.Errorf("count subjects: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT batch_id),
		       COUNT(*) FILTER (WHERE status = 'present'),
		       COUNT(*)
		FROM attendance
		WHERE teacher_id = $1
	`, teacherID).Scan(&stats.SessionsSaved, &stats.PresentRows, &stats.TotalRows)
	if err != nil {
		return nil, fmt.Errorf("attendance stats: %w", err)
	}

	return stats, nil
}
