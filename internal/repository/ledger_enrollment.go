package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

const enrollmentColumns = `id, student_id, course_id, status, status_changed_at, created_at`

func getEnrollment(ctx context.Context, q sqlx.QueryerContext, studentID, courseID string, forUpdate bool) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND course_id = $2` + lockClause(forUpdate)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, q, &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func listEnrollments(ctx context.Context, q sqlx.QueryerContext, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("c.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	query := `SELECT e.id, e.student_id, e.course_id, e.status, e.status_changed_at, e.created_at,
        c.code AS course_code, c.name AS course_name, c.semester, c.credits
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY c.code ASC, e.student_id ASC"

	enrollments := make([]models.EnrollmentDetail, 0)
	if err := sqlx.SelectContext(ctx, q, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

func insertEnrollment(ctx context.Context, e sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	if enrollment.StatusChangedAt.IsZero() {
		enrollment.StatusChangedAt = enrollment.CreatedAt
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, status, status_changed_at, created_at)
        VALUES (:id, :student_id, :course_id, :status, :status_changed_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, e, query, enrollment); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func setEnrollmentStatus(ctx context.Context, e sqlx.ExecerContext, id string, status models.EnrollmentStatus, at time.Time) error {
	const query = `UPDATE enrollments SET status = $2, status_changed_at = $3 WHERE id = $1`
	res, err := e.ExecContext(ctx, query, id, status, at)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return requireOneRow(res, "update enrollment status")
}
