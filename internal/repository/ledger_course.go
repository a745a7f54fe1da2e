package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

const courseColumns = `id, code, name, max_seats, seats_taken, status, semester, credits, created_at, updated_at`

func getCourse(ctx context.Context, q sqlx.QueryerContext, id string, forUpdate bool) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1` + lockClause(forUpdate)
	var course models.Course
	if err := sqlx.GetContext(ctx, q, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

func listCourses(ctx context.Context, q sqlx.QueryerContext, filter models.CourseFilter) ([]models.Course, error) {
	var conditions []string
	var args []interface{}

	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.OnlyAvailable {
		conditions = append(conditions, fmt.Sprintf("status = $%d AND seats_taken < max_seats", len(args)+1))
		args = append(args, models.CourseStatusOpen)
	}

	query := `SELECT ` + courseColumns + ` FROM courses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY code ASC"

	courses := make([]models.Course, 0)
	if err := sqlx.SelectContext(ctx, q, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func tryIncrementSeats(ctx context.Context, e sqlx.ExecerContext, courseID string) (bool, error) {
	const query = `UPDATE courses SET seats_taken = seats_taken + 1, updated_at = NOW()
        WHERE id = $1 AND status = $2 AND seats_taken < max_seats`
	res, err := e.ExecContext(ctx, query, courseID, models.CourseStatusOpen)
	if err != nil {
		return false, fmt.Errorf("increment seats: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment seats rows affected: %w", err)
	}
	return affected == 1, nil
}

func decrementSeats(ctx context.Context, e sqlx.ExecerContext, courseID string) (bool, error) {
	const query = `UPDATE courses SET seats_taken = seats_taken - 1, updated_at = NOW()
        WHERE id = $1 AND seats_taken > 0`
	res, err := e.ExecContext(ctx, query, courseID)
	if err != nil {
		return false, fmt.Errorf("decrement seats: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement seats rows affected: %w", err)
	}
	return affected == 1, nil
}
