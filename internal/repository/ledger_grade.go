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

const gradeColumns = `id, student_id, course_id, semester, continuous_score, midterm_score, final_score, total_score, letter_grade, created_at, updated_at`

func getGrade(ctx context.Context, q sqlx.QueryerContext, key models.GradeKey, forUpdate bool) (*models.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE student_id = $1 AND course_id = $2 AND semester = $3` + lockClause(forUpdate)
	var grade models.Grade
	if err := sqlx.GetContext(ctx, q, &grade, query, key.StudentID, key.CourseID, key.Semester); err != nil {
		return nil, err
	}
	return &grade, nil
}

func listGrades(ctx context.Context, q sqlx.QueryerContext, filter models.GradeFilter) ([]models.GradeDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("g.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("g.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("g.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.ScoredOnly {
		conditions = append(conditions, "g.total_score IS NOT NULL")
	}

	query := `SELECT g.id, g.student_id, g.course_id, g.semester, g.continuous_score, g.midterm_score, g.final_score,
        g.total_score, g.letter_grade, g.created_at, g.updated_at,
        c.code AS course_code, c.name AS course_name, c.credits
        FROM grades g
        JOIN courses c ON c.id = g.course_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY g.student_id ASC, c.code ASC"

	grades := make([]models.GradeDetail, 0)
	if err := sqlx.SelectContext(ctx, q, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// upsertGrade writes the row keyed by (student, course, semester) and refreshes ID and CreatedAt
// from the stored row.
func upsertGrade(ctx context.Context, q sqlx.QueryerContext, grade *models.Grade) error {
	now := time.Now().UTC()
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now

	const query = `INSERT INTO grades (id, student_id, course_id, semester, continuous_score, midterm_score, final_score,
        total_score, letter_grade, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (student_id, course_id, semester)
        DO UPDATE SET continuous_score = EXCLUDED.continuous_score, midterm_score = EXCLUDED.midterm_score,
            final_score = EXCLUDED.final_score, total_score = EXCLUDED.total_score,
            letter_grade = EXCLUDED.letter_grade, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`
	row := q.QueryRowxContext(ctx, query,
		grade.ID, grade.StudentID, grade.CourseID, grade.Semester,
		grade.ContinuousScore, grade.MidtermScore, grade.FinalScore,
		grade.TotalScore, grade.LetterGrade, grade.CreatedAt, grade.UpdatedAt,
	)
	if err := row.Scan(&grade.ID, &grade.CreatedAt); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

func deleteGrade(ctx context.Context, e sqlx.ExecerContext, key models.GradeKey) error {
	const query = `DELETE FROM grades WHERE student_id = $1 AND course_id = $2 AND semester = $3`
	res, err := e.ExecContext(ctx, query, key.StudentID, key.CourseID, key.Semester)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return requireOneRow(res, "delete grade")
}
