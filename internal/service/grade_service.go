package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type gradeLedger interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error
	FindGrade(ctx context.Context, key models.GradeKey) (*models.Grade, error)
	ListGrades(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, error)
	DeleteGrade(ctx context.Context, key models.GradeKey) error
}

// GradeService records component scores and keeps total and letter derived from them.
type GradeService struct {
	ledger    gradeLedger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewGradeService constructs GradeService.
func NewGradeService(ledger gradeLedger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{ledger: ledger, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// SaveOrUpdate merges the supplied components into the grade row and recomputes derived fields.
// The student must hold an ACTIVE enrollment in a course of the requested term.
func (s *GradeService) SaveOrUpdate(ctx context.Context, actor models.Actor, req models.SaveGradeRequest) (*models.Grade, error) {
	start := time.Now()
	grade, err := s.save(ctx, req)
	s.metrics.RecordGradeWrite(outcome(err), time.Since(start))
	if err != nil {
		s.logger.Debug("grade write rejected",
			zap.String("actor_id", actor.UserID),
			zap.String("student_id", req.StudentID),
			zap.String("course_id", req.CourseID),
			zap.String("term", req.Term),
			zap.String("code", appErrors.Code(err)),
		)
		return nil, err
	}

	fields := []zap.Field{
		zap.String("actor_id", actor.UserID),
		zap.String("student_id", grade.StudentID),
		zap.String("course_id", grade.CourseID),
		zap.String("term", grade.Semester),
	}
	if grade.TotalScore != nil {
		fields = append(fields, zap.Float64("total", *grade.TotalScore), zap.String("letter", string(*grade.LetterGrade)))
	}
	s.logger.Info("grade saved", fields...)
	return grade, nil
}

func (s *GradeService) save(ctx context.Context, req models.SaveGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidKey.Code, appErrors.ErrInvalidKey.Status, "student_id, course_id and term are required")
	}
	for name, score := range map[string]*float64{
		"continuous_score": req.ContinuousScore,
		"midterm_score":    req.MidtermScore,
		"final_score":      req.FinalScore,
	} {
		if !validScore(score) {
			return nil, appErrors.Clone(appErrors.ErrOutOfRange, fmt.Sprintf("%s must be between 0 and 100", name))
		}
	}

	var saved *models.Grade
	err := s.ledger.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		// the enrollment row lock orders this write against a concurrent drop
		enrollment, err := tx.GetEnrollment(ctx, req.StudentID, req.CourseID, true)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if enrollment == nil || enrollment.Status != models.EnrollmentStatusActive {
			return appErrors.Clone(appErrors.ErrNotEnrolled, "student has no active enrollment in this course")
		}

		course, err := tx.GetCourse(ctx, req.CourseID, false)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		if course.Semester != req.Term {
			return appErrors.Clone(appErrors.ErrNotEnrolled, fmt.Sprintf("course %s is not offered in term %s", course.Code, req.Term))
		}

		grade, err := tx.GetGrade(ctx, req.Key(), true)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
		}
		now := s.now().UTC()
		if grade == nil {
			grade = &models.Grade{
				StudentID: req.StudentID,
				CourseID:  req.CourseID,
				Semester:  req.Term,
				CreatedAt: now,
			}
		}
		mergeComponents(grade, req)
		deriveGrade(grade)
		grade.UpdatedAt = now

		if err := tx.UpsertGrade(ctx, grade); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
		}
		saved = grade
		return nil
	})
	if err != nil {
		return nil, internalError(err, "failed to save grade")
	}
	return saved, nil
}

// BatchSave saves each item independently and reports per-item failures.
func (s *GradeService) BatchSave(ctx context.Context, actor models.Actor, items []models.SaveGradeRequest) (*models.BatchSaveResult, error) {
	if len(items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one grade is required")
	}
	result := &models.BatchSaveResult{Failures: []models.BatchSaveFailure{}}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "batch save interrupted")
		}
		if _, err := s.SaveOrUpdate(ctx, actor, item); err != nil {
			appErr := appErrors.FromError(err)
			result.Failures = append(result.Failures, models.BatchSaveFailure{
				Index:     i,
				StudentID: item.StudentID,
				CourseID:  item.CourseID,
				Code:      appErr.Code,
				Reason:    appErr.Message,
			})
			s.logger.Warn("batch grade item failed",
				zap.Int("index", i),
				zap.String("student_id", item.StudentID),
				zap.String("course_id", item.CourseID),
				zap.String("code", appErr.Code),
				zap.Error(err),
			)
			continue
		}
		result.SuccessCount++
	}
	s.logger.Info("grade batch saved",
		zap.String("actor_id", actor.UserID),
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

// Get returns the grade row for the key.
func (s *GradeService) Get(ctx context.Context, key models.GradeKey) (*models.Grade, error) {
	if err := s.validator.Struct(key); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidKey.Code, appErrors.ErrInvalidKey.Status, "studentId, courseId and term are required")
	}
	grade, err := s.ledger.FindGrade(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// Transcript lists a student's grades for a term with the mean of derived totals.
func (s *GradeService) Transcript(ctx context.Context, studentID, term string) (*models.Transcript, error) {
	if studentID == "" || term == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidKey, "student id and term are required")
	}
	grades, err := s.ledger.ListGrades(ctx, models.GradeFilter{StudentID: studentID, Semester: term})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	mean, graded := meanTotal(grades)
	return &models.Transcript{
		StudentID:   studentID,
		Semester:    term,
		Grades:      grades,
		GradedCount: graded,
		MeanScore:   mean,
	}, nil
}

// Delete removes a grade row. It does not touch the enrollment.
func (s *GradeService) Delete(ctx context.Context, actor models.Actor, key models.GradeKey) error {
	if err := s.validator.Struct(key); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidKey.Code, appErrors.ErrInvalidKey.Status, "studentId, courseId and term are required")
	}
	if err := s.ledger.DeleteGrade(ctx, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	s.logger.Info("grade deleted",
		zap.String("actor_id", actor.UserID),
		zap.String("student_id", key.StudentID),
		zap.String("course_id", key.CourseID),
		zap.String("term", key.Semester),
	)
	return nil
}

func mergeComponents(grade *models.Grade, req models.SaveGradeRequest) {
	if req.ContinuousScore != nil {
		grade.ContinuousScore = floatPtr(*req.ContinuousScore)
	}
	if req.MidtermScore != nil {
		grade.MidtermScore = floatPtr(*req.MidtermScore)
	}
	if req.FinalScore != nil {
		grade.FinalScore = floatPtr(*req.FinalScore)
	}
}
