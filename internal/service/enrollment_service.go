package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type enrollmentLedger interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error
	FindCourse(ctx context.Context, id string) (*models.Course, error)
	FindEnrollment(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
}

type catalogInvalidator interface {
	InvalidateSemester(ctx context.Context, semester string)
}

// EnrollmentService runs the select/drop state machine while keeping seats_taken within [0, max_seats].
type EnrollmentService struct {
	ledger    enrollmentLedger
	catalog   catalogInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService. catalog and metrics may be nil.
func NewEnrollmentService(ledger enrollmentLedger, catalog catalogInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{ledger: ledger, catalog: catalog, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// Select enrolls the student, reusing a dropped row when one exists.
func (s *EnrollmentService) Select(ctx context.Context, actor models.Actor, studentID, courseID string) (*models.Enrollment, error) {
	start := time.Now()
	enrollment, course, err := s.selectCourse(ctx, studentID, courseID)
	s.metrics.RecordEnrollment("select", outcome(err), time.Since(start))
	if err != nil {
		s.logger.Debug("course selection rejected",
			zap.String("actor_id", actor.UserID),
			zap.String("student_id", studentID),
			zap.String("course_id", courseID),
			zap.String("code", appErrors.Code(err)),
		)
		return nil, err
	}

	s.invalidate(ctx, course.Semester)
	s.logger.Info("course selected",
		zap.String("actor_id", actor.UserID),
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.Int("seats_taken", course.SeatsTaken+1),
		zap.Int("max_seats", course.MaxSeats),
	)
	return enrollment, nil
}

func (s *EnrollmentService) selectCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, *models.Course, error) {
	if err := s.validateKeys(studentID, courseID); err != nil {
		return nil, nil, err
	}

	var (
		result *models.Enrollment
		course *models.Course
	)
	err := s.ledger.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		c, err := lockCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if c.Status != models.CourseStatusOpen {
			return appErrors.Clone(appErrors.ErrCourseClosed, fmt.Sprintf("course %s is closed", c.Code))
		}

		existing, err := tx.GetEnrollment(ctx, studentID, courseID, true)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if existing != nil && existing.Status == models.EnrollmentStatusActive {
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("student already enrolled in %s", c.Code))
		}

		ok, err := tx.TryIncrementSeats(ctx, courseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrCapacityExceeded, fmt.Sprintf("course %s has no free seats", c.Code))
		}

		now := s.now().UTC()
		if existing != nil {
			if err := tx.SetEnrollmentStatus(ctx, existing.ID, models.EnrollmentStatusActive, now); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate enrollment")
			}
			existing.Status = models.EnrollmentStatusActive
			existing.StatusChangedAt = now
			result = existing
		} else {
			enrollment := &models.Enrollment{
				StudentID:       studentID,
				CourseID:        courseID,
				Status:          models.EnrollmentStatusActive,
				StatusChangedAt: now,
				CreatedAt:       now,
			}
			if err := tx.InsertEnrollment(ctx, enrollment); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
			}
			result = enrollment
		}
		course = c
		return nil
	})
	if err != nil {
		return nil, nil, internalError(err, "failed to select course")
	}
	return result, course, nil
}

// Drop releases the student's seat. The row is kept with status DROPPED.
func (s *EnrollmentService) Drop(ctx context.Context, actor models.Actor, studentID, courseID string) (*models.Enrollment, error) {
	start := time.Now()
	var (
		result *models.Enrollment
		course *models.Course
	)
	err := s.validateKeys(studentID, courseID)
	if err == nil {
		err = s.ledger.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
			c, err := lockCourse(ctx, tx, courseID)
			if err != nil {
				return err
			}
			enrollment, err := s.dropLocked(ctx, tx, c, studentID)
			if err != nil {
				return err
			}
			result, course = enrollment, c
			return nil
		})
		if err != nil {
			err = internalError(err, "failed to drop course")
		}
	}
	s.metrics.RecordEnrollment("drop", outcome(err), time.Since(start))
	if err != nil {
		s.logger.Debug("course drop rejected",
			zap.String("actor_id", actor.UserID),
			zap.String("student_id", studentID),
			zap.String("course_id", courseID),
			zap.String("code", appErrors.Code(err)),
		)
		return nil, err
	}

	s.invalidate(ctx, course.Semester)
	s.logger.Info("course dropped",
		zap.String("actor_id", actor.UserID),
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
	)
	return result, nil
}

// dropLocked flips an ACTIVE enrollment to DROPPED and releases its seat. The course row must
// already be locked by the caller.
func (s *EnrollmentService) dropLocked(ctx context.Context, tx repository.LedgerTx, course *models.Course, studentID string) (*models.Enrollment, error) {
	enrollment, err := tx.GetEnrollment(ctx, studentID, course.ID, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotEnrolled, fmt.Sprintf("student is not enrolled in %s", course.Code))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, fmt.Sprintf("student is not enrolled in %s", course.Code))
	}

	now := s.now().UTC()
	if err := tx.SetEnrollmentStatus(ctx, enrollment.ID, models.EnrollmentStatusDropped, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	released, err := tx.DecrementSeats(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release seat")
	}
	if !released {
		s.logger.Warn("seat counter already at zero on drop",
			zap.String("course_id", course.ID),
			zap.String("student_id", studentID),
		)
	}
	enrollment.Status = models.EnrollmentStatusDropped
	enrollment.StatusChangedAt = now
	return enrollment, nil
}

// DropAllForTerm drops every active enrollment the student holds in the semester and returns the count.
func (s *EnrollmentService) DropAllForTerm(ctx context.Context, actor models.Actor, studentID, semester string) (*models.DropTermResult, error) {
	if studentID == "" || semester == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidKey, "student id and semester are required")
	}

	dropped := 0
	err := s.ledger.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		active, err := tx.ListEnrollments(ctx, models.EnrollmentFilter{
			StudentID: studentID,
			Semester:  semester,
			Status:    models.EnrollmentStatusActive,
		})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
		}
		// course rows are locked in id order, the same order any other multi-course writer uses
		sort.Slice(active, func(i, j int) bool { return active[i].CourseID < active[j].CourseID })

		for _, e := range active {
			course, err := lockCourse(ctx, tx, e.CourseID)
			if err != nil {
				return err
			}
			if _, err := s.dropLocked(ctx, tx, course, studentID); err != nil {
				if errors.Is(err, appErrors.ErrNotEnrolled) {
					continue
				}
				return err
			}
			dropped++
		}
		return nil
	})
	s.metrics.RecordEnrollment("drop_term", outcome(err), 0)
	if err != nil {
		return nil, internalError(err, "failed to drop term enrollments")
	}

	if dropped > 0 {
		s.invalidate(ctx, semester)
	}
	s.logger.Info("term enrollments dropped",
		zap.String("actor_id", actor.UserID),
		zap.String("student_id", studentID),
		zap.String("semester", semester),
		zap.Int("dropped", dropped),
	)
	return &models.DropTermResult{StudentID: studentID, Semester: semester, Dropped: dropped}, nil
}

// CanSelect reports whether a selection would currently pass the closed, duplicate and capacity checks.
// The answer is advisory; Select re-checks under lock.
func (s *EnrollmentService) CanSelect(ctx context.Context, studentID, courseID string) (bool, error) {
	if err := s.validateKeys(studentID, courseID); err != nil {
		return false, err
	}
	course, err := s.ledger.FindCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Available() {
		return false, nil
	}
	enrollment, err := s.ledger.FindEnrollment(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment.Status != models.EnrollmentStatusActive, nil
}

// ListStudentEnrollments returns the student's enrollments, optionally by semester and status.
func (s *EnrollmentService) ListStudentEnrollments(ctx context.Context, studentID, semester string, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidKey, "student id is required")
	}
	if status != "" && !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be ACTIVE or DROPPED")
	}
	enrollments, err := s.ledger.ListEnrollments(ctx, models.EnrollmentFilter{StudentID: studentID, Semester: semester, Status: status})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// ListCourseEnrollments returns the roster of a course.
func (s *EnrollmentService) ListCourseEnrollments(ctx context.Context, courseID string, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidKey, "course id is required")
	}
	if status != "" && !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be ACTIVE or DROPPED")
	}
	if _, err := s.ledger.FindCourse(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	enrollments, err := s.ledger.ListEnrollments(ctx, models.EnrollmentFilter{CourseID: courseID, Status: status})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

func (s *EnrollmentService) validateKeys(studentID, courseID string) error {
	req := models.EnrollmentRequest{StudentID: studentID, CourseID: courseID}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidKey.Code, appErrors.ErrInvalidKey.Status, "student_id and course_id are required")
	}
	return nil
}

func (s *EnrollmentService) invalidate(ctx context.Context, semester string) {
	if s.catalog != nil {
		s.catalog.InvalidateSemester(ctx, semester)
	}
}

func lockCourse(ctx context.Context, tx repository.LedgerTx, courseID string) (*models.Course, error) {
	course, err := tx.GetCourse(ctx, courseID, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock course")
	}
	return course, nil
}
