package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type statisticsReader interface {
	FindCourse(ctx context.Context, id string) (*models.Course, error)
	ListGrades(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, error)
}

// StatisticsService derives cohort figures from committed grade rows. It never writes.
type StatisticsService struct {
	reader statisticsReader
	logger *zap.Logger
}

// NewStatisticsService constructs StatisticsService.
func NewStatisticsService(reader statisticsReader, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{reader: reader, logger: logger}
}

// CourseStatistics summarises the graded rows of a course in a term.
func (s *StatisticsService) CourseStatistics(ctx context.Context, courseID, term string) (*models.CourseStatistics, error) {
	if courseID == "" || term == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidKey, "course id and term are required")
	}
	if _, err := s.reader.FindCourse(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	grades, err := s.reader.ListGrades(ctx, models.GradeFilter{CourseID: courseID, Semester: term, ScoredOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	stats := summarizeCourse(courseID, term, grades)
	return &stats, nil
}

// StudentRank places the student within the term cohort.
func (s *StatisticsService) StudentRank(ctx context.Context, studentID, term string) (*models.StudentRank, error) {
	if studentID == "" || term == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidKey, "student id and term are required")
	}
	ranking, err := s.TermRanking(ctx, term)
	if err != nil {
		return nil, err
	}
	for _, entry := range ranking.Entries {
		if entry.StudentID == studentID {
			rank := entry
			return &rank, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no graded courses in this term")
}

// TermRanking returns the whole cohort of a term in rank order.
func (s *StatisticsService) TermRanking(ctx context.Context, term string) (*models.TermRanking, error) {
	if term == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidKey, "term is required")
	}
	grades, err := s.reader.ListGrades(ctx, models.GradeFilter{Semester: term, ScoredOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return &models.TermRanking{Semester: term, Entries: rankCohort(term, grades)}, nil
}
