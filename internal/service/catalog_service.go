package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

const catalogKeyPrefix = "course-ledger:catalog:available:"

type courseLister interface {
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string)
}

// CatalogService lists courses open for selection, optionally through the cache.
type CatalogService struct {
	courses courseLister
	cache   catalogCache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCatalogService constructs CatalogService. cache may be nil.
func NewCatalogService(courses courseLister, cache catalogCache, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{courses: courses, cache: cache, ttl: ttl, logger: logger}
}

// Available returns open courses of the semester that still have free seats.
// The boolean reports whether the result came from the cache.
func (s *CatalogService) Available(ctx context.Context, semester string) ([]models.Course, bool, error) {
	if semester == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "semester is required")
	}
	key := catalogKey(semester)
	if s.cache != nil {
		var cached []models.Course
		if s.cache.Get(ctx, key, &cached) {
			return cached, true, nil
		}
	}

	courses, err := s.courses.ListCourses(ctx, models.CourseFilter{
		Semester:      semester,
		Status:        models.CourseStatusOpen,
		OnlyAvailable: true,
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, courses, s.ttl)
	}
	return courses, false, nil
}

// InvalidateSemester drops the cached catalog of the semester.
func (s *CatalogService) InvalidateSemester(ctx context.Context, semester string) {
	if s.cache == nil || semester == "" {
		return
	}
	s.cache.Invalidate(ctx, catalogKey(semester))
}

func catalogKey(semester string) string {
	return fmt.Sprintf("%s%s", catalogKeyPrefix, semester)
}
