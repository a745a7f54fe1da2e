package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type fakeCatalogCache struct {
	values      map[string][]models.Course
	invalidated []string
}

func (f *fakeCatalogCache) Get(_ context.Context, key string, dest interface{}) bool {
	courses, ok := f.values[key]
	if !ok {
		return false
	}
	*(dest.(*[]models.Course)) = courses
	return true
}

func (f *fakeCatalogCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) {
	f.values[key] = value.([]models.Course)
}

func (f *fakeCatalogCache) Invalidate(_ context.Context, pattern string) {
	f.invalidated = append(f.invalidated, pattern)
	delete(f.values, pattern)
}

func TestCatalogAvailableUsesCache(t *testing.T) {
	full := openCourse("c-full", "CS500", 1)
	full.SeatsTaken = 1
	closed := openCourse("c-closed", "CS900", 3)
	closed.Status = models.CourseStatusClosed
	ledger := newTestLedger(t, openCourse("c-1", "CS101", 2), full, closed)
	cache := &fakeCatalogCache{values: map[string][]models.Course{}}
	svc := NewCatalogService(ledger, cache, time.Minute, nil)
	ctx := context.Background()

	courses, cached, err := svc.Available(ctx, "2024-1")
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, courses, 1)
	assert.Equal(t, "CS101", courses[0].Code)

	_, cached, err = svc.Available(ctx, "2024-1")
	require.NoError(t, err)
	assert.True(t, cached)

	svc.InvalidateSemester(ctx, "2024-1")
	assert.Equal(t, []string{"course-ledger:catalog:available:2024-1"}, cache.invalidated)

	_, _, err = svc.Available(ctx, "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCatalogAvailableWithoutCache(t *testing.T) {
	ledger := newTestLedger(t)
	svc := NewCatalogService(ledger, nil, 0, nil)

	courses, cached, err := svc.Available(context.Background(), "2024-1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotNil(t, courses)
	assert.Empty(t, courses)
	svc.InvalidateSemester(context.Background(), "2024-1")
}
