package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

func TestStatisticsServiceCourseAndRanking(t *testing.T) {
	grades, enrollments, ledger := newGradeFixture(t)
	stats := NewStatisticsService(ledger, nil)
	ctx := context.Background()

	for student, score := range map[string]float64{"s-a": 90, "s-b": 80, "s-c": 80} {
		_, err := enrollments.Select(ctx, staffActor, student, "c-1")
		require.NoError(t, err)
		_, err = grades.SaveOrUpdate(ctx, staffActor, models.SaveGradeRequest{StudentID: student, CourseID: "c-1", Term: "2024-1", FinalScore: floatPtr(score)})
		require.NoError(t, err)
	}

	course, err := stats.CourseStatistics(ctx, "c-1", "2024-1")
	require.NoError(t, err)
	assert.Equal(t, 3, course.GradedCount)
	assert.Equal(t, 83.33, *course.MeanScore)
	assert.Equal(t, 100.0, course.PassRate)
	assert.Equal(t, 33.33, course.ExcellenceRate)

	ranking, err := stats.TermRanking(ctx, "2024-1")
	require.NoError(t, err)
	require.Len(t, ranking.Entries, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{ranking.Entries[0].Rank, ranking.Entries[1].Rank, ranking.Entries[2].Rank})

	rank, err := stats.StudentRank(ctx, "s-c", "2024-1")
	require.NoError(t, err)
	assert.Equal(t, 3, rank.Rank)
	assert.Equal(t, 3, rank.CohortSize)

	_, err = stats.StudentRank(ctx, "s-z", "2024-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = stats.CourseStatistics(ctx, "missing", "2024-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = stats.TermRanking(ctx, "")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidKey))
}
