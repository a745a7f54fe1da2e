package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

func gradeRow(studentID, courseID string, total *float64) models.GradeDetail {
	g := models.GradeDetail{Grade: models.Grade{StudentID: studentID, CourseID: courseID, Semester: "2024-1", TotalScore: total}}
	if total != nil {
		letter := LetterFor(*total)
		g.LetterGrade = &letter
	}
	return g
}

func TestSummarizeCourse(t *testing.T) {
	grades := []models.GradeDetail{
		gradeRow("s-1", "c-1", floatPtr(96)),
		gradeRow("s-2", "c-1", floatPtr(80)),
		gradeRow("s-3", "c-1", floatPtr(55)),
		gradeRow("s-4", "c-1", floatPtr(69)),
		gradeRow("s-5", "c-1", nil),
	}

	stats := summarizeCourse("c-1", "2024-1", grades)

	assert.Equal(t, 4, stats.GradedCount)
	assert.Equal(t, 3, stats.PassCount)
	assert.Equal(t, 1, stats.FailCount)
	require.NotNil(t, stats.MinScore)
	assert.Equal(t, 55.0, *stats.MinScore)
	assert.Equal(t, 96.0, *stats.MaxScore)
	assert.Equal(t, 75.0, *stats.MeanScore)
	assert.Equal(t, 74.5, *stats.MedianScore)
	assert.Equal(t, 15.02, *stats.StdDev)
	assert.Equal(t, 75.0, stats.PassRate)
	assert.Equal(t, 25.0, stats.ExcellenceRate)
	assert.Equal(t, 1, stats.LetterCounts[models.LetterAPlus])
	assert.Equal(t, 1, stats.LetterCounts[models.LetterB])
	assert.Equal(t, 1, stats.LetterCounts[models.LetterC])
	assert.Equal(t, 1, stats.LetterCounts[models.LetterF])
	assert.Len(t, stats.LetterCounts, len(models.LetterGrades))
}

func TestSummarizeCourseEmpty(t *testing.T) {
	stats := summarizeCourse("c-1", "2024-1", nil)
	assert.Zero(t, stats.GradedCount)
	assert.Nil(t, stats.MeanScore)
	assert.Zero(t, stats.PassRate)
}

func TestRankCohortPositionalTieBreak(t *testing.T) {
	grades := []models.GradeDetail{
		gradeRow("s-c", "c-1", floatPtr(80)),
		gradeRow("s-a", "c-1", floatPtr(90)),
		gradeRow("s-b", "c-1", floatPtr(80)),
	}

	ranks := rankCohort("2024-1", grades)

	require.Len(t, ranks, 3)
	assert.Equal(t, "s-a", ranks[0].StudentID)
	assert.Equal(t, 1, ranks[0].Rank)
	assert.Equal(t, "s-b", ranks[1].StudentID)
	assert.Equal(t, 2, ranks[1].Rank)
	assert.Equal(t, "s-c", ranks[2].StudentID)
	assert.Equal(t, 3, ranks[2].Rank)
	for _, r := range ranks {
		assert.Equal(t, 3, r.CohortSize)
	}
}

func TestSummarizeCourseExcellenceExcludesAMinus(t *testing.T) {
	grades := []models.GradeDetail{
		gradeRow("s-1", "c-1", floatPtr(87)),
		gradeRow("s-2", "c-1", floatPtr(50)),
	}

	stats := summarizeCourse("c-1", "2024-1", grades)

	assert.Equal(t, 1, stats.LetterCounts[models.LetterAMinus])
	assert.Zero(t, stats.ExcellenceRate)

	stats = summarizeCourse("c-1", "2024-1", append(grades, gradeRow("s-3", "c-1", floatPtr(90))))
	assert.Equal(t, 33.33, stats.ExcellenceRate)
}

func TestRankCohortOrdersOnUnroundedMean(t *testing.T) {
	grades := []models.GradeDetail{
		gradeRow("s-a", "c-1", floatPtr(80)),
		gradeRow("s-a", "c-2", floatPtr(80)),
		gradeRow("s-a", "c-3", floatPtr(80)),
		gradeRow("s-b", "c-1", floatPtr(80)),
		gradeRow("s-b", "c-2", floatPtr(80)),
		gradeRow("s-b", "c-3", floatPtr(80.01)),
	}

	ranks := rankCohort("2024-1", grades)

	require.Len(t, ranks, 2)
	assert.Equal(t, "s-b", ranks[0].StudentID)
	assert.Equal(t, 1, ranks[0].Rank)
	assert.Equal(t, "s-a", ranks[1].StudentID)
	assert.Equal(t, ranks[0].MeanScore, ranks[1].MeanScore)
}

func TestRankCohortAveragesCourses(t *testing.T) {
	grades := []models.GradeDetail{
		gradeRow("s-1", "c-1", floatPtr(90)),
		gradeRow("s-1", "c-2", floatPtr(71)),
		gradeRow("s-2", "c-1", floatPtr(85)),
		gradeRow("s-2", "c-2", nil),
	}

	ranks := rankCohort("2024-1", grades)

	require.Len(t, ranks, 2)
	assert.Equal(t, "s-2", ranks[0].StudentID)
	assert.Equal(t, 85.0, ranks[0].MeanScore)
	assert.Equal(t, 1, ranks[0].GradedCourses)
	assert.Equal(t, 80.5, ranks[1].MeanScore)
	assert.Equal(t, 2, ranks[1].GradedCourses)
}
