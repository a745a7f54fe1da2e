package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
	"github.com/noah-isme/course-ledger-api/pkg/storage"
)

func TestExportServiceGeneratesGradeSheet(t *testing.T) {
	grades, enrollments, ledger := newGradeFixture(t)
	ctx := context.Background()
	for _, student := range []string{"s-1", "s-2"} {
		_, err := enrollments.Select(ctx, staffActor, student, "c-1")
		require.NoError(t, err)
	}
	_, err := grades.SaveOrUpdate(ctx, staffActor, models.SaveGradeRequest{StudentID: "s-1", CourseID: "c-1", Term: "2024-1", ContinuousScore: floatPtr(80), MidtermScore: floatPtr(80), FinalScore: floatPtr(80)})
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(ledger, store, nil, nil)

	name, err := svc.Generate(ctx, "job-1", models.ExportRequest{CourseID: "c-1", Semester: "2024-1", Format: models.ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, "grades_c-1_2024-1_job-1.csv", name)

	payload, err := svc.Read(name)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "No,Student ID,Continuous,Midterm,Final,Total,Letter", lines[0])
	assert.Equal(t, "1,s-1,80.00,80.00,80.00,80.00,B", lines[1])
	assert.Equal(t, "2,s-2,-,-,-,-,", lines[2])
	assert.Equal(t, ",,,,,,", lines[3])
	assert.Equal(t, "Enrolled: 2,Graded: 1,Passed: 1,Failed: 0,,,", lines[4])
	assert.Equal(t, "Mean: 80.00,Median: 80.00,Pass rate: 100.00%,,,,", lines[5])
	assert.True(t, strings.HasPrefix(lines[6], "Generated at "))

	removed, err := svc.Cleanup(time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestExportServiceGradeSheetSummary(t *testing.T) {
	_, enrollments, ledger := newGradeFixture(t)
	ctx := context.Background()
	_, err := enrollments.Select(ctx, staffActor, "s-1", "c-1")
	require.NoError(t, err)

	svc := NewExportService(ledger, nil, nil, nil)
	dataset, err := svc.GradeSheet(ctx, "c-1", "2024-1")
	require.NoError(t, err)
	assert.Equal(t, "CS101 CS101 lecture - 2024-1", dataset.Title)
	require.Len(t, dataset.Summary, 3)
	assert.Contains(t, dataset.Summary[0], "Enrolled: 1  Graded: 0")

	_, err = svc.GradeSheet(ctx, "missing", "2024-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
