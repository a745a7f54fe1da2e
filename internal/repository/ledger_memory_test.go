package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

func seededMemoryLedger(t *testing.T, courses ...models.Course) *MemoryLedger {
	t.Helper()
	ledger := NewMemoryLedger(time.Second)
	for _, c := range courses {
		require.NoError(t, ledger.PutCourse(context.Background(), c))
	}
	return ledger
}

func TestMemoryLedgerPutCourseValidates(t *testing.T) {
	ledger := NewMemoryLedger(0)
	ctx := context.Background()

	assert.Error(t, ledger.PutCourse(ctx, models.Course{ID: "c-1", Code: "CS101", MaxSeats: 1, SeatsTaken: 2}))
	require.NoError(t, ledger.PutCourse(ctx, models.Course{ID: "c-1", Code: "CS101", MaxSeats: 1}))
	assert.Error(t, ledger.PutCourse(ctx, models.Course{ID: "c-2", Code: "CS101", MaxSeats: 1}))

	course, err := ledger.FindCourse(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusOpen, course.Status)
}

func TestMemoryLedgerRollbackDiscardsStagedWrites(t *testing.T) {
	ledger := seededMemoryLedger(t, models.Course{ID: "c-1", Code: "CS101", MaxSeats: 1, Semester: "2024-1"})
	ctx := context.Background()

	boom := errors.New("boom")
	err := ledger.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		ok, err := tx.TryIncrementSeats(ctx, "c-1")
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tx.InsertEnrollment(ctx, &models.Enrollment{StudentID: "s-1", CourseID: "c-1", Status: models.EnrollmentStatusActive}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	course, err := ledger.FindCourse(ctx, "c-1")
	require.NoError(t, err)
	assert.Zero(t, course.SeatsTaken)
	_, err = ledger.FindEnrollment(ctx, "s-1", "c-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMemoryLedgerIncrementRespectsCapacityAndStatus(t *testing.T) {
	ledger := seededMemoryLedger(t,
		models.Course{ID: "c-1", Code: "CS101", MaxSeats: 1},
		models.Course{ID: "c-2", Code: "CS102", MaxSeats: 5, Status: models.CourseStatusClosed},
	)

	err := ledger.WithinTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		ok, err := tx.TryIncrementSeats(ctx, "c-1")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = tx.TryIncrementSeats(ctx, "c-1")
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = tx.TryIncrementSeats(ctx, "c-2")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = tx.DecrementSeats(ctx, "c-2")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryLedgerSerializesTransactions(t *testing.T) {
	ledger := seededMemoryLedger(t, models.Course{ID: "c-1", Code: "CS101", MaxSeats: 100})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ledger.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
				course, err := tx.GetCourse(ctx, "c-1", true)
				if err != nil {
					return err
				}
				if course.SeatsTaken%2 == 0 {
					_, err = tx.TryIncrementSeats(ctx, "c-1")
					if err != nil {
						return err
					}
				}
				_, err = tx.TryIncrementSeats(ctx, "c-1")
				return err
			})
		}()
	}
	wg.Wait()

	course, err := ledger.FindCourse(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 100, course.SeatsTaken)
}

func TestMemoryLedgerTimeoutWhileWaiting(t *testing.T) {
	ledger := NewMemoryLedger(20 * time.Millisecond)
	release := make(chan struct{})
	started := make(chan struct{})

	go holdMemoryLedger(ledger, started, release)
	<-started

	err := ledger.WithinTx(context.Background(), func(context.Context, LedgerTx) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

// holdMemoryLedger occupies the transaction slot until release is closed.
func holdMemoryLedger(ledger *MemoryLedger, started chan<- struct{}, release <-chan struct{}) {
	ledger.sem <- struct{}{}
	close(started)
	<-release
	<-ledger.sem
}

func TestMemoryLedgerGradesAndListings(t *testing.T) {
	ledger := seededMemoryLedger(t,
		models.Course{ID: "c-1", Code: "CS101", Name: "Intro", MaxSeats: 10, Semester: "2024-1", Credits: 3},
		models.Course{ID: "c-2", Code: "MA101", Name: "Calculus", MaxSeats: 10, Semester: "2024-1", Credits: 4},
	)
	ctx := context.Background()
	total := 88.0
	letter := models.LetterAMinus

	err := ledger.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		for _, course := range []string{"c-2", "c-1"} {
			require.NoError(t, tx.InsertEnrollment(ctx, &models.Enrollment{StudentID: "s-1", CourseID: course, Status: models.EnrollmentStatusActive}))
		}
		return tx.UpsertGrade(ctx, &models.Grade{StudentID: "s-1", CourseID: "c-1", Semester: "2024-1", TotalScore: &total, LetterGrade: &letter})
	})
	require.NoError(t, err)
	total = 10

	enrollments, err := ledger.ListEnrollments(ctx, models.EnrollmentFilter{StudentID: "s-1", Semester: "2024-1"})
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	assert.Equal(t, "CS101", enrollments[0].CourseCode)

	grades, err := ledger.ListGrades(ctx, models.GradeFilter{Semester: "2024-1", ScoredOnly: true})
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, 88.0, *grades[0].TotalScore)
	assert.Equal(t, "Intro", grades[0].CourseName)

	key := models.GradeKey{StudentID: "s-1", CourseID: "c-1", Semester: "2024-1"}
	require.NoError(t, ledger.DeleteGrade(ctx, key))
	assert.ErrorIs(t, ledger.DeleteGrade(ctx, key), sql.ErrNoRows)
}
