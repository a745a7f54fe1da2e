package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/repository"
)

var (
	staffActor   = models.Actor{UserID: "t-1", Role: models.RoleTeacher}
	adminActor   = models.Actor{UserID: "a-1", Role: models.RoleAdmin}
	studentActor = models.Actor{UserID: "s-1", Role: models.RoleStudent}
)

func newTestLedger(t *testing.T, courses ...models.Course) *repository.MemoryLedger {
	t.Helper()
	ledger := repository.NewMemoryLedger(5 * time.Second)
	for _, c := range courses {
		require.NoError(t, ledger.PutCourse(context.Background(), c))
	}
	return ledger
}

func openCourse(id, code string, seats int) models.Course {
	return models.Course{ID: id, Code: code, Name: code + " lecture", MaxSeats: seats, Semester: "2024-1", Credits: 3}
}

type recordingCatalog struct {
	mu        sync.Mutex
	semesters []string
}

func (r *recordingCatalog) InvalidateSemester(_ context.Context, semester string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.semesters = append(r.semesters, semester)
}

func (r *recordingCatalog) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.semesters...)
}

func seatsTaken(t *testing.T, ledger *repository.MemoryLedger, courseID string) int {
	t.Helper()
	course, err := ledger.FindCourse(context.Background(), courseID)
	require.NoError(t, err)
	return course.SeatsTaken
}
