package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

type enrollmentPair struct {
	studentID string
	courseID  string
}

type memoryState struct {
	courses     map[string]models.Course
	enrollments map[enrollmentPair]models.Enrollment
	grades      map[models.GradeKey]models.Grade
}

func newMemoryState() *memoryState {
	return &memoryState{
		courses:     map[string]models.Course{},
		enrollments: map[enrollmentPair]models.Enrollment{},
		grades:      map[models.GradeKey]models.Grade{},
	}
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		courses:     make(map[string]models.Course, len(s.courses)),
		enrollments: make(map[enrollmentPair]models.Enrollment, len(s.enrollments)),
		grades:      make(map[models.GradeKey]models.Grade, len(s.grades)),
	}
	for k, v := range s.courses {
		out.courses[k] = v
	}
	for k, v := range s.enrollments {
		out.enrollments[k] = v
	}
	for k, v := range s.grades {
		out.grades[k] = cloneGrade(v)
	}
	return out
}

// MemoryLedger is an in-process Ledger. Transactions run one at a time against a staged copy of
// the committed state, which replaces it on success. Reads see the last committed state.
type MemoryLedger struct {
	sem       chan struct{}
	mu        sync.RWMutex
	state     *memoryState
	txTimeout time.Duration
}

// NewMemoryLedger constructs an empty in-memory ledger.
func NewMemoryLedger(txTimeout time.Duration) *MemoryLedger {
	return &MemoryLedger{
		sem:       make(chan struct{}, 1),
		state:     newMemoryState(),
		txTimeout: txTimeout,
	}
}

// PutCourse inserts or replaces a course definition.
func (l *MemoryLedger) PutCourse(ctx context.Context, course models.Course) error {
	if course.ID == "" || course.Code == "" {
		return fmt.Errorf("course id and code are required")
	}
	if course.MaxSeats < 0 || course.SeatsTaken < 0 || course.SeatsTaken > course.MaxSeats {
		return fmt.Errorf("course %s: seats_taken %d outside [0, %d]", course.Code, course.SeatsTaken, course.MaxSeats)
	}
	if course.Status == "" {
		course.Status = models.CourseStatusOpen
	}
	return l.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		staged := tx.(*memoryLedgerTx).state
		for id, existing := range staged.courses {
			if id != course.ID && existing.Code == course.Code {
				return fmt.Errorf("course code %s already used by %s", course.Code, id)
			}
		}
		now := time.Now().UTC()
		if existing, ok := staged.courses[course.ID]; ok {
			course.CreatedAt = existing.CreatedAt
		} else if course.CreatedAt.IsZero() {
			course.CreatedAt = now
		}
		course.UpdatedAt = now
		staged.courses[course.ID] = course
		return nil
	})
}

// WithinTx implements Ledger.
func (l *MemoryLedger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	if l.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.txTimeout)
		defer cancel()
	}

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("begin ledger transaction: %w", ctx.Err())
	}
	defer func() { <-l.sem }()

	tx := &memoryLedgerTx{state: l.committed().clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}

	l.mu.Lock()
	l.state = tx.state
	l.mu.Unlock()
	return nil
}

func (l *MemoryLedger) committed() *memoryState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// FindCourse implements Ledger.
func (l *MemoryLedger) FindCourse(_ context.Context, id string) (*models.Course, error) {
	return findCourse(l.committed(), id)
}

// ListCourses implements Ledger.
func (l *MemoryLedger) ListCourses(_ context.Context, filter models.CourseFilter) ([]models.Course, error) {
	state := l.committed()
	courses := make([]models.Course, 0, len(state.courses))
	for _, c := range state.courses {
		if filter.Semester != "" && c.Semester != filter.Semester {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.OnlyAvailable && !c.Available() {
			continue
		}
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

// FindEnrollment implements Ledger.
func (l *MemoryLedger) FindEnrollment(_ context.Context, studentID, courseID string) (*models.Enrollment, error) {
	return findEnrollment(l.committed(), studentID, courseID)
}

// ListEnrollments implements Ledger.
func (l *MemoryLedger) ListEnrollments(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	return filterEnrollments(l.committed(), filter), nil
}

// FindGrade implements Ledger.
func (l *MemoryLedger) FindGrade(_ context.Context, key models.GradeKey) (*models.Grade, error) {
	return findGrade(l.committed(), key)
}

// ListGrades implements Ledger.
func (l *MemoryLedger) ListGrades(_ context.Context, filter models.GradeFilter) ([]models.GradeDetail, error) {
	state := l.committed()
	grades := make([]models.GradeDetail, 0)
	for key, g := range state.grades {
		if filter.StudentID != "" && key.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && key.CourseID != filter.CourseID {
			continue
		}
		if filter.Semester != "" && key.Semester != filter.Semester {
			continue
		}
		if filter.ScoredOnly && g.TotalScore == nil {
			continue
		}
		course := state.courses[key.CourseID]
		grades = append(grades, models.GradeDetail{
			Grade:      cloneGrade(g),
			CourseCode: course.Code,
			CourseName: course.Name,
			Credits:    course.Credits,
		})
	}
	sort.Slice(grades, func(i, j int) bool {
		if grades[i].StudentID != grades[j].StudentID {
			return grades[i].StudentID < grades[j].StudentID
		}
		return grades[i].CourseCode < grades[j].CourseCode
	})
	return grades, nil
}

// DeleteGrade implements Ledger.
func (l *MemoryLedger) DeleteGrade(ctx context.Context, key models.GradeKey) error {
	return l.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		staged := tx.(*memoryLedgerTx).state
		if _, ok := staged.grades[key]; !ok {
			return sql.ErrNoRows
		}
		delete(staged.grades, key)
		return nil
	})
}

type memoryLedgerTx struct {
	state *memoryState
}

func (t *memoryLedgerTx) GetCourse(_ context.Context, id string, _ bool) (*models.Course, error) {
	return findCourse(t.state, id)
}

func (t *memoryLedgerTx) TryIncrementSeats(_ context.Context, courseID string) (bool, error) {
	course, ok := t.state.courses[courseID]
	if !ok || !course.Available() {
		return false, nil
	}
	course.SeatsTaken++
	course.UpdatedAt = time.Now().UTC()
	t.state.courses[courseID] = course
	return true, nil
}

func (t *memoryLedgerTx) DecrementSeats(_ context.Context, courseID string) (bool, error) {
	course, ok := t.state.courses[courseID]
	if !ok || course.SeatsTaken <= 0 {
		return false, nil
	}
	course.SeatsTaken--
	course.UpdatedAt = time.Now().UTC()
	t.state.courses[courseID] = course
	return true, nil
}

func (t *memoryLedgerTx) GetEnrollment(_ context.Context, studentID, courseID string, _ bool) (*models.Enrollment, error) {
	return findEnrollment(t.state, studentID, courseID)
}

func (t *memoryLedgerTx) ListEnrollments(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	return filterEnrollments(t.state, filter), nil
}

func (t *memoryLedgerTx) InsertEnrollment(_ context.Context, enrollment *models.Enrollment) error {
	pair := enrollmentPair{studentID: enrollment.StudentID, courseID: enrollment.CourseID}
	if _, exists := t.state.enrollments[pair]; exists {
		return fmt.Errorf("insert enrollment: duplicate (%s, %s)", pair.studentID, pair.courseID)
	}
	if _, ok := t.state.courses[enrollment.CourseID]; !ok {
		return fmt.Errorf("insert enrollment: unknown course %s", enrollment.CourseID)
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	if enrollment.StatusChangedAt.IsZero() {
		enrollment.StatusChangedAt = enrollment.CreatedAt
	}
	t.state.enrollments[pair] = *enrollment
	return nil
}

func (t *memoryLedgerTx) SetEnrollmentStatus(_ context.Context, id string, status models.EnrollmentStatus, at time.Time) error {
	for pair, e := range t.state.enrollments {
		if e.ID == id {
			e.Status = status
			e.StatusChangedAt = at
			t.state.enrollments[pair] = e
			return nil
		}
	}
	return sql.ErrNoRows
}

func (t *memoryLedgerTx) GetGrade(_ context.Context, key models.GradeKey, _ bool) (*models.Grade, error) {
	return findGrade(t.state, key)
}

func (t *memoryLedgerTx) UpsertGrade(_ context.Context, grade *models.Grade) error {
	key := grade.Key()
	now := time.Now().UTC()
	if existing, ok := t.state.grades[key]; ok {
		grade.ID = existing.ID
		grade.CreatedAt = existing.CreatedAt
	} else {
		if grade.ID == "" {
			grade.ID = uuid.NewString()
		}
		if grade.CreatedAt.IsZero() {
			grade.CreatedAt = now
		}
	}
	grade.UpdatedAt = now
	t.state.grades[key] = cloneGrade(*grade)
	return nil
}

func findCourse(state *memoryState, id string) (*models.Course, error) {
	course, ok := state.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func findEnrollment(state *memoryState, studentID, courseID string) (*models.Enrollment, error) {
	enrollment, ok := state.enrollments[enrollmentPair{studentID: studentID, courseID: courseID}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &enrollment, nil
}

func findGrade(state *memoryState, key models.GradeKey) (*models.Grade, error) {
	grade, ok := state.grades[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := cloneGrade(grade)
	return &out, nil
}

func filterEnrollments(state *memoryState, filter models.EnrollmentFilter) []models.EnrollmentDetail {
	out := make([]models.EnrollmentDetail, 0)
	for pair, e := range state.enrollments {
		if filter.StudentID != "" && pair.studentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && pair.courseID != filter.CourseID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		course := state.courses[pair.courseID]
		if filter.Semester != "" && course.Semester != filter.Semester {
			continue
		}
		out = append(out, models.EnrollmentDetail{
			Enrollment: e,
			CourseCode: course.Code,
			CourseName: course.Name,
			Semester:   course.Semester,
			Credits:    course.Credits,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseCode != out[j].CourseCode {
			return out[i].CourseCode < out[j].CourseCode
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}

func cloneGrade(g models.Grade) models.Grade {
	g.ContinuousScore = cloneFloat(g.ContinuousScore)
	g.MidtermScore = cloneFloat(g.MidtermScore)
	g.FinalScore = cloneFloat(g.FinalScore)
	g.TotalScore = cloneFloat(g.TotalScore)
	if g.LetterGrade != nil {
		letter := *g.LetterGrade
		g.LetterGrade = &letter
	}
	return g
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
