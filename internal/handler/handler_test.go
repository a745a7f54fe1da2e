package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/middleware"
	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/service"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asUser(c *gin.Context, userID string, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

type enrollmentServiceMock struct {
	selectErr error
	actor     models.Actor
	calls     int
}

func (m *enrollmentServiceMock) Select(_ context.Context, actor models.Actor, studentID, courseID string) (*models.Enrollment, error) {
	m.calls++
	m.actor = actor
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	return &models.Enrollment{ID: "e-1", StudentID: studentID, CourseID: courseID, Status: models.EnrollmentStatusActive}, nil
}

func (m *enrollmentServiceMock) Drop(_ context.Context, actor models.Actor, studentID, courseID string) (*models.Enrollment, error) {
	m.calls++
	return &models.Enrollment{ID: "e-1", StudentID: studentID, CourseID: courseID, Status: models.EnrollmentStatusDropped}, nil
}

func (m *enrollmentServiceMock) DropAllForTerm(_ context.Context, _ models.Actor, studentID, semester string) (*models.DropTermResult, error) {
	m.calls++
	return &models.DropTermResult{StudentID: studentID, Semester: semester, Dropped: 2}, nil
}

func (m *enrollmentServiceMock) CanSelect(context.Context, string, string) (bool, error) {
	m.calls++
	return true, nil
}

func (m *enrollmentServiceMock) ListStudentEnrollments(context.Context, string, string, models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	return []models.EnrollmentDetail{{}}, nil
}

func (m *enrollmentServiceMock) ListCourseEnrollments(context.Context, string, models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func TestEnrollmentHandlerSelect(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)

	payload, _ := json.Marshal(models.EnrollmentRequest{StudentID: "s-1", CourseID: "c-1"})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)
	asUser(c, "s-1", models.RoleStudent)

	h.Select(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.Actor{UserID: "s-1", Role: models.RoleStudent}, svc.actor)
}

func TestEnrollmentHandlerSelectForOtherStudentForbidden(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)

	payload, _ := json.Marshal(models.EnrollmentRequest{StudentID: "s-2", CourseID: "c-1"})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)
	asUser(c, "s-1", models.RoleStudent)

	h.Select(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, svc.calls)
}

func TestEnrollmentHandlerMapsDomainErrors(t *testing.T) {
	svc := &enrollmentServiceMock{selectErr: appErrors.Clone(appErrors.ErrCapacityExceeded, "course CS101 has no free seats")}
	h := NewEnrollmentHandler(svc)

	payload, _ := json.Marshal(models.EnrollmentRequest{StudentID: "s-2", CourseID: "c-1"})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)
	asUser(c, "t-1", models.RoleTeacher)

	h.Select(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, decodeError(t, w))
}

func TestEnrollmentHandlerRequiresIdentity(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := newGinContext(http.MethodGet, "/enrollments/eligibility?studentId=s-1&courseId=c-1", nil)
	h.Eligibility(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnrollmentHandlerDropTerm(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := newGinContext(http.MethodPost, "/students/s-1/enrollments/drop-term", []byte(`{"semester":"2024-1"}`))
	c.Params = gin.Params{{Key: "id", Value: "s-1"}}
	asUser(c, "s-1", models.RoleStudent)

	h.DropTerm(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"dropped":2`)

	c, w = newGinContext(http.MethodPost, "/students/s-1/enrollments/drop-term", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "s-1"}}
	asUser(c, "s-1", models.RoleStudent)
	h.DropTerm(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

type gradeServiceMock struct {
	saved []models.SaveGradeRequest
	key   models.GradeKey
}

func (m *gradeServiceMock) SaveOrUpdate(_ context.Context, _ models.Actor, req models.SaveGradeRequest) (*models.Grade, error) {
	m.saved = append(m.saved, req)
	return &models.Grade{StudentID: req.StudentID, CourseID: req.CourseID, Semester: req.Term}, nil
}

func (m *gradeServiceMock) BatchSave(_ context.Context, _ models.Actor, items []models.SaveGradeRequest) (*models.BatchSaveResult, error) {
	return &models.BatchSaveResult{SuccessCount: len(items)}, nil
}

func (m *gradeServiceMock) Get(_ context.Context, key models.GradeKey) (*models.Grade, error) {
	m.key = key
	return &models.Grade{StudentID: key.StudentID}, nil
}

func (m *gradeServiceMock) Transcript(_ context.Context, studentID, term string) (*models.Transcript, error) {
	return &models.Transcript{StudentID: studentID, Semester: term}, nil
}

func (m *gradeServiceMock) Delete(context.Context, models.Actor, models.GradeKey) error {
	return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
}

func TestGradeHandlerSaveAndGet(t *testing.T) {
	svc := &gradeServiceMock{}
	h := NewGradeHandler(svc)

	c, w := newGinContext(http.MethodPut, "/grades", []byte(`{"student_id":"s-1","course_id":"c-1","term":"2024-1","final_score":92}`))
	asUser(c, "t-1", models.RoleTeacher)
	h.Save(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.saved, 1)
	require.NotNil(t, svc.saved[0].FinalScore)
	assert.Equal(t, 92.0, *svc.saved[0].FinalScore)
	assert.Nil(t, svc.saved[0].MidtermScore)

	c, w = newGinContext(http.MethodGet, "/grades?studentId=s-1&courseId=c-1&term=2024-1", nil)
	asUser(c, "s-1", models.RoleStudent)
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.GradeKey{StudentID: "s-1", CourseID: "c-1", Semester: "2024-1"}, svc.key)

	c, w = newGinContext(http.MethodGet, "/grades?studentId=s-2&courseId=c-1&term=2024-1", nil)
	asUser(c, "s-1", models.RoleStudent)
	h.Get(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestGradeHandlerDeleteNotFound(t *testing.T) {
	h := NewGradeHandler(&gradeServiceMock{})

	c, w := newGinContext(http.MethodDelete, "/grades?studentId=s-1&courseId=c-1&term=2024-1", nil)
	asUser(c, "a-1", models.RoleAdmin)
	h.Delete(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrNotFound.Code, decodeError(t, w))
}

type exportServiceMock struct {
	job      *models.ExportJob
	download *service.ReportDownload
}

func (m *exportServiceMock) CreateJob(context.Context, models.Actor, models.ExportRequest) (*models.ExportJob, error) {
	return m.job, nil
}

func (m *exportServiceMock) GetStatus(context.Context, models.Actor, string) (*models.ExportJob, error) {
	return m.job, nil
}

func (m *exportServiceMock) ResolveDownload(context.Context, models.Actor, string) (*service.ReportDownload, error) {
	return m.download, nil
}

func TestExportHandlerCreateAndDownload(t *testing.T) {
	svc := &exportServiceMock{
		job:      &models.ExportJob{ID: "job-1", Status: models.ExportStatusQueued},
		download: &service.ReportDownload{Filename: "grades.csv", ContentType: "text/csv; charset=utf-8", Payload: []byte("No\n")},
	}
	h := NewExportHandler(svc)

	c, w := newGinContext(http.MethodPost, "/exports", []byte(`{"course_id":"c-1","semester":"2024-1","format":"csv"}`))
	asUser(c, "t-1", models.RoleTeacher)
	h.Create(c)
	require.Equal(t, http.StatusAccepted, w.Code)

	c, w = newGinContext(http.MethodGet, "/exports/job-1/download", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	asUser(c, "t-1", models.RoleTeacher)
	h.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="grades.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "No\n", w.Body.String())
}
