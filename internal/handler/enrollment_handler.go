package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/pkg/response"
)

type enrollmentService interface {
	Select(ctx context.Context, actor models.Actor, studentID, courseID string) (*models.Enrollment, error)
	Drop(ctx context.Context, actor models.Actor, studentID, courseID string) (*models.Enrollment, error)
	DropAllForTerm(ctx context.Context, actor models.Actor, studentID, semester string) (*models.DropTermResult, error)
	CanSelect(ctx context.Context, studentID, courseID string) (bool, error)
	ListStudentEnrollments(ctx context.Context, studentID, semester string, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error)
	ListCourseEnrollments(ctx context.Context, courseID string, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error)
}

// EnrollmentHandler exposes course selection endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

type dropTermRequest struct {
	Semester string `json:"semester" binding:"required"`
}

// Select godoc
// @Summary Select a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.EnrollmentRequest true "Student and course"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Select(c *gin.Context) {
	var req models.EnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	actor, ok := actorFor(c, req.StudentID)
	if !ok {
		return
	}
	enrollment, err := h.enrollments.Select(c.Request.Context(), actor, req.StudentID, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Drop godoc
// @Summary Drop a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.EnrollmentRequest true "Student and course"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [delete]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	var req models.EnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	actor, ok := actorFor(c, req.StudentID)
	if !ok {
		return
	}
	enrollment, err := h.enrollments.Drop(c.Request.Context(), actor, req.StudentID, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Eligibility godoc
// @Summary Check whether a course can currently be selected
// @Tags Enrollments
// @Produce json
// @Param studentId query string true "Student ID"
// @Param courseId query string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/eligibility [get]
func (h *EnrollmentHandler) Eligibility(c *gin.Context) {
	studentID, courseID := c.Query("studentId"), c.Query("courseId")
	if _, ok := actorFor(c, studentID); !ok {
		return
	}
	allowed, err := h.enrollments.CanSelect(c.Request.Context(), studentID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student_id": studentID, "course_id": courseID, "can_select": allowed}, nil)
}

// ListByStudent godoc
// @Summary List a student's enrollments
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Param semester query string false "Semester"
// @Param status query string false "ACTIVE or DROPPED"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *EnrollmentHandler) ListByStudent(c *gin.Context) {
	status := models.EnrollmentStatus(strings.ToUpper(c.Query("status")))
	enrollments, err := h.enrollments.ListStudentEnrollments(c.Request.Context(), c.Param("id"), c.Query("semester"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil, map[string]interface{}{"count": len(enrollments)})
}

// DropTerm godoc
// @Summary Drop every active course of a semester
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dropTermRequest true "Semester"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments/drop-term [post]
func (h *EnrollmentHandler) DropTerm(c *gin.Context) {
	var req dropTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	actor, ok := actorFor(c, c.Param("id"))
	if !ok {
		return
	}
	result, err := h.enrollments.DropAllForTerm(c.Request.Context(), actor, c.Param("id"), req.Semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListByCourse godoc
// @Summary List a course roster
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Param status query string false "ACTIVE or DROPPED"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/enrollments [get]
func (h *EnrollmentHandler) ListByCourse(c *gin.Context) {
	status := models.EnrollmentStatus(strings.ToUpper(c.Query("status")))
	enrollments, err := h.enrollments.ListCourseEnrollments(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil, map[string]interface{}{"count": len(enrollments)})
}
