package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
	"github.com/noah-isme/course-ledger-api/pkg/response"
)

const maxBatchGrades = 500

type gradeService interface {
	SaveOrUpdate(ctx context.Context, actor models.Actor, req models.SaveGradeRequest) (*models.Grade, error)
	BatchSave(ctx context.Context, actor models.Actor, items []models.SaveGradeRequest) (*models.BatchSaveResult, error)
	Get(ctx context.Context, key models.GradeKey) (*models.Grade, error)
	Transcript(ctx context.Context, studentID, term string) (*models.Transcript, error)
	Delete(ctx context.Context, actor models.Actor, key models.GradeKey) error
}

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

type batchGradesRequest struct {
	Items []models.SaveGradeRequest `json:"items"`
}

// Save godoc
// @Summary Save or update component scores
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.SaveGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grades [put]
func (h *GradeHandler) Save(c *gin.Context) {
	var req models.SaveGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	grade, err := h.grades.SaveOrUpdate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Batch godoc
// @Summary Save many grades, reporting per-item failures
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body batchGradesRequest true "Grade items"
// @Success 200 {object} response.Envelope
// @Router /grades/batch [post]
func (h *GradeHandler) Batch(c *gin.Context) {
	var req batchGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if len(req.Items) > maxBatchGrades {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "too many items in one batch"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.grades.BatchSave(c.Request.Context(), actor, req.Items)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get one grade
// @Tags Grades
// @Produce json
// @Param studentId query string true "Student ID"
// @Param courseId query string true "Course ID"
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) Get(c *gin.Context) {
	var key models.GradeKey
	if err := c.ShouldBindQuery(&key); err != nil {
		invalidPayload(c, err)
		return
	}
	if _, ok := actorFor(c, key.StudentID); !ok {
		return
	}
	grade, err := h.grades.Get(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Delete godoc
// @Summary Delete one grade
// @Tags Grades
// @Param studentId query string true "Student ID"
// @Param courseId query string true "Course ID"
// @Param term query string true "Term"
// @Success 204
// @Router /grades [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	var key models.GradeKey
	if err := c.ShouldBindQuery(&key); err != nil {
		invalidPayload(c, err)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.grades.Delete(c.Request.Context(), actor, key); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transcript godoc
// @Summary Student grades for a term with mean score
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades [get]
func (h *GradeHandler) Transcript(c *gin.Context) {
	transcript, err := h.grades.Transcript(c.Request.Context(), c.Param("id"), c.Query("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}
