package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/pkg/response"
)

type statisticsService interface {
	CourseStatistics(ctx context.Context, courseID, term string) (*models.CourseStatistics, error)
	StudentRank(ctx context.Context, studentID, term string) (*models.StudentRank, error)
	TermRanking(ctx context.Context, term string) (*models.TermRanking, error)
}

// StatisticsHandler exposes cohort statistics.
type StatisticsHandler struct {
	stats statisticsService
}

// NewStatisticsHandler constructs StatisticsHandler.
func NewStatisticsHandler(stats statisticsService) *StatisticsHandler {
	return &StatisticsHandler{stats: stats}
}

// Course godoc
// @Summary Course score statistics for a term
// @Tags Statistics
// @Produce json
// @Param id path string true "Course ID"
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope
// @Router /statistics/courses/{id} [get]
func (h *StatisticsHandler) Course(c *gin.Context) {
	stats, err := h.stats.CourseStatistics(c.Request.Context(), c.Param("id"), c.Query("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// StudentRank godoc
// @Summary Student rank within the term cohort
// @Tags Statistics
// @Produce json
// @Param id path string true "Student ID"
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope
// @Router /statistics/students/{id}/rank [get]
func (h *StatisticsHandler) StudentRank(c *gin.Context) {
	rank, err := h.stats.StudentRank(c.Request.Context(), c.Param("id"), c.Query("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rank, nil)
}

// TermRanking godoc
// @Summary Full term ranking
// @Tags Statistics
// @Produce json
// @Param term path string true "Term"
// @Success 200 {object} response.Envelope
// @Router /statistics/terms/{term}/ranking [get]
func (h *StatisticsHandler) TermRanking(c *gin.Context) {
	ranking, err := h.stats.TermRanking(c.Request.Context(), c.Param("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranking, nil, map[string]interface{}{"cohort_size": len(ranking.Entries)})
}
