package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/pkg/response"
)

type catalogService interface {
	Available(ctx context.Context, semester string) ([]models.Course, bool, error)
}

// CatalogHandler exposes the course catalog.
type CatalogHandler struct {
	catalog catalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog catalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Available godoc
// @Summary List open courses with free seats
// @Tags Courses
// @Produce json
// @Param semester query string true "Semester"
// @Success 200 {object} response.Envelope
// @Router /courses/available [get]
func (h *CatalogHandler) Available(c *gin.Context) {
	courses, cached, err := h.catalog.Available(c.Request.Context(), c.Query("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil, map[string]interface{}{"count": len(courses), "cached": cached})
}
