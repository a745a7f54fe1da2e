package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/service"
	"github.com/noah-isme/course-ledger-api/pkg/response"
)

type exportService interface {
	CreateJob(ctx context.Context, actor models.Actor, req models.ExportRequest) (*models.ExportJob, error)
	GetStatus(ctx context.Context, actor models.Actor, id string) (*models.ExportJob, error)
	ResolveDownload(ctx context.Context, actor models.Actor, id string) (*service.ReportDownload, error)
}

// ExportHandler exposes asynchronous grade sheet exports.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Create godoc
// @Summary Queue a grade sheet export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body models.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	job, err := h.exports.CreateJob(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	job, err := h.exports.GetStatus(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Job ID"
// @Success 200 {file} file
// @Router /exports/{id}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	download, err := h.exports.ResolveDownload(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, download.Filename, download.ContentType, download.Payload)
}
