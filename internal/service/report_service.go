package service

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
	"github.com/noah-isme/course-ledger-api/pkg/export"
	"github.com/noah-isme/course-ledger-api/pkg/jobs"
)

// JobKindGradeSheet is the queue kind for grade sheet renders.
const JobKindGradeSheet = "grade_sheet"

type exportJobStore interface {
	Save(ctx context.Context, job *models.ExportJob) error
	Get(ctx context.Context, id string) (*models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type gradeSheetGenerator interface {
	Generate(ctx context.Context, jobID string, req models.ExportRequest) (string, error)
	Read(name string) ([]byte, error)
	Cleanup(ttl time.Duration) ([]string, error)
}

// ReportServiceConfig governs result retention.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload is a finished export ready to stream.
type ReportDownload struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ReportService orchestrates the grade sheet export job lifecycle.
type ReportService struct {
	repo      exportJobStore
	queue     jobDispatcher
	exporter  gradeSheetGenerator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
	now       func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo exportJobStore, queue jobDispatcher, exporter gradeSheetGenerator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	return &ReportService{
		repo:      repo,
		queue:     queue,
		exporter:  exporter,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateJob validates the request, registers the job and enqueues it.
func (s *ReportService) CreateJob(ctx context.Context, actor models.Actor, req models.ExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course_id, semester and format (csv|pdf) are required")
	}
	job := &models.ExportJob{
		ID:          uuid.NewString(),
		Request:     req,
		Status:      models.ExportStatusQueued,
		RequestedBy: actor.UserID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: JobKindGradeSheet, Enqueued: job.CreatedAt}); err != nil {
		s.finish(ctx, job, models.ExportStatusFailed, "", "failed to enqueue job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.metrics.RecordExportJob(string(req.Format), string(job.Status))
	s.logger.Info("export job queued",
		zap.String("job_id", job.ID),
		zap.String("actor_id", actor.UserID),
		zap.String("course_id", req.CourseID),
		zap.String("semester", req.Semester),
		zap.String("format", string(req.Format)),
	)
	return job, nil
}

// GetStatus returns job metadata. Teachers only see their own jobs.
func (s *ReportService) GetStatus(ctx context.Context, actor models.Actor, id string) (*models.ExportJob, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleTeacher && job.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return job, nil
}

// ResolveDownload returns the stored file of a finished job.
func (s *ReportService) ResolveDownload(ctx context.Context, actor models.Actor, id string) (*ReportDownload, error) {
	job, err := s.GetStatus(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportStatusFinished || job.FileName == "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "export is not ready")
	}
	payload, err := s.exporter.Read(job.FileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file expired")
	}
	return &ReportDownload{
		Filename:    filepath.Base(job.FileName),
		ContentType: export.Format(job.Request.Format).ContentType(),
		Payload:     payload,
	}, nil
}

// Process is the queue handler for grade sheet jobs.
func (s *ReportService) Process(ctx context.Context, qj jobs.Job) error {
	job, err := s.repo.Get(ctx, qj.ID)
	if err != nil {
		if errors.Is(err, repository.ErrExportJobNotFound) {
			return jobs.Permanent(err)
		}
		return err
	}
	if job.Done() {
		return nil
	}

	job.Status = models.ExportStatusProcessing
	job.Attempts = qj.Attempt + 1
	if err := s.repo.Save(ctx, job); err != nil {
		return err
	}

	name, err := s.exporter.Generate(ctx, job.ID, job.Request)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status < 500 {
			return jobs.Permanent(err)
		}
		return err
	}
	s.finish(ctx, job, models.ExportStatusFinished, name, "")
	return nil
}

// HandleGiveUp marks a job failed once the queue stops retrying it.
func (s *ReportService) HandleGiveUp(qj jobs.Job, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := s.repo.Get(ctx, qj.ID)
	if err != nil {
		s.logger.Warn("failed to load abandoned export job", zap.String("job_id", qj.ID), zap.Error(err))
		return
	}
	s.finish(ctx, job, models.ExportStatusFailed, "", appErrors.FromError(cause).Message)
}

// StartCleanup purges expired export files until ctx ends.
func (s *ReportService) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired()
			}
		}
	}()
}

func (s *ReportService) cleanupExpired() {
	removed, err := s.exporter.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("files", len(removed)))
	}
}

func (s *ReportService) load(ctx context.Context, id string) (*models.ExportJob, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "job id is required")
	}
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrExportJobNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

func (s *ReportService) finish(ctx context.Context, job *models.ExportJob, status models.ExportStatus, fileName, message string) {
	now := s.now().UTC()
	job.Status = status
	job.FileName = fileName
	job.ErrorMessage = message
	job.FinishedAt = &now
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to persist export job state",
			zap.String("job_id", job.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
	s.metrics.RecordExportJob(string(job.Request.Format), string(status))
	if status == models.ExportStatusFailed {
		s.logger.Warn("export job failed", zap.String("job_id", job.ID), zap.String("reason", message))
		return
	}
	s.logger.Info("export job finished", zap.String("job_id", job.ID), zap.String("file", fileName))
}
