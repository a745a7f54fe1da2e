package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
	"github.com/noah-isme/course-ledger-api/pkg/export"
)

var gradeSheetHeaders = []string{"No", "Student ID", "Continuous", "Midterm", "Final", "Total", "Letter"}

type gradeSheetReader interface {
	FindCourse(ctx context.Context, id string) (*models.Course, error)
	ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	ListGrades(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(format export.Format, data export.Dataset) ([]byte, error)
}

// ExportService builds grade sheets and persists the rendered files.
type ExportService struct {
	reader   gradeSheetReader
	storage  fileStorage
	renderer datasetRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs ExportService. A nil renderer uses the CSV/PDF exporters.
func NewExportService(reader gradeSheetReader, storage fileStorage, renderer datasetRenderer, logger *zap.Logger) *ExportService {
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{reader: reader, storage: storage, renderer: renderer, logger: logger, now: time.Now}
}

// Generate renders the grade sheet of the request and stores it, returning the stored file name.
func (s *ExportService) Generate(ctx context.Context, jobID string, req models.ExportRequest) (string, error) {
	dataset, err := s.GradeSheet(ctx, req.CourseID, req.Semester)
	if err != nil {
		return "", err
	}
	payload, err := s.renderer.Render(export.Format(req.Format), dataset)
	if err != nil {
		return "", fmt.Errorf("render grade sheet: %w", err)
	}
	name, err := s.storage.Save(exportFileName(jobID, req), payload)
	if err != nil {
		return "", err
	}
	s.logger.Info("grade sheet stored",
		zap.String("job_id", jobID),
		zap.String("file", name),
		zap.Int("bytes", len(payload)),
	)
	return name, nil
}

// GradeSheet lists every active enrollee of the course with their scores for the semester.
func (s *ExportService) GradeSheet(ctx context.Context, courseID, semester string) (export.Dataset, error) {
	course, err := s.reader.FindCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.Dataset{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	roster, err := s.reader.ListEnrollments(ctx, models.EnrollmentFilter{CourseID: courseID, Status: models.EnrollmentStatusActive})
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	grades, err := s.reader.ListGrades(ctx, models.GradeFilter{CourseID: courseID, Semester: semester})
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	byStudent := make(map[string]models.GradeDetail, len(grades))
	for _, g := range grades {
		byStudent[g.StudentID] = g
	}

	rows := make([]map[string]string, 0, len(roster))
	for i, e := range roster {
		g := byStudent[e.StudentID]
		letter := ""
		if g.LetterGrade != nil {
			letter = string(*g.LetterGrade)
		}
		rows = append(rows, map[string]string{
			"No":         fmt.Sprintf("%d", i+1),
			"Student ID": e.StudentID,
			"Continuous": formatScore(g.ContinuousScore),
			"Midterm":    formatScore(g.MidtermScore),
			"Final":      formatScore(g.FinalScore),
			"Total":      formatScore(g.TotalScore),
			"Letter":     letter,
		})
	}

	stats := summarizeCourse(courseID, semester, grades)
	summary := []string{
		fmt.Sprintf("Enrolled: %d  Graded: %d  Passed: %d  Failed: %d", len(roster), stats.GradedCount, stats.PassCount, stats.FailCount),
		fmt.Sprintf("Mean: %s  Median: %s  Pass rate: %.2f%%", formatScore(stats.MeanScore), formatScore(stats.MedianScore), stats.PassRate),
		fmt.Sprintf("Generated at %s", s.now().UTC().Format(time.RFC3339)),
	}

	return export.Dataset{
		Title:   fmt.Sprintf("%s %s - %s", course.Code, course.Name, semester),
		Headers: gradeSheetHeaders,
		Rows:    rows,
		Summary: summary,
	}, nil
}

// Read returns a stored export.
func (s *ExportService) Read(name string) ([]byte, error) {
	return s.storage.Read(name)
}

// Cleanup removes stored exports older than ttl.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	return s.storage.CleanupOlderThan(ttl)
}

func exportFileName(jobID string, req models.ExportRequest) string {
	return fmt.Sprintf("grades_%s_%s_%s.%s", sanitizeFilename(req.CourseID), sanitizeFilename(req.Semester), jobID, req.Format)
}

func sanitizeFilename(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, raw)
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
