package models

import "time"

// ExportFormat enumerates grade sheet file formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportRequest asks for a grade sheet of one course in a semester.
type ExportRequest struct {
	CourseID string       `json:"course_id" validate:"required,max=64"`
	Semester string       `json:"semester" validate:"required,max=32"`
	Format   ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJob is the registry entry of an asynchronous grade sheet render.
type ExportJob struct {
	ID           string        `json:"id"`
	Request      ExportRequest `json:"request"`
	Status       ExportStatus  `json:"status"`
	FileName     string        `json:"file_name,omitempty"`
	RequestedBy  string        `json:"requested_by"`
	Attempts     int           `json:"attempts"`
	CreatedAt    time.Time     `json:"created_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j ExportJob) Done() bool {
	return j.Status == ExportStatusFinished || j.Status == ExportStatusFailed
}
