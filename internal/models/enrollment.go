package models

import "time"

// EnrollmentStatus is the state of a (student, course) pair.
type EnrollmentStatus string

const (
	EnrollmentStatusActive  EnrollmentStatus = "ACTIVE"
	EnrollmentStatusDropped EnrollmentStatus = "DROPPED"
)

// Valid reports whether s is one of the known statuses.
func (s EnrollmentStatus) Valid() bool {
	return s == EnrollmentStatusActive || s == EnrollmentStatusDropped
}

// Enrollment is the single row tracking a student's membership in a course.
// Rows are never deleted; dropping and re-selecting flips Status.
type Enrollment struct {
	ID              string           `db:"id" json:"id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	CourseID        string           `db:"course_id" json:"course_id"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	StatusChangedAt time.Time        `db:"status_changed_at" json:"status_changed_at"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// EnrollmentDetail enriches Enrollment with course info.
type EnrollmentDetail struct {
	Enrollment
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	Semester   string `db:"semester" json:"semester"`
	Credits    int    `db:"credits" json:"credits"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Semester  string
	Status    EnrollmentStatus
}

// EnrollmentRequest identifies the pair acted on by select and drop.
type EnrollmentRequest struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	CourseID  string `json:"course_id" validate:"required,max=64"`
}

// DropTermResult reports how many enrollments a term-wide drop released.
type DropTermResult struct {
	StudentID string `json:"student_id"`
	Semester  string `json:"semester"`
	Dropped   int    `json:"dropped"`
}
