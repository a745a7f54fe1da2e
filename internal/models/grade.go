package models

import "time"

// LetterGrade is the closed set of letters derived from a total score.
type LetterGrade string

const (
	LetterAPlus  LetterGrade = "A+"
	LetterA      LetterGrade = "A"
	LetterAMinus LetterGrade = "A-"
	LetterBPlus  LetterGrade = "B+"
	LetterB      LetterGrade = "B"
	LetterBMinus LetterGrade = "B-"
	LetterCPlus  LetterGrade = "C+"
	LetterC      LetterGrade = "C"
	LetterCMinus LetterGrade = "C-"
	LetterD      LetterGrade = "D"
	LetterF      LetterGrade = "F"
)

// LetterGrades lists every letter from best to worst.
var LetterGrades = []LetterGrade{
	LetterAPlus, LetterA, LetterAMinus,
	LetterBPlus, LetterB, LetterBMinus,
	LetterCPlus, LetterC, LetterCMinus,
	LetterD, LetterF,
}

// Grade holds the component scores and derived result for one student, course and semester.
type Grade struct {
	ID              string       `db:"id" json:"id"`
	StudentID       string       `db:"student_id" json:"student_id"`
	CourseID        string       `db:"course_id" json:"course_id"`
	Semester        string       `db:"semester" json:"semester"`
	ContinuousScore *float64     `db:"continuous_score" json:"continuous_score"`
	MidtermScore    *float64     `db:"midterm_score" json:"midterm_score"`
	FinalScore      *float64     `db:"final_score" json:"final_score"`
	TotalScore      *float64     `db:"total_score" json:"total_score"`
	LetterGrade     *LetterGrade `db:"letter_grade" json:"letter_grade"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// Key returns the natural key of the grade row.
func (g Grade) Key() GradeKey {
	return GradeKey{StudentID: g.StudentID, CourseID: g.CourseID, Semester: g.Semester}
}

// GradeKey is the natural key of a grade row.
type GradeKey struct {
	StudentID string `json:"student_id" form:"studentId" validate:"required,max=64"`
	CourseID  string `json:"course_id" form:"courseId" validate:"required,max=64"`
	Semester  string `json:"semester" form:"term" validate:"required,max=32"`
}

// GradeDetail enriches Grade with course info for transcripts and sheets.
type GradeDetail struct {
	Grade
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	Credits    int    `db:"credits" json:"credits"`
}

// GradeFilter scopes grade listings.
type GradeFilter struct {
	StudentID string
	CourseID  string
	Semester  string
	// ScoredOnly keeps rows whose total has been derived.
	ScoredOnly bool
}

// SaveGradeRequest carries component scores; nil components keep their stored value.
type SaveGradeRequest struct {
	StudentID       string   `json:"student_id" validate:"required,max=64"`
	CourseID        string   `json:"course_id" validate:"required,max=64"`
	Term            string   `json:"term" validate:"required,max=32"`
	ContinuousScore *float64 `json:"continuous_score"`
	MidtermScore    *float64 `json:"midterm_score"`
	FinalScore      *float64 `json:"final_score"`
}

// Key returns the grade key addressed by the request.
func (r SaveGradeRequest) Key() GradeKey {
	return GradeKey{StudentID: r.StudentID, CourseID: r.CourseID, Semester: r.Term}
}

// BatchSaveFailure describes one rejected item of a batch save.
type BatchSaveFailure struct {
	Index     int    `json:"index"`
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// BatchSaveResult summarises a batch save.
type BatchSaveResult struct {
	SuccessCount int                `json:"success_count"`
	Failures     []BatchSaveFailure `json:"failures"`
}

// Transcript lists a student's grades in a semester with their mean total.
type Transcript struct {
	StudentID   string        `json:"student_id"`
	Semester    string        `json:"semester"`
	Grades      []GradeDetail `json:"grades"`
	GradedCount int           `json:"graded_count"`
	MeanScore   *float64      `json:"mean_score"`
}
