package models

// CourseStatistics summarises graded rows of one course in a semester.
type CourseStatistics struct {
	CourseID       string              `json:"course_id"`
	Semester       string              `json:"semester"`
	GradedCount    int                 `json:"graded_count"`
	PassCount      int                 `json:"pass_count"`
	FailCount      int                 `json:"fail_count"`
	MinScore       *float64            `json:"min_score"`
	MaxScore       *float64            `json:"max_score"`
	MeanScore      *float64            `json:"mean_score"`
	MedianScore    *float64            `json:"median_score"`
	StdDev         *float64            `json:"std_dev"`
	LetterCounts   map[LetterGrade]int `json:"letter_counts"`
	PassRate       float64             `json:"pass_rate"`
	ExcellenceRate float64             `json:"excellence_rate"`
}

// StudentRank places one student within a semester cohort.
type StudentRank struct {
	StudentID     string  `json:"student_id"`
	Semester      string  `json:"semester"`
	Rank          int     `json:"rank"`
	CohortSize    int     `json:"cohort_size"`
	MeanScore     float64 `json:"mean_score"`
	GradedCourses int     `json:"graded_courses"`
}

// TermRanking is the full ordered cohort of a semester.
type TermRanking struct {
	Semester string        `json:"semester"`
	Entries  []StudentRank `json:"entries"`
}
