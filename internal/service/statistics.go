package service

import (
	"math"
	"sort"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

// summarizeCourse computes cohort statistics over grade rows that carry a total.
func summarizeCourse(courseID, semester string, grades []models.GradeDetail) models.CourseStatistics {
	stats := models.CourseStatistics{
		CourseID:     courseID,
		Semester:     semester,
		LetterCounts: make(map[models.LetterGrade]int, len(models.LetterGrades)),
	}
	for _, letter := range models.LetterGrades {
		stats.LetterCounts[letter] = 0
	}

	totals := make([]float64, 0, len(grades))
	excellent := 0
	for _, g := range grades {
		if g.TotalScore == nil {
			continue
		}
		total := *g.TotalScore
		totals = append(totals, total)

		letter := LetterFor(total)
		if g.LetterGrade != nil {
			letter = *g.LetterGrade
		}
		stats.LetterCounts[letter]++
		if isExcellent(letter) {
			excellent++
		}
		if total >= passScore {
			stats.PassCount++
		} else {
			stats.FailCount++
		}
	}

	stats.GradedCount = len(totals)
	if stats.GradedCount == 0 {
		return stats
	}

	sort.Float64s(totals)
	n := float64(len(totals))
	var sum float64
	for _, t := range totals {
		sum += t
	}
	mean := sum / n
	var squares float64
	for _, t := range totals {
		squares += (t - mean) * (t - mean)
	}

	stats.MinScore = floatPtr(totals[0])
	stats.MaxScore = floatPtr(totals[len(totals)-1])
	stats.MeanScore = floatPtr(RoundScore(mean))
	stats.MedianScore = floatPtr(RoundScore(median(totals)))
	stats.StdDev = floatPtr(RoundScore(math.Sqrt(squares / n)))
	stats.PassRate = RoundScore(float64(stats.PassCount) / n * 100)
	stats.ExcellenceRate = RoundScore(float64(excellent) / n * 100)
	return stats
}

// median expects sorted input.
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// rankCohort orders students by descending unrounded mean total and ascending student id.
// Ranks are positions in that order, so equal means still receive distinct ranks.
func rankCohort(semester string, grades []models.GradeDetail) []models.StudentRank {
	type tally struct {
		sum   float64
		count int
	}
	byStudent := make(map[string]*tally)
	for _, g := range grades {
		if g.TotalScore == nil {
			continue
		}
		t, ok := byStudent[g.StudentID]
		if !ok {
			t = &tally{}
			byStudent[g.StudentID] = t
		}
		t.sum += *g.TotalScore
		t.count++
	}

	type entry struct {
		studentID string
		mean      float64
		count     int
	}
	entries := make([]entry, 0, len(byStudent))
	for studentID, t := range byStudent {
		entries = append(entries, entry{studentID: studentID, mean: t.sum / float64(t.count), count: t.count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].mean != entries[j].mean {
			return entries[i].mean > entries[j].mean
		}
		return entries[i].studentID < entries[j].studentID
	})

	ranks := make([]models.StudentRank, len(entries))
	for i, e := range entries {
		ranks[i] = models.StudentRank{
			StudentID:     e.studentID,
			Semester:      semester,
			MeanScore:     RoundScore(e.mean),
			GradedCourses: e.count,
			Rank:          i + 1,
			CohortSize:    len(entries),
		}
	}
	return ranks
}

func meanTotal(grades []models.GradeDetail) (*float64, int) {
	var sum float64
	count := 0
	for _, g := range grades {
		if g.TotalScore == nil {
			continue
		}
		sum += *g.TotalScore
		count++
	}
	if count == 0 {
		return nil, 0
	}
	return floatPtr(RoundScore(sum / float64(count))), count
}
