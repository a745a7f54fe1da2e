package service

import (
	"math"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

const (
	weightContinuous = 0.30
	weightMidterm    = 0.30
	weightFinal      = 0.40

	minScore  = 0.0
	maxScore  = 100.0
	passScore = 60.0
)

// letterThresholds are closed lower bounds checked top-down; anything below the last is F.
var letterThresholds = []struct {
	min    float64
	letter models.LetterGrade
}{
	{95, models.LetterAPlus},
	{90, models.LetterA},
	{85, models.LetterAMinus},
	{82, models.LetterBPlus},
	{78, models.LetterB},
	{75, models.LetterBMinus},
	{72, models.LetterCPlus},
	{68, models.LetterC},
	{65, models.LetterCMinus},
	{60, models.LetterD},
}

// GradeComponents are the optional partial scores of a grade row.
type GradeComponents struct {
	Continuous *float64
	Midterm    *float64
	Final      *float64
}

// ComputeTotal returns the weighted total over the components present, dividing by the sum of
// their weights. It returns nil when no component is present.
func ComputeTotal(c GradeComponents) *float64 {
	var sum, weight float64
	for _, part := range []struct {
		score  *float64
		weight float64
	}{
		{c.Continuous, weightContinuous},
		{c.Midterm, weightMidterm},
		{c.Final, weightFinal},
	} {
		if part.score == nil {
			continue
		}
		sum += *part.score * part.weight
		weight += part.weight
	}
	if weight == 0 {
		return nil
	}
	total := RoundScore(sum / weight)
	return &total
}

// LetterFor maps a total score to its letter grade.
func LetterFor(total float64) models.LetterGrade {
	for _, t := range letterThresholds {
		if total >= t.min {
			return t.letter
		}
	}
	return models.LetterF
}

// RoundScore rounds half-up to two decimals. The intermediate rounding to 1e-6 absorbs binary
// representation error so that 84.995 rounds to 85.00.
func RoundScore(v float64) float64 {
	return math.Round(math.Round(v*1e6)/1e4) / 100
}

func validScore(v *float64) bool {
	if v == nil {
		return true
	}
	return !math.IsNaN(*v) && *v >= minScore && *v <= maxScore
}

// deriveGrade recomputes total and letter from the stored components.
func deriveGrade(g *models.Grade) {
	g.TotalScore = ComputeTotal(GradeComponents{Continuous: g.ContinuousScore, Midterm: g.MidtermScore, Final: g.FinalScore})
	g.LetterGrade = nil
	if g.TotalScore != nil {
		letter := LetterFor(*g.TotalScore)
		g.LetterGrade = &letter
	}
}

// isExcellent covers totals of 90 and above; A- does not count.
func isExcellent(letter models.LetterGrade) bool {
	return letter == models.LetterAPlus || letter == models.LetterA
}

func floatPtr(v float64) *float64 {
	return &v
}
