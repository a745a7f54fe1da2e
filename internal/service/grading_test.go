package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

func TestComputeTotalWeightsAllComponents(t *testing.T) {
	total := ComputeTotal(GradeComponents{Continuous: floatPtr(80), Midterm: floatPtr(80), Final: floatPtr(80)})
	require.NotNil(t, total)
	assert.Equal(t, 80.0, *total)
	assert.Equal(t, models.LetterB, LetterFor(*total))

	total = ComputeTotal(GradeComponents{Continuous: floatPtr(70), Midterm: floatPtr(80), Final: floatPtr(90)})
	require.NotNil(t, total)
	assert.Equal(t, 81.0, *total)
}

func TestComputeTotalRenormalizesMissingComponents(t *testing.T) {
	total := ComputeTotal(GradeComponents{Final: floatPtr(92)})
	require.NotNil(t, total)
	assert.Equal(t, 92.0, *total)
	assert.Equal(t, models.LetterA, LetterFor(*total))

	// (60*0.3 + 90*0.4) / 0.7
	total = ComputeTotal(GradeComponents{Continuous: floatPtr(60), Final: floatPtr(90)})
	require.NotNil(t, total)
	assert.Equal(t, 77.14, *total)

	assert.Nil(t, ComputeTotal(GradeComponents{}))
}

func TestLetterForBoundaries(t *testing.T) {
	cases := []struct {
		total  float64
		letter models.LetterGrade
	}{
		{100, models.LetterAPlus},
		{95, models.LetterAPlus},
		{94.99, models.LetterA},
		{90, models.LetterA},
		{85, models.LetterAMinus},
		{82, models.LetterBPlus},
		{78, models.LetterB},
		{75, models.LetterBMinus},
		{72, models.LetterCPlus},
		{68, models.LetterC},
		{65, models.LetterCMinus},
		{60, models.LetterD},
		{59.99, models.LetterF},
		{0, models.LetterF},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.letter, LetterFor(tc.total), "total %.2f", tc.total)
	}
}

func TestRoundScoreHalfUp(t *testing.T) {
	assert.Equal(t, 85.0, RoundScore(84.995))
	assert.Equal(t, 84.99, RoundScore(84.994))
	assert.Equal(t, 77.14, RoundScore(54.0/0.7))
}

func TestValidScore(t *testing.T) {
	assert.True(t, validScore(nil))
	assert.True(t, validScore(floatPtr(0)))
	assert.True(t, validScore(floatPtr(100)))
	assert.False(t, validScore(floatPtr(-0.01)))
	assert.False(t, validScore(floatPtr(100.01)))
	assert.False(t, validScore(floatPtr(math.NaN())))
}

func TestDeriveGradeClearsLetterWithoutComponents(t *testing.T) {
	letter := models.LetterA
	grade := &models.Grade{TotalScore: floatPtr(91), LetterGrade: &letter}
	deriveGrade(grade)
	assert.Nil(t, grade.TotalScore)
	assert.Nil(t, grade.LetterGrade)

	grade.MidtermScore = floatPtr(64)
	deriveGrade(grade)
	require.NotNil(t, grade.LetterGrade)
	assert.Equal(t, models.LetterD, *grade.LetterGrade)
}
