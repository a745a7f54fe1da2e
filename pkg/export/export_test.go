package export

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sheet(rows int) Dataset {
	data := Dataset{
		Title:   "CS101 grade sheet",
		Headers: []string{"student_id", "total_score", "letter_grade"},
		Summary: []string{"Graded: 2"},
	}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{
			"student_id":   "s" + strconv.Itoa(i),
			"total_score":  "80.00",
			"letter_grade": "B",
		})
	}
	return data
}

func TestRendererCSV(t *testing.T) {
	out, err := NewRenderer().Render(FormatCSV, sheet(2))
	require.NoError(t, err)
	assert.Equal(t, "student_id,total_score,letter_grade\ns0,80.00,B\ns1,80.00,B\n,,\nGraded: 2,,\n", string(out))
}

func TestCSVExporterTableOnlyByDefault(t *testing.T) {
	out, err := NewCSVExporter().Render(sheet(1))
	require.NoError(t, err)
	assert.Equal(t, "student_id,total_score,letter_grade\ns0,80.00,B\n", string(out))
}

func TestCSVExporterSplitsSummaryIntoCells(t *testing.T) {
	data := sheet(0)
	data.Summary = []string{"Enrolled: 2  Graded: 1  Passed: 1  Failed: 0", "Generated at 2024-03-01T00:00:00Z"}

	out, err := NewCSVExporter(WithSummaryRows(), WithDelimiter(';')).Render(data)
	require.NoError(t, err)
	assert.Equal(t, "student_id;total_score;letter_grade\n"+
		";;\n"+
		"Enrolled: 2;Graded: 1;Passed: 1;Failed: 0\n"+
		"Generated at 2024-03-01T00:00:00Z;;\n", string(out))
}

func TestCSVExporterRejectsUnknownColumn(t *testing.T) {
	data := sheet(1)
	data.Rows = append(data.Rows, map[string]string{"student_id": "s9", "grade": "A"})

	_, err := NewCSVExporter().Render(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `row 2: unknown column "grade"`)
}

func TestCSVExporterLeavesMissingCellsEmpty(t *testing.T) {
	data := sheet(0)
	data.Rows = []map[string]string{{"student_id": "s1"}}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "student_id,total_score,letter_grade\ns1,,\n", string(out))
}

func TestRendererPDFPaginates(t *testing.T) {
	out, err := NewRenderer().Render(FormatPDF, sheet(120))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRendererRejectsUnknownFormat(t *testing.T) {
	_, err := NewRenderer().Render(Format("xlsx"), sheet(1))
	assert.Error(t, err)
	assert.False(t, Format("xlsx").Valid())
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}
