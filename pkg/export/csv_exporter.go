package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// summaryCellSeparator splits a summary line such as "Graded: 3  Passed: 2" into one metric per cell.
const summaryCellSeparator = "  "

// CSVExporter renders a Dataset as CSV. Every record is padded to the header width so the
// table and the optional summary block line up in spreadsheet tools.
type CSVExporter struct {
	comma       rune
	summaryRows bool
}

// CSVOption customises a CSVExporter.
type CSVOption func(*CSVExporter)

// WithDelimiter replaces the default comma, e.g. ';' for locales that use a decimal comma.
func WithDelimiter(comma rune) CSVOption {
	return func(e *CSVExporter) { e.comma = comma }
}

// WithSummaryRows appends the dataset summary below the table after one empty record.
func WithSummaryRows() CSVOption {
	return func(e *CSVExporter) { e.summaryRows = true }
}

func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{comma: ','}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	columns := make(map[string]int, len(data.Headers))
	for i, header := range data.Headers {
		columns[header] = i
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = e.comma
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}

	width := len(data.Headers)
	for n, row := range data.Rows {
		record := make([]string, width)
		for key, value := range row {
			i, ok := columns[key]
			if !ok {
				return nil, fmt.Errorf("row %d: unknown column %q", n+1, key)
			}
			record[i] = value
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", n+1, err)
		}
	}

	if e.summaryRows && len(data.Summary) > 0 {
		if err := writer.Write(make([]string, width)); err != nil {
			return nil, fmt.Errorf("write csv separator: %w", err)
		}
		for _, line := range data.Summary {
			if err := writer.Write(summaryRecord(line, width)); err != nil {
				return nil, fmt.Errorf("write csv summary: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func summaryRecord(line string, width int) []string {
	var cells []string
	for _, part := range strings.Split(line, summaryCellSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			cells = append(cells, part)
		}
	}
	for len(cells) < width {
		cells = append(cells, "")
	}
	return cells
}
