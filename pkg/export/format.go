package export

import "fmt"

// Format identifies a rendered file type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Valid reports whether the format is supported.
func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatPDF
}

// ContentType returns the MIME type served for downloads.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
	// Summary lines are printed below the table.
	Summary []string
}

// Renderer turns datasets into files of a given format.
type Renderer struct {
	csv *CSVExporter
	pdf *PDFExporter
}

func NewRenderer() *Renderer {
	return &Renderer{csv: NewCSVExporter(WithSummaryRows()), pdf: NewPDFExporter()}
}

// Render dispatches to the exporter matching format.
func (r *Renderer) Render(format Format, data Dataset) ([]byte, error) {
	switch format {
	case FormatCSV:
		return r.csv.Render(data)
	case FormatPDF:
		return r.pdf.Render(data)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
