package export

import (
	"fmt"
	"strings"
)

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// Table defines tabular export content.
type Table struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// Renderer turns a table into a downloadable file.
type Renderer interface {
	Render(data Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer registered for format.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	case FormatXLSX:
		return NewXLSXExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func (t Table) record(row map[string]string) []string {
	record := make([]string, len(t.Headers))
	for i, header := range t.Headers {
		record[i] = row[header]
	}
	return record
}
