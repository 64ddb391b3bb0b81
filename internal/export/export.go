// Package export renders sheet content as CSV, XLSX and PDF downloads.
package export

import (
	"context"
	"errors"
	"fmt"

	"spreadsheet/api/internal/sheet"
)

// Format represents the export output format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts a format name, defaulting to CSV when empty.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatPDF:
		return Format(value), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, value)
	}
}

// Request contains parameters for an export operation
type Request struct {
	Format Format
	Title  string
	// Content is the cell sequence exported as CSV.
	Content []string
	// View drives the XLSX and PDF layouts.
	View sheet.View
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat indicates an unknown export format.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)

// Export generates an export in the requested format
func Export(ctx context.Context, req Request) (*Result, error) {
	switch req.Format {
	case FormatCSV, "":
		return CSV(req.Content), nil
	case FormatXLSX:
		return XLSX(req.View, req.Title)
	case FormatPDF:
		html, err := RenderGridHTML(req.View, req.Title)
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		return exportPDF(ctx, html, req.Title, layoutFor(req.View.Columns))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}

// sanitizeFilename creates a safe filename from a title
func sanitizeFilename(title string) string {
	result := make([]rune, 0, len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			result = append(result, r)
		case r == ' ':
			result = append(result, '-')
		case r == '-', r == '_':
			result = append(result, r)
		}
	}

	if len(result) > 50 {
		result = result[:50]
	}
	if len(result) == 0 {
		return "spreadsheet"
	}
	return string(result)
}

// gridRows groups visible cells by row. A span running past the last
// column is clipped to the row.
func gridRows(view sheet.View) [][]sheet.CellView {
	columns := view.Columns
	if columns <= 0 {
		columns = 10
	}
	rowCount := (view.Capacity + columns - 1) / columns
	rows := make([][]sheet.CellView, rowCount)
	for _, cell := range view.Cells {
		if cell.Row < 0 || cell.Row >= rowCount {
			continue
		}
		if limit := columns - cell.Column; cell.Span > limit {
			cell.Span = limit
		}
		rows[cell.Row] = append(rows[cell.Row], cell)
	}
	return rows
}
