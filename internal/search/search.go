// Package search derives filtered grid views and runs workspace-wide cell
// search across sheets.
package search

// Result is a single matching cell.
type Result struct {
	SheetID string `json:"sheetId"`
	Index   int    `json:"index"`
	Content string `json:"content"`
	Snippet string `json:"snippet,omitempty"`
}

// Query describes a workspace search request.
type Query struct {
	Text    string
	SheetID string // empty = all sheets
	Limit   int
	Offset  int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Source  string   `json:"source"`
}

// CellRecord is the data we index for one cell.
type CellRecord struct {
	ID      string `json:"id"`
	SheetID string `json:"sheetId"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Scanner searches cells without an external index.
type Scanner interface {
	Scan(q Query) ([]Result, int, error)
}

// ScanFunc adapts a function to Scanner.
type ScanFunc func(q Query) ([]Result, int, error)

func (f ScanFunc) Scan(q Query) ([]Result, int, error) { return f(q) }

// ScanContent returns the cells of one sheet that literally contain q.Text.
func ScanContent(sheetID string, content []string, text string) []Result {
	var results []Result
	for i, cell := range content {
		if Matches(cell, text) {
			results = append(results, Result{SheetID: sheetID, Index: i, Content: cell})
		}
	}
	return results
}

// Page applies limit/offset to results.
func Page(results []Result, limit, offset int) []Result {
	limit = pageLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []Result{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
