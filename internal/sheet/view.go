package sheet

import "spreadsheet/api/internal/search"

// CellView is one rendered cell. Cells covered by a merge (other than the
// anchor) are not rendered and have no CellView.
type CellView struct {
	Index       int    `json:"index"`
	Row         int    `json:"row"`
	Column      int    `json:"column"`
	Content     string `json:"content"`
	Format      Format `json:"format"`
	Span        int    `json:"span"`
	Merged      *Range `json:"merged,omitempty"`
	Highlighted bool   `json:"highlighted"`
	Editing     bool   `json:"editing"`
}

type EditingView struct {
	Index int    `json:"index"`
	Draft string `json:"draft"`
}

// View is the derived, render-ready state of a sheet for a search term.
type View struct {
	Capacity  int          `json:"capacity"`
	Columns   int          `json:"columns"`
	Term      string       `json:"term"`
	Cells     []CellView   `json:"cells"`
	Merges    []Range      `json:"merges"`
	Selection *Range       `json:"selection"`
	Editing   *EditingView `json:"editing"`
	CanUndo   bool         `json:"canUndo"`
	CanRedo   bool         `json:"canRedo"`
	CanMerge  bool         `json:"canMerge"`
	UndoDepth int          `json:"undoDepth"`
	RedoDepth int          `json:"redoDepth"`
}

// View filters content through term and lays cells out columns wide.
func (s *Sheet) View(term string, columns int) View {
	if columns <= 0 {
		columns = 10
	}
	filtered := search.Filter(s.grid.content, term)

	view := View{
		Capacity:  s.grid.Capacity(),
		Columns:   columns,
		Term:      term,
		Cells:     make([]CellView, 0, len(filtered)),
		Merges:    s.merges.Ranges(),
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
		CanMerge:  s.selection.Active,
		UndoDepth: s.history.UndoDepth(),
		RedoDepth: s.history.RedoDepth(),
	}
	if s.selection.Active {
		view.Selection = &Range{Start: s.selection.Start, End: s.selection.End}
	}
	if s.editing.Active {
		view.Editing = &EditingView{Index: s.editing.Index, Draft: s.editing.Draft}
	}

	for i, cell := range filtered {
		span := 1
		var merged *Range
		if r, ok := s.merges.RangeCovering(i); ok {
			if i != r.Start {
				continue
			}
			span = r.Span()
			covering := r
			merged = &covering
		}
		format, _ := s.grid.Format(i)
		view.Cells = append(view.Cells, CellView{
			Index:       i,
			Row:         i / columns,
			Column:      i % columns,
			Content:     cell,
			Format:      format,
			Span:        span,
			Merged:      merged,
			Highlighted: search.Matches(cell, term),
			Editing:     s.editing.Active && s.editing.Index == i,
		})
	}
	return view
}
