package sheet

import (
	"context"
	"errors"
	"testing"
)

func TestNewGridParallelSequences(t *testing.T) {
	g := NewGrid(7)
	lengths := []int{len(g.content), len(g.alignment), len(g.fontSize), len(g.textColor), len(g.backgroundColor)}
	for _, n := range lengths {
		if n != 7 {
			t.Fatalf("sequence lengths = %v, want all 7", lengths)
		}
	}
	for i := 0; i < g.Capacity(); i++ {
		format, err := g.Format(i)
		if err != nil {
			t.Fatalf("Format(%d) error = %v", i, err)
		}
		if format != DefaultFormat() {
			t.Fatalf("Format(%d) = %+v, want defaults", i, format)
		}
	}
	if _, err := g.Content(7); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("Content(7) error = %v", err)
	}
}

func TestParseFormatValues(t *testing.T) {
	alignments := map[string]Alignment{"left": AlignLeft, "text-center": AlignCenter, " RIGHT ": AlignRight}
	for input, want := range alignments {
		got, err := ParseAlignment(input)
		if err != nil || got != want {
			t.Errorf("ParseAlignment(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	sizes := map[string]FontSize{"base": FontBase, "text-lg": FontLarge, "xlarge": FontXLarge, "text-xl": FontXLarge}
	for input, want := range sizes {
		got, err := ParseFontSize(input)
		if err != nil || got != want {
			t.Errorf("ParseFontSize(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if got, err := ParseColor("#A0b1C2"); err != nil || got != "#a0b1c2" {
		t.Errorf("ParseColor = %q, %v", got, err)
	}
	for _, bad := range []string{"", "#fff", "000000", "#gggggg"} {
		if _, err := ParseColor(bad); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("ParseColor(%q) error = %v, want ErrInvalidFormat", bad, err)
		}
	}
	if _, err := ParseAlignment("justify"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ParseAlignment(justify) error = %v", err)
	}
}

func TestHistoryStacks(t *testing.T) {
	h := NewHistory(0)
	a := newSnapshot([]string{"a"})
	b := newSnapshot([]string{"b"})
	c := newSnapshot([]string{"c"})

	h.RecordBeforeChange(a)
	h.RecordBeforeChange(b)

	got, ok := h.Undo(c)
	if !ok || got.At(0) != "b" {
		t.Fatalf("Undo() = %v, %v", got.Cells(), ok)
	}
	got, ok = h.Undo(b)
	if !ok || got.At(0) != "a" {
		t.Fatalf("Undo() = %v, %v", got.Cells(), ok)
	}
	// The redo front is the most recently undone state.
	got, ok = h.Redo(a)
	if !ok || got.At(0) != "b" {
		t.Fatalf("Redo() = %v, %v", got.Cells(), ok)
	}
	if h.UndoDepth() != 1 || h.RedoDepth() != 1 {
		t.Fatalf("depths = %d/%d", h.UndoDepth(), h.RedoDepth())
	}

	h.RecordBeforeChange(b)
	if h.CanRedo() {
		t.Fatal("record should clear redo")
	}
}

func TestSnapshotCellsIsACopy(t *testing.T) {
	source := []string{"x"}
	snap := newSnapshot(source)
	source[0] = "changed"
	cells := snap.Cells()
	cells[0] = "also changed"
	if snap.At(0) != "x" {
		t.Fatalf("snapshot mutated: %q", snap.At(0))
	}
}

func TestViewLayoutAndHighlight(t *testing.T) {
	ctx := context.Background()
	s := New(6)
	edit(t, s, 4, "Grape")
	edit(t, s, 0, "Apple")
	// Selection {4,0} is reversed; the rejected merge clears it.
	if _, err := s.Merge(ctx); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("Merge() error = %v, want ErrInvalidRange", err)
	}
	_ = s.Select(0)
	_ = s.Select(1)
	if _, err := s.Merge(ctx); err != nil {
		t.Fatal(err)
	}

	view := s.View("ap", 3)
	if view.Columns != 3 || view.Capacity != 6 {
		t.Fatalf("view header = %+v", view)
	}
	// Index 1 is covered by the merge anchored at 0.
	if len(view.Cells) != 5 {
		t.Fatalf("rendered cells = %d, want 5", len(view.Cells))
	}
	anchor := view.Cells[0]
	if anchor.Index != 0 || anchor.Span != 2 || anchor.Merged == nil || anchor.Content != "" {
		t.Fatalf("anchor = %+v", anchor)
	}
	for _, cell := range view.Cells {
		if cell.Index == 4 {
			if cell.Row != 1 || cell.Column != 1 || !cell.Highlighted || cell.Content != "Grape" {
				t.Fatalf("cell 4 = %+v", cell)
			}
		}
	}
	if !view.CanUndo || view.CanRedo || view.CanMerge {
		t.Fatalf("flags = undo %v redo %v merge %v", view.CanUndo, view.CanRedo, view.CanMerge)
	}
}
