package sheet

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type recordingPersister struct {
	loaded []string
	ok     bool
	saves  [][]string
}

func (p *recordingPersister) Load(context.Context) ([]string, bool) {
	return p.loaded, p.ok
}

func (p *recordingPersister) Save(_ context.Context, content []string) {
	p.saves = append(p.saves, content)
}

func edit(t *testing.T, s *Sheet, index int, text string) bool {
	t.Helper()
	if err := s.Select(index); err != nil {
		t.Fatalf("Select(%d) error = %v", index, err)
	}
	s.UpdateDraft(text)
	changed, err := s.Commit(context.Background())
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return changed
}

func assertContent(t *testing.T, s *Sheet, want []string) {
	t.Helper()
	if got := s.Content(); !reflect.DeepEqual(got, want) {
		t.Fatalf("content = %q, want %q", got, want)
	}
}

func TestWalkthroughCapacityFive(t *testing.T) {
	ctx := context.Background()
	s := New(5)

	edit(t, s, 0, "A")
	assertContent(t, s, []string{"A", "", "", "", ""})
	if s.UndoDepth() != 1 {
		t.Fatalf("undo depth = %d, want 1", s.UndoDepth())
	}

	edit(t, s, 2, "B")
	assertContent(t, s, []string{"A", "", "B", "", ""})
	if s.UndoDepth() != 2 {
		t.Fatalf("undo depth = %d, want 2", s.UndoDepth())
	}

	if !s.Undo(ctx) {
		t.Fatal("expected undo to apply")
	}
	assertContent(t, s, []string{"A", "", "", "", ""})
	if s.UndoDepth() != 1 || s.RedoDepth() != 1 {
		t.Fatalf("depths = %d/%d, want 1/1", s.UndoDepth(), s.RedoDepth())
	}

	// Clicks on 0 and 2 were the selection anchor and latest cell.
	sel := s.Selection()
	if !sel.Active || sel.Start != 0 || sel.End != 2 {
		t.Fatalf("selection = %+v, want {0 2 true}", sel)
	}
	r, err := s.Merge(ctx)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if r != (Range{Start: 0, End: 2}) {
		t.Fatalf("merged range = %+v", r)
	}
	assertContent(t, s, []string{"A", "", "", "", ""})
	if got := s.Merges(); !reflect.DeepEqual(got, []Range{{Start: 0, End: 2}}) {
		t.Fatalf("merges = %+v", got)
	}
	if s.Selection().Active {
		t.Fatal("expected selection reset after merge")
	}
}

func TestCommitTrimsAndRecordsHistory(t *testing.T) {
	ctx := context.Background()
	s := New(3)
	edit(t, s, 1, "x")
	if !s.Undo(ctx) {
		t.Fatal("expected undo")
	}
	if !s.CanRedo() {
		t.Fatal("expected redo available")
	}

	if changed := edit(t, s, 1, "  hello \n"); !changed {
		t.Fatal("expected change")
	}
	assertContent(t, s, []string{"", "hello", ""})
	if s.UndoDepth() != 1 {
		t.Fatalf("undo depth = %d, want 1", s.UndoDepth())
	}
	if s.CanRedo() {
		t.Fatal("new edit should clear redo")
	}
	if s.Editing().Active {
		t.Fatal("commit should close the edit")
	}
}

func TestCommitSameValueIsIdempotent(t *testing.T) {
	s := New(3)
	edit(t, s, 0, "v")
	if changed := edit(t, s, 0, " v "); changed {
		t.Fatal("second commit of the same trimmed value should not change")
	}
	if s.UndoDepth() != 1 {
		t.Fatalf("undo depth = %d, want 1", s.UndoDepth())
	}
}

func TestCommitWithoutEdit(t *testing.T) {
	s := New(2)
	changed, err := s.Commit(context.Background())
	if !errors.Is(err, ErrNoActiveEdit) || changed {
		t.Fatalf("Commit() = %v, %v; want false, ErrNoActiveEdit", changed, err)
	}
}

func TestSelectRejectsOutOfRange(t *testing.T) {
	s := New(2)
	for _, index := range []int{-1, 2, 100} {
		if err := s.Select(index); !errors.Is(err, ErrInvalidIndex) {
			t.Fatalf("Select(%d) error = %v, want ErrInvalidIndex", index, err)
		}
	}
	if s.Editing().Active || s.Selection().Active {
		t.Fatal("rejected select must not change state")
	}
}

func TestUndoRedoEmptyAreNoOps(t *testing.T) {
	ctx := context.Background()
	s := New(2)
	if s.Undo(ctx) || s.Redo(ctx) {
		t.Fatal("expected no-ops on empty stacks")
	}

	edit(t, s, 0, "a")
	if s.Redo(ctx) {
		t.Fatal("redo should be empty")
	}
	if s.UndoDepth() != 1 {
		t.Fatalf("empty redo changed undo depth to %d", s.UndoDepth())
	}
	assertContent(t, s, []string{"a", ""})

	s.Undo(ctx)
	if s.Undo(ctx) {
		t.Fatal("undo stack should be exhausted")
	}
	if s.RedoDepth() != 1 {
		t.Fatalf("empty undo changed redo depth to %d", s.RedoDepth())
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(4)
	values := []struct {
		index int
		text  string
	}{{0, "a"}, {1, "b"}, {0, "c"}, {3, "d"}, {2, "e"}}
	for _, v := range values {
		edit(t, s, v.index, v.text)
	}

	for s.CanUndo() {
		before := s.Content()
		s.Undo(ctx)
		s.Redo(ctx)
		assertContent(t, s, before)
		s.Undo(ctx)
	}
	assertContent(t, s, []string{"", "", "", ""})

	for s.CanRedo() {
		before := s.Content()
		s.Redo(ctx)
		s.Undo(ctx)
		assertContent(t, s, before)
		s.Redo(ctx)
	}
	assertContent(t, s, []string{"c", "b", "e", "d"})
}

func TestSnapshotsAreIndependentCopies(t *testing.T) {
	ctx := context.Background()
	s := New(2)
	edit(t, s, 0, "one")
	edit(t, s, 0, "two")
	s.Undo(ctx)
	edit(t, s, 1, "three")
	s.Undo(ctx)
	assertContent(t, s, []string{"one", ""})
	s.Undo(ctx)
	assertContent(t, s, []string{"", ""})
}

func TestSetFormatWithoutEditIsNoOp(t *testing.T) {
	s := New(2)
	if err := s.SetAlignment(AlignRight); !errors.Is(err, ErrNoActiveEdit) {
		t.Fatalf("SetAlignment() error = %v, want ErrNoActiveEdit", err)
	}
	_, format, _ := s.Cell(0)
	if format != DefaultFormat() {
		t.Fatalf("format changed: %+v", format)
	}
}

func TestSetFormatIsNotUndoableOrPersisted(t *testing.T) {
	p := &recordingPersister{}
	s := Open(context.Background(), Options{Capacity: 3, Persister: p})
	if err := s.Select(1); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAlignment(AlignCenter); err != nil {
		t.Fatalf("SetAlignment() error = %v", err)
	}
	if err := s.SetFontSize(FontXLarge); err != nil {
		t.Fatalf("SetFontSize() error = %v", err)
	}
	if err := s.SetTextColor("#ff0000"); err != nil {
		t.Fatalf("SetTextColor() error = %v", err)
	}
	if err := s.SetBackgroundColor("#00ff00"); err != nil {
		t.Fatalf("SetBackgroundColor() error = %v", err)
	}

	_, format, _ := s.Cell(1)
	want := Format{Alignment: AlignCenter, FontSize: FontXLarge, TextColor: "#ff0000", BackgroundColor: "#00ff00"}
	if format != want {
		t.Fatalf("format = %+v, want %+v", format, want)
	}
	if s.CanUndo() {
		t.Fatal("format change entered history")
	}
	if len(p.saves) != 0 {
		t.Fatalf("format change persisted %d times", len(p.saves))
	}
}

func TestSetFormatRejectsInvalidValues(t *testing.T) {
	s := New(1)
	_ = s.Select(0)
	if err := s.SetTextColor("red"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("SetTextColor(red) error = %v", err)
	}
	if err := s.SetAlignment(Alignment("justify")); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("SetAlignment(justify) error = %v", err)
	}
	if err := s.SetFontSize(FontSize("huge")); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("SetFontSize(huge) error = %v", err)
	}
}

func TestMergeWithoutSelection(t *testing.T) {
	s := New(3)
	if _, err := s.Merge(context.Background()); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("Merge() error = %v, want ErrEmptySelection", err)
	}
}

func TestMergeClearsCoveredCellsAndUnmergeIsLossy(t *testing.T) {
	ctx := context.Background()
	s := New(5)
	edit(t, s, 1, "x")
	edit(t, s, 2, "y")
	edit(t, s, 3, "z")
	// Selection: anchor 1, latest click 3.
	if _, err := s.Merge(ctx); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	assertContent(t, s, []string{"", "x", "", "", ""})

	r, ok := s.RangeCovering(2)
	if !ok || r != (Range{Start: 1, End: 3}) {
		t.Fatalf("RangeCovering(2) = %+v, %v", r, ok)
	}

	removed, ok, err := s.Unmerge(3)
	if err != nil || !ok || removed != r {
		t.Fatalf("Unmerge(3) = %+v, %v, %v", removed, ok, err)
	}
	if len(s.Merges()) != 0 {
		t.Fatalf("merges = %+v, want none", s.Merges())
	}
	// Content cleared by the merge is not restored.
	assertContent(t, s, []string{"", "x", "", "", ""})
}

func TestMergeDoesNotEnterHistory(t *testing.T) {
	ctx := context.Background()
	s := New(3)
	edit(t, s, 0, "a")
	edit(t, s, 1, "b")
	depth := s.UndoDepth()
	if _, err := s.Merge(ctx); err != nil {
		t.Fatal(err)
	}
	if s.UndoDepth() != depth {
		t.Fatalf("merge changed undo depth from %d to %d", depth, s.UndoDepth())
	}
}

func TestMergeRejectsReversedSelection(t *testing.T) {
	s := New(5)
	_ = s.Select(3)
	_ = s.Select(1)
	if _, err := s.Merge(context.Background()); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("Merge() error = %v, want ErrInvalidRange", err)
	}
	if s.Selection().Active {
		t.Fatal("selection should be reset after a rejected merge")
	}
	if len(s.Merges()) != 0 {
		t.Fatal("rejected merge stored a range")
	}
}

func TestMergeRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	s := New(6)
	_ = s.Select(0)
	_ = s.Select(2)
	if _, err := s.Merge(ctx); err != nil {
		t.Fatal(err)
	}
	_ = s.Select(2)
	_ = s.Select(4)
	if _, err := s.Merge(ctx); !errors.Is(err, ErrRangeOverlap) {
		t.Fatalf("Merge() error = %v, want ErrRangeOverlap", err)
	}
	if len(s.Merges()) != 1 {
		t.Fatalf("merges = %+v", s.Merges())
	}
}

func TestSingleCellMerge(t *testing.T) {
	s := New(3)
	edit(t, s, 1, "solo")
	r, err := s.Merge(context.Background())
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if r.Span() != 1 {
		t.Fatalf("span = %d", r.Span())
	}
	assertContent(t, s, []string{"", "solo", ""})
}

func TestUnmergeOutsideAnyRange(t *testing.T) {
	s := New(3)
	if _, ok, err := s.Unmerge(1); err != nil || ok {
		t.Fatalf("Unmerge(1) = %v, %v; want false, nil", ok, err)
	}
	if _, _, err := s.Unmerge(9); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("Unmerge(9) error = %v", err)
	}
}

func TestOpenLoadsPersistedContent(t *testing.T) {
	p := &recordingPersister{loaded: []string{"a", "b", "c"}, ok: true}
	s := Open(context.Background(), Options{Capacity: 3, Persister: p})
	assertContent(t, s, []string{"a", "b", "c"})
	_, format, _ := s.Cell(2)
	if format != DefaultFormat() {
		t.Fatalf("format should start at defaults, got %+v", format)
	}
}

func TestOpenIgnoresWrongCapacity(t *testing.T) {
	p := &recordingPersister{loaded: []string{"a"}, ok: true}
	s := Open(context.Background(), Options{Capacity: 3, Persister: p})
	assertContent(t, s, []string{"", "", ""})
}

func TestContentMutationsPersist(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{}
	s := Open(ctx, Options{Capacity: 3, Persister: p})

	edit(t, s, 0, "a")   // save 1
	edit(t, s, 0, "a")   // unchanged, no save
	edit(t, s, 1, "b")   // save 2
	s.Undo(ctx)          // save 3
	s.Redo(ctx)          // save 4
	_, _ = s.Merge(ctx)  // selection {0,1}: save 5
	_ = s.Select(2)      // selection change, no save
	s.UpdateDraft("zz")  // draft, no save

	if len(p.saves) != 5 {
		t.Fatalf("saves = %d, want 5", len(p.saves))
	}
	if !reflect.DeepEqual(p.saves[4], []string{"a", "", ""}) {
		t.Fatalf("last save = %q", p.saves[4])
	}

	p.saves[4][0] = "mutated"
	if s.Content()[0] != "a" {
		t.Fatal("persisted slice aliases sheet content")
	}
}

func TestHistoryLimit(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, Options{Capacity: 1, HistoryLimit: 2})
	edit(t, s, 0, "1")
	edit(t, s, 0, "2")
	edit(t, s, 0, "3")
	if s.UndoDepth() != 2 {
		t.Fatalf("undo depth = %d, want 2", s.UndoDepth())
	}
	s.Undo(ctx)
	s.Undo(ctx)
	assertContent(t, s, []string{"1"})
	if s.Undo(ctx) {
		t.Fatal("oldest entry should have been dropped")
	}
}
