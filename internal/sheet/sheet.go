// Package sheet implements the cell-grid state machine: content and
// formatting, merge ranges, undo/redo history and the click/edit cycle.
//
// A Sheet is not safe for concurrent use. Callers serialize access, the
// way a browser event loop serializes user actions.
package sheet

import (
	"context"
	"strings"
)

// Persister is the load-on-open / save-on-change contract. Save is fire
// and forget: implementations swallow and log their own failures.
type Persister interface {
	Load(ctx context.Context) ([]string, bool)
	Save(ctx context.Context, content []string)
}

type nopPersister struct{}

func (nopPersister) Load(context.Context) ([]string, bool) { return nil, false }
func (nopPersister) Save(context.Context, []string)        {}

// Editing is the cell under keyboard edit and its uncommitted draft.
type Editing struct {
	Index  int
	Draft  string
	Active bool
}

type Options struct {
	Capacity     int
	HistoryLimit int
	Persister    Persister
}

type Sheet struct {
	grid      *Grid
	history   *History
	merges    *Merges
	selection Selection
	editing   Editing
	persister Persister
}

// New returns a blank, unpersisted sheet.
func New(capacity int) *Sheet {
	return Open(context.Background(), Options{Capacity: capacity})
}

// Open builds a sheet, loading content from the persister when it holds a
// well-formed sequence of the expected capacity. Formatting always starts
// at defaults.
func Open(ctx context.Context, opts Options) *Sheet {
	persister := opts.Persister
	if persister == nil {
		persister = nopPersister{}
	}
	s := &Sheet{
		grid:      NewGrid(opts.Capacity),
		history:   NewHistory(opts.HistoryLimit),
		merges:    &Merges{},
		persister: persister,
	}
	if content, ok := persister.Load(ctx); ok {
		s.grid.load(content)
	}
	return s
}

func (s *Sheet) Capacity() int { return s.grid.Capacity() }

// Select is the cell click: it opens index for editing with its stored
// content as the draft and starts or extends the merge selection.
func (s *Sheet) Select(index int) error {
	content, err := s.grid.Content(index)
	if err != nil {
		return err
	}
	s.editing = Editing{Index: index, Draft: content, Active: true}
	s.selection.extend(index)
	return nil
}

// UpdateDraft replaces the draft text.
func (s *Sheet) UpdateDraft(text string) {
	s.editing.Draft = text
}

// Commit writes the trimmed draft into the edited cell when it differs from
// the stored value, recording the prior content for undo. The edit is
// closed whether or not a write happened.
func (s *Sheet) Commit(ctx context.Context) (bool, error) {
	if !s.editing.Active {
		return false, ErrNoActiveEdit
	}
	index := s.editing.Index
	value := strings.TrimSpace(s.editing.Draft)
	s.editing = Editing{}

	current, err := s.grid.Content(index)
	if err != nil {
		return false, err
	}
	if value == current {
		return false, nil
	}
	s.history.RecordBeforeChange(s.grid.Snapshot())
	s.grid.write(index, value)
	s.save(ctx)
	return true, nil
}

// SetFormat applies patch to the cell under edit. Formatting is neither
// undoable nor persisted.
func (s *Sheet) SetFormat(patch FormatPatch) error {
	if !s.editing.Active {
		return ErrNoActiveEdit
	}
	if err := patch.validate(); err != nil {
		return err
	}
	if patch.empty() {
		return nil
	}
	s.grid.apply(s.editing.Index, patch)
	return nil
}

func (s *Sheet) SetAlignment(a Alignment) error {
	return s.SetFormat(FormatPatch{Alignment: &a})
}

func (s *Sheet) SetFontSize(size FontSize) error {
	return s.SetFormat(FormatPatch{FontSize: &size})
}

func (s *Sheet) SetTextColor(color string) error {
	return s.SetFormat(FormatPatch{TextColor: &color})
}

func (s *Sheet) SetBackgroundColor(color string) error {
	return s.SetFormat(FormatPatch{BackgroundColor: &color})
}

// Merge collapses the current selection into one range anchored at its
// start, clearing the content of every covered cell after the anchor. The
// selection is reset whether or not the merge is accepted.
func (s *Sheet) Merge(ctx context.Context) (Range, error) {
	if !s.selection.Active {
		return Range{}, ErrEmptySelection
	}
	r := Range{Start: s.selection.Start, End: s.selection.End}
	s.selection.reset()

	if err := s.merges.Add(r); err != nil {
		return Range{}, err
	}
	for i := r.Start + 1; i <= r.End; i++ {
		s.grid.write(i, "")
	}
	s.save(ctx)
	return r, nil
}

// Unmerge removes the range covering index. Content cleared by the merge
// stays cleared.
func (s *Sheet) Unmerge(index int) (Range, bool, error) {
	if err := s.grid.checkIndex(index); err != nil {
		return Range{}, false, err
	}
	r, ok := s.merges.Remove(index)
	return r, ok, nil
}

func (s *Sheet) RangeCovering(index int) (Range, bool) {
	return s.merges.RangeCovering(index)
}

// Undo restores the newest snapshot. It reports false when nothing happened.
func (s *Sheet) Undo(ctx context.Context) bool {
	previous, ok := s.history.Undo(s.grid.Snapshot())
	if !ok {
		return false
	}
	s.grid.restore(previous)
	s.save(ctx)
	return true
}

func (s *Sheet) Redo(ctx context.Context) bool {
	next, ok := s.history.Redo(s.grid.Snapshot())
	if !ok {
		return false
	}
	s.grid.restore(next)
	s.save(ctx)
	return true
}

func (s *Sheet) save(ctx context.Context) {
	s.persister.Save(ctx, s.grid.Contents())
}

// Content returns a copy of the content sequence.
func (s *Sheet) Content() []string { return s.grid.Contents() }

func (s *Sheet) Cell(index int) (string, Format, error) {
	content, err := s.grid.Content(index)
	if err != nil {
		return "", Format{}, err
	}
	format, _ := s.grid.Format(index)
	return content, format, nil
}

func (s *Sheet) Merges() []Range      { return s.merges.Ranges() }
func (s *Sheet) Selection() Selection { return s.selection }
func (s *Sheet) Editing() Editing     { return s.editing }
func (s *Sheet) CanUndo() bool        { return s.history.CanUndo() }
func (s *Sheet) CanRedo() bool        { return s.history.CanRedo() }
func (s *Sheet) CanMerge() bool       { return s.selection.Active }
func (s *Sheet) UndoDepth() int       { return s.history.UndoDepth() }
func (s *Sheet) RedoDepth() int       { return s.history.RedoDepth() }
