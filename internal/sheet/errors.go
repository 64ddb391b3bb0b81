package sheet

import "errors"

var (
	// ErrInvalidIndex reports an index outside [0, capacity).
	ErrInvalidIndex = errors.New("invalid cell index")
	// ErrNoActiveEdit reports a commit or format change with no cell under edit.
	// Callers treat it as a no-op.
	ErrNoActiveEdit = errors.New("no active edit")
	// ErrEmptySelection reports a merge attempted without a selection span.
	ErrEmptySelection = errors.New("empty selection")
	// ErrInvalidRange reports a merge whose start lies after its end.
	ErrInvalidRange = errors.New("invalid merge range")
	// ErrRangeOverlap reports a merge that would share cells with an existing range.
	ErrRangeOverlap = errors.New("merge range overlaps existing range")
	// ErrInvalidFormat reports an unknown alignment, font size or color value.
	ErrInvalidFormat = errors.New("invalid format value")
)
