package sheet

import "fmt"

// Range is an inclusive span of cell indices shown as one cell anchored at Start.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Contains(index int) bool {
	return index >= r.Start && index <= r.End
}

func (r Range) Span() int {
	return r.End - r.Start + 1
}

func (r Range) overlaps(other Range) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// Selection tracks the first and most recent clicked cell for the next merge.
type Selection struct {
	Start  int
	End    int
	Active bool
}

func (s *Selection) extend(index int) {
	if !s.Active {
		*s = Selection{Start: index, End: index, Active: true}
		return
	}
	s.End = index
}

func (s *Selection) reset() {
	*s = Selection{}
}

// Merges holds the merge-range list. No index belongs to two ranges.
type Merges struct {
	ranges []Range
}

func (m *Merges) Add(r Range) error {
	if r.Start > r.End {
		return fmt.Errorf("%w: start %d after end %d", ErrInvalidRange, r.Start, r.End)
	}
	for _, existing := range m.ranges {
		if existing.overlaps(r) {
			return fmt.Errorf("%w: {%d,%d} and {%d,%d}", ErrRangeOverlap, r.Start, r.End, existing.Start, existing.End)
		}
	}
	m.ranges = append(m.ranges, r)
	return nil
}

// Remove drops the range covering index and reports it.
func (m *Merges) Remove(index int) (Range, bool) {
	for i, r := range m.ranges {
		if r.Contains(index) {
			m.ranges = append(m.ranges[:i:i], m.ranges[i+1:]...)
			return r, true
		}
	}
	return Range{}, false
}

func (m *Merges) RangeCovering(index int) (Range, bool) {
	for _, r := range m.ranges {
		if r.Contains(index) {
			return r, true
		}
	}
	return Range{}, false
}

func (m *Merges) Ranges() []Range {
	out := make([]Range, len(m.ranges))
	copy(out, m.ranges)
	return out
}

func (m *Merges) Len() int {
	return len(m.ranges)
}
