package sheet

import "fmt"

// Grid owns the flat content sequence and the four parallel format
// sequences. All five always have the same length.
type Grid struct {
	content         []string
	alignment       []Alignment
	fontSize        []FontSize
	textColor       []string
	backgroundColor []string
}

// NewGrid returns capacity blank cells with default formatting.
func NewGrid(capacity int) *Grid {
	if capacity < 0 {
		capacity = 0
	}
	g := &Grid{
		content:         make([]string, capacity),
		alignment:       make([]Alignment, capacity),
		fontSize:        make([]FontSize, capacity),
		textColor:       make([]string, capacity),
		backgroundColor: make([]string, capacity),
	}
	for i := 0; i < capacity; i++ {
		g.alignment[i] = AlignLeft
		g.fontSize[i] = FontBase
		g.textColor[i] = DefaultTextColor
		g.backgroundColor[i] = DefaultBackgroundColor
	}
	return g
}

func (g *Grid) Capacity() int {
	return len(g.content)
}

func (g *Grid) checkIndex(index int) error {
	if index < 0 || index >= len(g.content) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidIndex, index, len(g.content))
	}
	return nil
}

func (g *Grid) Content(index int) (string, error) {
	if err := g.checkIndex(index); err != nil {
		return "", err
	}
	return g.content[index], nil
}

func (g *Grid) Format(index int) (Format, error) {
	if err := g.checkIndex(index); err != nil {
		return Format{}, err
	}
	return Format{
		Alignment:       g.alignment[index],
		FontSize:        g.fontSize[index],
		TextColor:       g.textColor[index],
		BackgroundColor: g.backgroundColor[index],
	}, nil
}

// Contents returns a copy of the content sequence.
func (g *Grid) Contents() []string {
	out := make([]string, len(g.content))
	copy(out, g.content)
	return out
}

func (g *Grid) Snapshot() Snapshot {
	return newSnapshot(g.content)
}

// restore replaces the content sequence with a snapshot of equal length.
func (g *Grid) restore(snapshot Snapshot) {
	copy(g.content, snapshot.cells)
}

// load replaces content with a persisted sequence. Formatting is untouched.
func (g *Grid) load(content []string) bool {
	if len(content) != len(g.content) {
		return false
	}
	copy(g.content, content)
	return true
}

func (g *Grid) write(index int, value string) {
	g.content[index] = value
}

func (g *Grid) apply(index int, patch FormatPatch) {
	if patch.Alignment != nil {
		g.alignment[index] = *patch.Alignment
	}
	if patch.FontSize != nil {
		g.fontSize[index] = *patch.FontSize
	}
	if patch.TextColor != nil {
		g.textColor[index] = *patch.TextColor
	}
	if patch.BackgroundColor != nil {
		g.backgroundColor[index] = *patch.BackgroundColor
	}
}

// FormatPatch carries the attributes a format control changes; nil fields
// are left alone.
type FormatPatch struct {
	Alignment       *Alignment
	FontSize        *FontSize
	TextColor       *string
	BackgroundColor *string
}

func (p FormatPatch) validate() error {
	if p.Alignment != nil && !p.Alignment.valid() {
		return fmt.Errorf("%w: alignment %q", ErrInvalidFormat, *p.Alignment)
	}
	if p.FontSize != nil && !p.FontSize.valid() {
		return fmt.Errorf("%w: font size %q", ErrInvalidFormat, *p.FontSize)
	}
	if p.TextColor != nil && !hexColorPattern.MatchString(*p.TextColor) {
		return fmt.Errorf("%w: text color %q", ErrInvalidFormat, *p.TextColor)
	}
	if p.BackgroundColor != nil && !hexColorPattern.MatchString(*p.BackgroundColor) {
		return fmt.Errorf("%w: background color %q", ErrInvalidFormat, *p.BackgroundColor)
	}
	return nil
}

func (p FormatPatch) empty() bool {
	return p.Alignment == nil && p.FontSize == nil && p.TextColor == nil && p.BackgroundColor == nil
}
