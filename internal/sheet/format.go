package sheet

import (
	"fmt"
	"regexp"
	"strings"
)

type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

type FontSize string

const (
	FontBase   FontSize = "base"
	FontLarge  FontSize = "large"
	FontXLarge FontSize = "xlarge"
)

const (
	DefaultTextColor       = "#000000"
	DefaultBackgroundColor = "#ffffff"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Format is the presentation of a single cell.
type Format struct {
	Alignment       Alignment `json:"alignment"`
	FontSize        FontSize  `json:"fontSize"`
	TextColor       string    `json:"textColor"`
	BackgroundColor string    `json:"backgroundColor"`
}

func DefaultFormat() Format {
	return Format{
		Alignment:       AlignLeft,
		FontSize:        FontBase,
		TextColor:       DefaultTextColor,
		BackgroundColor: DefaultBackgroundColor,
	}
}

// ParseAlignment accepts the plain names and the "text-*" class names the
// browser shell emits.
func ParseAlignment(value string) (Alignment, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "text-") {
	case "left":
		return AlignLeft, nil
	case "center":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return "", fmt.Errorf("%w: alignment %q", ErrInvalidFormat, value)
}

func ParseFontSize(value string) (FontSize, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "text-") {
	case "base":
		return FontBase, nil
	case "large", "lg":
		return FontLarge, nil
	case "xlarge", "xl":
		return FontXLarge, nil
	}
	return "", fmt.Errorf("%w: font size %q", ErrInvalidFormat, value)
}

// ParseColor accepts "#rrggbb" and returns it lower-cased.
func ParseColor(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !hexColorPattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: color %q", ErrInvalidFormat, value)
	}
	return strings.ToLower(trimmed), nil
}

func (a Alignment) valid() bool {
	return a == AlignLeft || a == AlignCenter || a == AlignRight
}

func (f FontSize) valid() bool {
	return f == FontBase || f == FontLarge || f == FontXLarge
}

// Points maps a font size to the point size used by xlsx and pdf renderers.
func (f FontSize) Points() float64 {
	switch f {
	case FontLarge:
		return 14
	case FontXLarge:
		return 16
	default:
		return 11
	}
}
