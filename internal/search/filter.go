package search

import "strings"

// Matches reports whether cell contains term as a literal, case-sensitive
// substring. An empty term matches nothing.
func Matches(cell, term string) bool {
	return term != "" && strings.Contains(cell, term)
}

// Filter maps content to a display view: with an empty term the view is the
// content itself, otherwise non-matching cells are blanked. Every index is
// kept. content is never modified.
func Filter(content []string, term string) []string {
	view := make([]string, len(content))
	if term == "" {
		copy(view, content)
		return view
	}
	for i, cell := range content {
		if strings.Contains(cell, term) {
			view[i] = cell
		}
	}
	return view
}
