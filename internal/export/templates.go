package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"spreadsheet/api/internal/sheet"
)

//go:embed templates/*.html
var templateFS embed.FS

var gridTemplate = template.Must(template.New("grid.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
	"cellStyle": cellStyle,
}).ParseFS(templateFS, "templates/grid.html"))

// TemplateData holds data for grid template rendering
type TemplateData struct {
	Title       string
	Term        string
	Capacity    int
	Landscape   bool
	GeneratedAt time.Time
	Rows        [][]sheet.CellView
}

// cellStyle renders a cell format as inline CSS. Format values are
// validated on write, so the result is safe to emit unescaped.
func cellStyle(format sheet.Format) template.CSS {
	return template.CSS(fmt.Sprintf(
		"text-align: %s; font-size: %gpt; color: %s; background-color: %s;",
		format.Alignment, format.FontSize.Points(), format.TextColor, format.BackgroundColor,
	))
}

// RenderGridHTML renders the grid template for a view.
func RenderGridHTML(view sheet.View, title string) (string, error) {
	if title == "" {
		title = "Spreadsheet"
	}
	data := TemplateData{
		Title:       title,
		Term:        view.Term,
		Capacity:    view.Capacity,
		Landscape:   layoutFor(view.Columns).Landscape,
		GeneratedAt: time.Now(),
		Rows:        gridRows(view),
	}
	var buf bytes.Buffer
	if err := gridTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
