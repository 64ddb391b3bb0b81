package export

import (
	"fmt"
	"strings"

	"spreadsheet/api/internal/sheet"

	"github.com/xuri/excelize/v2"
)

const (
	XLSXMimeType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	xlsxSheetName = "Sheet1"
)

// mergeCell is a merged area in A1 notation.
type mergeCell struct {
	TopLeftCell     string
	BottomRightCell string
}

type styledCell struct {
	Ref string
	excelize.Cell
}

// styledRow is one worksheet row ready to be written.
type styledRow struct {
	Cells      []styledCell
	MergeCells []mergeCell
}

// XLSX writes the view as a single worksheet, one sheet row per grid row,
// keeping alignment, font size, colors and merges.
func XLSX(view sheet.View, title string) (*Result, error) {
	f := excelize.NewFile()
	defer f.Close()

	styles := make(map[sheet.Format]int)
	styleFor := func(format sheet.Format) (int, error) {
		if id, ok := styles[format]; ok {
			return id, nil
		}
		id, err := f.NewStyle(xlsxStyle(format))
		if err != nil {
			return 0, fmt.Errorf("create style: %w", err)
		}
		styles[format] = id
		return id, nil
	}

	rows, err := buildRows(view, styleFor)
	if err != nil {
		return nil, err
	}
	for r, row := range rows {
		for _, cell := range row.Cells {
			ref := cell.Ref
			if err := f.SetCellStr(xlsxSheetName, ref, fmt.Sprint(cell.Value)); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", ref, err)
			}
			if err := f.SetCellStyle(xlsxSheetName, ref, ref, cell.StyleID); err != nil {
				return nil, fmt.Errorf("style cell %s: %w", ref, err)
			}
		}
		for _, merge := range row.MergeCells {
			if err := f.MergeCell(xlsxSheetName, merge.TopLeftCell, merge.BottomRightCell); err != nil {
				return nil, fmt.Errorf("merge row %d: %w", r+1, err)
			}
		}
	}

	name := sanitizeFilename(title)
	if len(name) > 31 {
		name = name[:31]
	}
	if err := f.SetSheetName(xlsxSheetName, name); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(title) + ".xlsx",
		MimeType: XLSXMimeType,
	}, nil
}

func buildRows(view sheet.View, styleFor func(sheet.Format) (int, error)) ([]styledRow, error) {
	grid := gridRows(view)
	rows := make([]styledRow, len(grid))
	for r, cells := range grid {
		for _, cell := range cells {
			styleID, err := styleFor(cell.Format)
			if err != nil {
				return nil, err
			}
			ref, err := excelize.CoordinatesToCellName(cell.Column+1, cell.Row+1)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %w", cell.Index, err)
			}
			rows[r].Cells = append(rows[r].Cells, styledCell{
				Ref:  ref,
				Cell: excelize.Cell{StyleID: styleID, Value: cell.Content},
			})
			if cell.Span > 1 {
				end, err := excelize.CoordinatesToCellName(cell.Column+cell.Span, cell.Row+1)
				if err != nil {
					return nil, fmt.Errorf("cell %d: %w", cell.Index, err)
				}
				rows[r].MergeCells = append(rows[r].MergeCells, mergeCell{TopLeftCell: ref, BottomRightCell: end})
			}
		}
	}
	return rows, nil
}

func xlsxStyle(format sheet.Format) *excelize.Style {
	return &excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: string(format.Alignment)},
		Font: &excelize.Font{
			Size:  format.FontSize.Points(),
			Color: strings.TrimPrefix(format.TextColor, "#"),
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{strings.TrimPrefix(format.BackgroundColor, "#")},
		},
	}
}
