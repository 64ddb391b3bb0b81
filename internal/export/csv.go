package export

import (
	"regexp"
	"strings"
)

const (
	CSVFilename = "spreadsheet.csv"
	CSVMimeType = "text/csv;charset=utf-8"
)

var separatorRun = regexp.MustCompile(`,{2,}`)

// EncodeCSV joins cells with commas and collapses every run of two or more
// commas into one. Cells are not quoted, so commas inside a cell are
// indistinguishable from separators.
func EncodeCSV(content []string) []byte {
	return []byte(separatorRun.ReplaceAllString(strings.Join(content, ","), ","))
}

func CSV(content []string) *Result {
	return &Result{
		Data:     EncodeCSV(content),
		Filename: CSVFilename,
		MimeType: CSVMimeType,
	}
}
