package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"spreadsheet/api/internal/config"
	"spreadsheet/api/internal/sheet"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a sheet as a grid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		s, found, err := loadSheet(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		view := s.View(query, cfg.Columns)
		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		if !found {
			fmt.Fprintf(cmd.ErrOrStderr(), "sheet %s has no stored content\n", sheetID)
		}
		return printGrid(out, view)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// printGrid writes non-empty rows, prefixed by their row number.
func printGrid(out io.Writer, view sheet.View) error {
	columns := view.Columns
	rows := make(map[int][]string)
	for _, cell := range view.Cells {
		row, ok := rows[cell.Row]
		if !ok {
			row = make([]string, columns)
			rows[cell.Row] = row
		}
		row[cell.Column] = cell.Content
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	printed := 0
	for r := 0; r*columns < view.Capacity; r++ {
		row := rows[r]
		if strings.Join(row, "") == "" {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\n", r+1, strings.Join(row, "\t"))
		printed++
	}
	if printed == 0 {
		fmt.Fprintln(tw, "(empty)")
	}
	return tw.Flush()
}
