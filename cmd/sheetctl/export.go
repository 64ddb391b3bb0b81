package main

import (
	"fmt"
	"os"

	"spreadsheet/api/internal/config"
	"spreadsheet/api/internal/export"
	"spreadsheet/api/internal/search"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a sheet as csv, xlsx or pdf",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		cfg := config.Load()
		s, _, err := loadSheet(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		title := sheetID
		if sheetID == "default" {
			title = "spreadsheet"
		}
		result, err := export.Export(cmd.Context(), export.Request{
			Format:  format,
			Title:   title,
			Content: search.Filter(s.Content(), query),
			View:    s.View(query, cfg.Columns),
		})
		if err != nil {
			return err
		}

		if exportOut == "-" || (exportOut == "" && format == export.FormatCSV) {
			_, err := cmd.OutOrStdout().Write(result.Data)
			return err
		}
		path := exportOut
		if path == "" {
			path = result.Filename
		}
		if err := os.WriteFile(path, result.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", path, len(result.Data))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: csv, xlsx or pdf")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file, - for stdout (csv defaults to stdout)")
	rootCmd.AddCommand(exportCmd)
}
