package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	sheetID    string
	query      string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "sheetctl",
	Short: "Inspect and export stored spreadsheets",
	Long: `Read sheets straight from the configured storage backend.

The backend is chosen with the same environment as the API server
(SHEET_BACKEND, REDIS_URL, DATABASE_URL, S3_*, SHEET_REPOS_DIR).

Examples:
  sheetctl show
  sheetctl show --sheet budget --query total
  sheetctl export --format xlsx --out budget.xlsx --sheet budget
  sheetctl hash-key`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sheetID, "sheet", "default", "Sheet id to read")
	rootCmd.PersistentFlags().StringVarP(&query, "query", "q", "", "Only keep cells containing this text")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output raw JSON instead of human-formatted summaries")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
