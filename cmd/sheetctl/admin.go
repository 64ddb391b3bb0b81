package main

import (
	"bufio"
	"fmt"
	"strings"

	"spreadsheet/api/internal/auth"
	"spreadsheet/api/internal/config"
	"spreadsheet/api/internal/store"

	"github.com/spf13/cobra"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [key]",
	Short: "Print the bcrypt hash to use as SHEET_EDITOR_KEY_HASH",
	Long:  "Hash an editor key. Without an argument the key is read from the first line of stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := ""
		if len(args) == 1 {
			key = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key: %w", err)
			}
			key = strings.TrimRight(line, "\r\n")
		}
		hash, err := auth.HashKey(key, 0)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:       "migrate up|down",
	Short:     "Apply or revert the postgres schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := store.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if args[0] == "down" {
			err = store.RevertMigrations(cmd.Context(), db, cfg.MigrationsDir)
		} else {
			err = store.ApplyMigrations(cmd.Context(), db, cfg.MigrationsDir)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "migrations %s: done\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashKeyCmd, migrateCmd)
}
