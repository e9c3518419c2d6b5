// Package main contains the sqlmimic command line front-end. It uses the
// cobra package for the cli implementation.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sqlmimic"
	"sqlmimic/internal/output"
	"sqlmimic/internal/seed"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sqlmimic",
		Short: "In-process MySQL emulator",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(replCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(seedFile, database string) (*sqlmimic.DB, error) {
	db := sqlmimic.New()
	if seedFile != "" {
		if err := seed.LoadFile(seedFile, db.Server()); err != nil {
			return nil, err
		}
	}
	if database != "" {
		if err := db.Use(database); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func runCmd() *cobra.Command {
	var seedFile string
	var database string
	var format string

	cmd := &cobra.Command{
		Use:   "run <script.sql> [more.sql...]",
		Short: "Execute SQL scripts against a seeded server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(seedFile, database)
			if err != nil {
				return err
			}
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read script: %w", err)
				}
				results, err := db.Exec(string(data))
				if err != nil {
					return err
				}
				for _, res := range results {
					formatted, err := formatter.FormatResult(res)
					if err != nil {
						return fmt.Errorf("failed to format output: %w", err)
					}
					fmt.Fprint(cmd.OutOrStdout(), formatted)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&seedFile, "seed", "s", "", "TOML seed file defining databases, tables, and rows")
	cmd.Flags().StringVarP(&database, "database", "d", "", "Current database (overrides the seed default)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, or csv")
	return cmd
}

func replCmd() *cobra.Command {
	var seedFile string
	var database string
	var format string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive SQL shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(seedFile, database)
			if err != nil {
				return err
			}
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			return repl(cmd.InOrStdin(), cmd.OutOrStdout(), db, formatter)
		},
	}

	cmd.Flags().StringVarP(&seedFile, "seed", "s", "", "TOML seed file defining databases, tables, and rows")
	cmd.Flags().StringVarP(&database, "database", "d", "", "Current database (overrides the seed default)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, or csv")
	return cmd
}

// repl reads ;-terminated statements and prints each result. Errors are
// reported and the loop continues, like the mysql client.
func repl(in io.Reader, out io.Writer, db *sqlmimic.DB, formatter output.Formatter) error {
	scanner := bufio.NewScanner(in)
	var buf strings.Builder
	fmt.Fprint(out, "mimic> ")
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')
		if !strings.Contains(line, ";") {
			fmt.Fprint(out, "    -> ")
			continue
		}

		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		if trimmed := strings.TrimRight(stmt, "; \n\t"); trimmed == "exit" || trimmed == "quit" {
			return nil
		}

		results, err := db.Exec(stmt)
		if err != nil {
			fmt.Fprintf(out, "ERROR: %v\n", err)
		} else {
			for _, res := range results {
				formatted, ferr := formatter.FormatResult(res)
				if ferr != nil {
					return ferr
				}
				fmt.Fprint(out, formatted)
			}
		}
		fmt.Fprint(out, "mimic> ")
	}
	return scanner.Err()
}
