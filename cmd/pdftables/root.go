package main

import (
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/local/pdftables/internal/config"
	logpkg "github.com/local/pdftables/internal/logger"
	"github.com/local/pdftables/internal/tables"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pdftables",
	Short: "Extract tables from PDF files into CSV, Excel, JSON or text",
	Long: `pdftables reconstructs tables from the positioned text of PDF pages,
infers their structure (title, header row, sequential ids) and writes them
in the requested format. Documents without usable tables are written as
paginated plain text.

The same engine backs the HTTP service in cmd/app.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&envFile, "env", ".env", "optional .env file with TABLES_* overrides",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "warn", "log level: debug, info, warn or error",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return logpkg.Init(logpkg.Options{Level: logLevel, Pretty: true, Console: os.Stderr, Service: "pdftables-cli"})
	}

	rootCmd.AddCommand(convertCmd, analyzeCmd, probeCmd)
}

// analyzer builds the structure analyzer from TABLES_* settings.
func analyzer() *tables.Analyzer {
	c := cfgpkg.Load(envFile).Tables
	return tables.New(tables.Options{
		HeaderMinScore:           c.HeaderMinScore,
		HeaderCellLookahead:      c.HeaderCellLookahead,
		SequenceLookahead:        c.SequenceLookahead,
		MinSequenceLength:        c.MinSequenceLength,
		ValidityMinRows:          c.ValidityMinRows,
		ValidityMinColumns:       c.ValidityMinColumns,
		ValidityMultiColumnRatio: c.ValidityMultiColumnRatio,
		TitleMinLength:           c.TitleMinLength,
	})
}
