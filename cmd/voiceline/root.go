package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	vlog "github.com/nao1215/voiceline/internal/log"
)

// NewRootCmd creates the root command for voiceline.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voiceline",
		Short: "Collect Valorant agent voice lines into spreadsheets",
		Long: `voiceline fetches agent quote pages from the Valorant wiki, pairs every
voice line with its audio clip, and writes one two-column tab per agent
to a Google spreadsheet or a local xlsx workbook.

A quote that already appeared earlier in the same run is written only once.
Every run is recorded locally so that later runs can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a bool flag from the command or its root.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// setupLogger creates the redacting logger for a command and makes it the
// default. Logs go to stderr so reports on stdout stay clean.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	logger := vlog.New(cmd.ErrOrStderr(), vlog.Options{
		Verbose: getBoolFlag(cmd, "verbose"),
		JSON:    getBoolFlag(cmd, "log-json"),
	})
	slog.SetDefault(logger)
	return logger
}
