package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "deskmate",
	Short: "Natural-language desktop assistant",
	Long: `Deskmate turns natural-language commands into desktop task plans and
executes them step by step.

With no arguments, launches an interactive session where you type commands
and watch them execute.

Core capabilities:
- Parses commands into structured multi-step tasks
- Plans with an LLM when configured, deterministic rules otherwise
- Gates risky tasks behind a confirmation prompt
- Learns preferences and patterns from past tasks`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
