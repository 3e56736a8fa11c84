package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [command...]",
	Short: "Execute a single natural-language command",
	Long: `Parses one natural-language command into a task plan and executes it,
streaming step events to the terminal.

Examples:
  deskmate run take a screenshot
  deskmate run "open notepad and write an article about space"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, _, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		defer log.Sync()

		ok, err := runOne(a, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if !ok {
			// Failure detail was already streamed; exit nonzero.
			fmt.Fprintln(os.Stderr, "task failed")
			os.Exit(1)
		}
		return nil
	},
}
