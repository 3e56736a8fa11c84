package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hollis-dev/deskmate/internal/config"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Apply the retention policy to the context store",
	Long: `Prunes the context store:
  - Conversation turns older than the retention window
  - Failed tasks older than the retention window
  - Patterns that never took hold (frequency < 3 and stale)

Successful task history is kept regardless of age.

Examples:
  deskmate cleanup             # Use the configured retention window
  deskmate cleanup --days 30   # Override the window`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		days := cleanupDays
		if days <= 0 {
			days = cfg.Store.RetentionDays
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Cleanup(days); err != nil {
			return err
		}
		fmt.Printf("%s cleaned entries older than %d days\n", color.GreenString("✓"), days)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "Retention window in days (0 = configured value)")
}
