package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hollis-dev/deskmate/internal/config"
	"github.com/hollis-dev/deskmate/internal/contextstore"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent task history",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.RecentTasks(historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no task history yet")
			return nil
		}
		for _, e := range entries {
			mark := color.GreenString("✓")
			if !e.Success {
				mark = color.RedString("✗")
			}
			fmt.Printf("%s %s  %-12s %5.1fs  %s\n",
				mark,
				e.Timestamp.Local().Format("2006-01-02 15:04"),
				e.Category,
				e.ExecutionTimeSeconds,
				e.Command)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
}

// openStore opens the configured context store without the full pipeline.
func openStore() (*contextstore.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path := cfg.Store.Path
	if path == "" {
		path = contextstore.DefaultPath()
	}
	store, err := contextstore.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
