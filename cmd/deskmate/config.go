package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollis-dev/deskmate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		fmt.Printf("config file:          %s\n", config.GetUserConfigPath())
		if p := config.GetProjectConfigPath(); p != "" {
			fmt.Printf("project override:     %s\n", p)
		}
		fmt.Printf("llm.provider:         %s\n", cfg.LLM.Provider)
		fmt.Printf("llm.api_key:          %s\n", maskKey(cfg.LLM.APIKey))
		if cfg.LLM.Model != "" {
			fmt.Printf("llm.model:            %s\n", cfg.LLM.Model)
		}
		if cfg.LLM.BaseURL != "" {
			fmt.Printf("llm.base_url:         %s\n", cfg.LLM.BaseURL)
		}
		fmt.Printf("require_confirmation: %t\n", cfg.Execution.RequireConfirmation)
		fmt.Printf("confirmation_timeout: %s\n", cfg.Execution.ConfirmationTimeout)
		fmt.Printf("capabilities:         %v\n", cfg.Execution.Capabilities)
		fmt.Printf("store.retention_days: %d\n", cfg.Store.RetentionDays)
		fmt.Printf("document_format:      %s\n", cfg.Defaults.DocumentFormat)
		fmt.Printf("log.level:            %s\n", cfg.Log.Level)
		return nil
	},
}

// maskKey hides all but the edges of an API key for display.
func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
