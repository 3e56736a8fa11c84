// Package config handles configuration loading and management for Deskmate.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Deskmate.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Store     StoreConfig     `mapstructure:"store"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Log       LogConfig       `mapstructure:"log"`
}

// LLMConfig holds language-model provider settings.
type LLMConfig struct {
	// Provider selects the task-generation backend: gemini, anthropic,
	// openai, ollama, or none.
	Provider string `mapstructure:"provider"`
	// APIKey is the provider API key. ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Model overrides the provider's default model.
	Model string `mapstructure:"model"`
	// BaseURL overrides the provider endpoint (openai, ollama).
	BaseURL string `mapstructure:"base_url"`
	// UseAWSBedrock routes Anthropic calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
}

// ExecutionConfig holds executor settings.
type ExecutionConfig struct {
	// RequireConfirmation gates risky tasks behind user approval.
	RequireConfirmation bool `mapstructure:"require_confirmation"`
	// ConfirmationTimeout bounds how long the confirmation gate waits.
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	// Capabilities lists context requirements the host environment satisfies.
	Capabilities []string `mapstructure:"capabilities"`
}

// StoreConfig holds context-store settings.
type StoreConfig struct {
	// Path is the SQLite database location. Empty means the default
	// XDG data path.
	Path string `mapstructure:"path"`
	// RetentionDays controls the cleanup window.
	RetentionDays int `mapstructure:"retention_days"`
}

// DefaultsConfig holds per-task default values.
type DefaultsConfig struct {
	// DocumentFormat is the preferred document format (docx, pdf, txt).
	DocumentFormat string `mapstructure:"document_format"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `mapstructure:"level"`
	// File is an optional log file path; empty logs to stderr only.
	File string `mapstructure:"file"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (DESKMATE_*, provider API keys)
// 2. Project config (.deskmate.yaml in current directory or parent)
// 3. User config (~/.config/deskmate/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("DESKMATE")

	v.BindEnv("llm.provider", "DESKMATE_LLM_PROVIDER")
	v.BindEnv("llm.api_key", "DESKMATE_LLM_API_KEY")
	v.BindEnv("llm.model", "DESKMATE_LLM_MODEL")
	v.BindEnv("store.path", "DESKMATE_STORE_PATH")
	v.BindEnv("log.level", "DESKMATE_LOG_LEVEL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(cfg.LLM.Provider)
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("llm.provider", cfg.LLM.Provider)
	v.Set("llm.api_key", cfg.LLM.APIKey)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("llm.base_url", cfg.LLM.BaseURL)
	v.Set("llm.use_aws_bedrock", cfg.LLM.UseAWSBedrock)
	v.Set("llm.aws_region", cfg.LLM.AWSRegion)
	v.Set("execution.require_confirmation", cfg.Execution.RequireConfirmation)
	v.Set("execution.confirmation_timeout", cfg.Execution.ConfirmationTimeout.String())
	v.Set("execution.capabilities", cfg.Execution.Capabilities)
	v.Set("store.path", cfg.Store.Path)
	v.Set("store.retention_days", cfg.Store.RetentionDays)
	v.Set("defaults.document_format", cfg.Defaults.DocumentFormat)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.use_aws_bedrock", false)
	v.SetDefault("llm.aws_region", "")

	v.SetDefault("execution.require_confirmation", true)
	v.SetDefault("execution.confirmation_timeout", "30s")
	v.SetDefault("execution.capabilities", []string{
		"current_screen", "internet_access", "text_editor_available", "file_system_access",
	})

	v.SetDefault("store.path", "")
	v.SetDefault("store.retention_days", 90)

	v.SetDefault("defaults.document_format", "docx")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// getUserConfigDir returns the user config directory, honoring XDG_CONFIG_HOME.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "deskmate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "deskmate")
	}
	return filepath.Join(home, ".config", "deskmate")
}

// findProjectConfig searches for .deskmate.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".deskmate.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// providerKeyFromEnv falls back to the provider's conventional key variable.
func providerKeyFromEnv(provider string) string {
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "gemini",
		},
		Execution: ExecutionConfig{
			RequireConfirmation: true,
			ConfirmationTimeout: 30 * time.Second,
			Capabilities: []string{
				"current_screen", "internet_access",
				"text_editor_available", "file_system_access",
			},
		},
		Store: StoreConfig{
			RetentionDays: 90,
		},
		Defaults: DefaultsConfig{
			DocumentFormat: "docx",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
