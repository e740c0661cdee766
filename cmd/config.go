package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dhabedank/fin-advisor/internal/insight"
	"github.com/dhabedank/fin-advisor/internal/version"
)

// Flags shared by several commands.
var (
	configFile  string
	verbose     bool
	dataDir     string
	databaseURL string
	dataSource  string
	llmProvider string
	llmModel    string
	maxTokens   int

	insightConfig insight.Config
)

// configFileData is the layout of .fin-advisor.yaml.
type configFileData struct {
	LLM            string          `yaml:"llm,omitempty"`
	Model          string          `yaml:"model,omitempty"`
	MaxTokens      int             `yaml:"max_tokens,omitempty"`
	Addr           string          `yaml:"addr,omitempty"`
	DataDir        string          `yaml:"data_dir,omitempty"`
	DatabaseURL    string          `yaml:"database_url,omitempty"`
	Source         string          `yaml:"source,omitempty"`
	CacheTTL       time.Duration   `yaml:"cache_ttl,omitempty"`
	TokenTTL       time.Duration   `yaml:"token_ttl,omitempty"`
	HistoryTurns   int             `yaml:"history_turns,omitempty"`
	AllowedOrigins []string        `yaml:"allowed_origins,omitempty"`
	Insights       *insight.Config `yaml:"insights,omitempty"`
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "Config file (default: "+version.ConfigFileName+" in the working directory or home)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "data", "Directory holding the dataset CSV files")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL for the document store (default: $DATABASE_URL)")
	cmd.Flags().StringVar(&dataSource, "source", "csv", "Where profile datasets are read from (csv/db)")
}

func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&llmProvider, "llm", "l", "auto", "LLM provider (auto/anthropic-api/claude-cli/codex-cli/offline)")
	cmd.Flags().StringVarP(&llmModel, "model", "m", "", "Model to use (provider-specific)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 1024, "Maximum tokens per reply")
}

// configPath returns the explicit config file, else the first of
// ./.fin-advisor.yaml and ~/.fin-advisor.yaml that exists, else "".
func configPath() string {
	if configFile != "" {
		return configFile
	}
	if _, err := os.Stat(version.ConfigFileName); err == nil {
		return version.ConfigFileName
	}
	if home, err := os.UserHomeDir(); err == nil {
		homePath := filepath.Join(home, version.ConfigFileName)
		if _, err := os.Stat(homePath); err == nil {
			return homePath
		}
	}
	return ""
}

// homeConfigPath is where setup writes its configuration.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return version.ConfigFileName
	}
	return filepath.Join(home, version.ConfigFileName)
}

func readConfigFile(path string) (configFileData, error) {
	var cfg configFileData
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func writeConfigFile(path string, cfg configFileData) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// loadConfig reads .env and the YAML config file, applying config values to
// flags that were not set explicitly. Environment secrets fill in last.
func loadConfig(cmd *cobra.Command) (configFileData, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return configFileData{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := readConfigFile(configPath())
	if err != nil {
		return cfg, err
	}
	applyConfig(cmd, cfg)

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if !cmd.Flags().Changed("mock-data") {
		if v, err := strconv.ParseBool(os.Getenv("MOCK_DATA")); err == nil && v {
			mockData = true
		}
	}
	return cfg, nil
}

func applyConfig(cmd *cobra.Command, cfg configFileData) {
	set := func(name string) bool { return !cmd.Flags().Changed(name) }

	if set("llm") && cfg.LLM != "" {
		llmProvider = cfg.LLM
	}
	if set("model") && cfg.Model != "" {
		llmModel = cfg.Model
	}
	if set("max-tokens") && cfg.MaxTokens > 0 {
		maxTokens = cfg.MaxTokens
	}
	if set("addr") && cfg.Addr != "" {
		addr = cfg.Addr
	}
	if set("data-dir") && cfg.DataDir != "" {
		dataDir = cfg.DataDir
	}
	if set("database-url") && cfg.DatabaseURL != "" {
		databaseURL = cfg.DatabaseURL
	}
	if set("source") && cfg.Source != "" {
		dataSource = cfg.Source
	}
	if set("cache-ttl") && cfg.CacheTTL > 0 {
		cacheTTL = cfg.CacheTTL
	}
	if set("token-ttl") && cfg.TokenTTL > 0 {
		tokenTTL = cfg.TokenTTL
	}
	if set("history-turns") && cfg.HistoryTurns > 0 {
		historyTurns = cfg.HistoryTurns
	}
	if set("allowed-origins") && len(cfg.AllowedOrigins) > 0 {
		allowedOrigins = cfg.AllowedOrigins
	}
	if cfg.Insights != nil {
		insightConfig = *cfg.Insights
	}
}
