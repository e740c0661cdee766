package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dhabedank/fin-advisor/internal/docstore"
	"github.com/dhabedank/fin-advisor/internal/llm"
	"github.com/dhabedank/fin-advisor/internal/profile"
)

// openDocStore connects to PostgreSQL when a database URL is configured and
// mock data is off; otherwise it returns an in-memory store.
func openDocStore(ctx context.Context, log *slog.Logger) (docstore.Store, error) {
	if mockData || databaseURL == "" {
		if !mockData {
			log.Warn("no database url configured, chat history and accounts will not survive a restart")
		}
		return docstore.NewMemoryStore(), nil
	}
	store, err := docstore.NewPostgresStore(ctx, docstore.PostgresConfig{
		Logger:      log,
		DatabaseURL: databaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	return store, nil
}

// profileSource picks where profile datasets are read from.
func profileSource(store docstore.Store) (profile.Source, error) {
	switch dataSource {
	case "", "csv":
		return profile.NewCSVSource(dataDir), nil
	case "db":
		return profile.NewDocSource(store), nil
	default:
		return nil, fmt.Errorf("unknown data source: %s", dataSource)
	}
}

// loadProfiles loads every dataset. A source that cannot be read at all
// leaves the service running with empty profiles.
func loadProfiles(ctx context.Context, log *slog.Logger, src profile.Source) *profile.Store {
	store, err := profile.Load(ctx, profile.StoreConfig{Logger: log, Source: src})
	if err != nil {
		log.Error("failed to load profile datasets, serving without profile data", "source", src.Name(), "error", err)
		return profile.Empty()
	}
	return store
}

func createLLMAdapter(allowOffline bool) (llm.Adapter, error) {
	config := llm.DefaultConfig()
	config.Model = llmModel
	config.AllowOffline = allowOffline
	if maxTokens > 0 {
		config.MaxTokens = maxTokens
	}

	switch llmProvider {
	case "", "auto":
		return llm.DetectBestAdapter(config)
	case "anthropic-api":
		adapter, err := llm.NewAnthropicAPIAdapter(config)
		if err != nil {
			return nil, err
		}
		return llm.Instrument(adapter), nil
	case "claude-cli":
		adapter := llm.NewClaudeCLIAdapter(config)
		if !adapter.IsAvailable() {
			return nil, fmt.Errorf("Claude CLI not available - install Claude Code")
		}
		return llm.Instrument(adapter), nil
	case "codex-cli":
		adapter := llm.NewCodexCLIAdapter(config)
		if !adapter.IsAvailable() {
			return nil, fmt.Errorf("Codex CLI not available - install Codex")
		}
		return llm.Instrument(adapter), nil
	case "offline":
		return llm.Instrument(llm.NewOfflineAdapter()), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", llmProvider)
	}
}
