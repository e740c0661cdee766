package llm

import (
	"fmt"
	"os"
	"os/exec"
)

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string // Model identifier (e.g., "claude-sonnet-4-5-20250929")
	Name        string // Human-readable name (e.g., "Claude Sonnet 4.5")
	Description string // Brief description
	Provider    string // Provider name (e.g., "anthropic", "openai")
}

// claudeModels lists Claude models usable for advisor chat.
var claudeModels = []ModelInfo{
	{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5", Description: "Best balance of speed and capability ($3/$15 per MTok)", Provider: "anthropic"},
	{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5", Description: "Fastest, most cost-effective ($1/$5 per MTok)", Provider: "anthropic"},
	{ID: "claude-opus-4-5-20251101", Name: "Claude Opus 4.5", Description: "Premium model, maximum intelligence ($5/$25 per MTok)", Provider: "anthropic"},
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", Description: "Previous balanced model ($3/$15 per MTok)", Provider: "anthropic"},
	{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", Description: "Legacy budget model ($0.25/$1.25 per MTok)", Provider: "anthropic"},
}

// codexModels lists OpenAI models available via the Codex CLI.
var codexModels = []ModelInfo{
	{ID: "gpt-4o", Name: "GPT-4o", Description: "Fast multimodal model", Provider: "openai"},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Description: "Most cost-effective", Provider: "openai"},
	{ID: "o3-mini", Name: "O3 Mini", Description: "Fast reasoning model", Provider: "openai"},
}

// AvailableModels returns models grouped by provider based on the API key
// and installed CLIs.
func AvailableModels() map[string][]ModelInfo {
	result := make(map[string][]ModelInfo)

	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		result["anthropic"] = claudeModels
	} else if _, err := exec.LookPath("claude"); err == nil {
		result["anthropic"] = claudeModels
	}

	if _, err := exec.LookPath("codex"); err == nil {
		result["openai"] = codexModels
	}

	return result
}

// AllModels returns a flat list of all available models, Claude first.
func AllModels() []ModelInfo {
	available := AvailableModels()
	var result []ModelInfo

	if models, ok := available["anthropic"]; ok {
		result = append(result, models...)
	}
	if models, ok := available["openai"]; ok {
		result = append(result, models...)
	}

	return result
}

// DetectBestAdapter finds the best available LLM adapter.
// Priority: Anthropic API > Claude CLI > Codex CLI > offline, with the CLIs
// first when PreferCLI is set. The returned adapter records metrics.
func DetectBestAdapter(config Config) (Adapter, error) {
	if config.PreferCLI {
		if a := detectCLI(config); a != nil {
			return Instrument(a), nil
		}
	}

	if api, err := NewAnthropicAPIAdapter(config); err == nil {
		return Instrument(api), nil
	}

	if !config.PreferCLI {
		if a := detectCLI(config); a != nil {
			return Instrument(a), nil
		}
	}

	if config.AllowOffline {
		return Instrument(NewOfflineAdapter()), nil
	}

	return nil, fmt.Errorf("no LLM adapter available - set ANTHROPIC_API_KEY, install Claude Code or Codex, or allow offline mode")
}

func detectCLI(config Config) Adapter {
	claude := NewClaudeCLIAdapter(config)
	if claude.IsAvailable() {
		return claude
	}
	codex := NewCodexCLIAdapter(config)
	if codex.IsAvailable() {
		return codex
	}
	return nil
}

// ListAvailableAdapters returns all adapters that could be used.
func ListAvailableAdapters(config Config) []string {
	var available []string

	if _, err := NewAnthropicAPIAdapter(config); err == nil {
		available = append(available, "anthropic-api")
	}
	if NewClaudeCLIAdapter(config).IsAvailable() {
		available = append(available, "claude-cli")
	}
	if NewCodexCLIAdapter(config).IsAvailable() {
		available = append(available, "codex-cli")
	}
	if config.AllowOffline {
		available = append(available, "offline")
	}

	return available
}
