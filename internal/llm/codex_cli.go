package llm

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CodexCLIAdapter uses the Codex CLI for generation.
type CodexCLIAdapter struct {
	model string
}

// NewCodexCLIAdapter creates a Codex CLI adapter.
func NewCodexCLIAdapter(config Config) *CodexCLIAdapter {
	model := config.Model
	if model == "" || strings.HasPrefix(model, "claude") {
		model = "gpt-4o"
	}
	return &CodexCLIAdapter{model: model}
}

func (a *CodexCLIAdapter) Name() string {
	return "codex-cli"
}

// IsAvailable checks if the codex CLI is installed.
func (a *CodexCLIAdapter) IsAvailable() bool {
	_, err := exec.LookPath("codex")
	return err == nil
}

func (a *CodexCLIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// Codex has no separate system prompt.
	combined := fmt.Sprintf("SYSTEM INSTRUCTIONS:\n%s\n\nCONVERSATION:\n%s\n\nAssistant:", req.System, transcript(req))

	cmd := exec.CommandContext(ctx, "codex",
		"--model", a.model,
		"--quiet",
	)
	cmd.Stdin = strings.NewReader(combined)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("codex CLI failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("codex CLI failed: %w", err)
	}

	text := strings.TrimSpace(string(output))
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{Text: text, Model: a.model}, nil
}
