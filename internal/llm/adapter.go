package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dhabedank/fin-advisor/internal/metrics"
)

// ErrEmptyResponse is returned when a model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Adapter is the interface all LLM adapters must implement.
type Adapter interface {
	// Name returns the adapter identifier for logging.
	Name() string

	// IsAvailable checks if this adapter can be used (CLI installed, API key set, etc.)
	IsAvailable() bool

	// Complete sends a conversation to the model and returns its reply.
	Complete(ctx context.Context, req Request) (*Response, error)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Image is an inline base64 image attached to a user turn.
type Image struct {
	MediaType string
	Data      string
}

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
	Image   *Image
}

// Request is a single completion call. Messages alternate user/assistant and
// end with a user turn.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Response carries the reply text and, when the backend reports it, usage.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Config holds configuration for LLM adapters.
type Config struct {
	// PreferCLI prefers CLI tools (claude, codex) over API when available.
	PreferCLI bool `yaml:"prefer_cli"`

	// Model specifies which model to use (optional, adapter chooses default).
	Model string `yaml:"model"`

	// APIKey for direct API access (optional if CLI is used).
	APIKey string `yaml:"-"`

	// MaxTokens limits response length.
	MaxTokens int `yaml:"max_tokens"`

	// AllowOffline falls back to a canned responder when nothing else is
	// available instead of failing.
	AllowOffline bool `yaml:"allow_offline"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PreferCLI: false,
		MaxTokens: 1024,
	}
}

// instrumented records request counts, latency and token usage for an adapter.
type instrumented struct {
	Adapter
}

// Instrument wraps an adapter with Prometheus metrics.
func Instrument(a Adapter) Adapter {
	if _, ok := a.(instrumented); ok {
		return a
	}
	return instrumented{Adapter: a}
}

func (i instrumented) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := i.Adapter.Complete(ctx, req)
	metrics.RecordLLMRequest(i.Name(), time.Since(start), err)
	if err == nil {
		metrics.RecordLLMTokens(int64(resp.InputTokens), int64(resp.OutputTokens))
	}
	return resp, err
}

// transcript flattens a conversation for backends that take a single prompt.
func transcript(req Request) string {
	var b strings.Builder
	for i, m := range req.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		speaker := "User"
		if m.Role == RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s", speaker, m.Content)
		if m.Image != nil {
			b.WriteString("\n[The user attached an image that cannot be displayed here.]")
		}
	}
	return b.String()
}

func validate(req Request) error {
	if len(req.Messages) == 0 {
		return errors.New("request has no messages")
	}
	if last := req.Messages[len(req.Messages)-1]; last.Role != RoleUser {
		return fmt.Errorf("last message must be from the user, got %q", last.Role)
	}
	return nil
}
