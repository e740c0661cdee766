package llm

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLM_DefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	assert.False(t, config.PreferCLI)
	assert.Equal(t, 1024, config.MaxTokens)
}

func TestLLM_AdapterNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "claude-cli", NewClaudeCLIAdapter(Config{}).Name())
	assert.Equal(t, "codex-cli", NewCodexCLIAdapter(Config{}).Name())
	assert.Equal(t, "offline", NewOfflineAdapter().Name())

	adapter, err := NewAnthropicAPIAdapter(Config{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic-api", adapter.Name())
	assert.Equal(t, defaultAnthropicModel, adapter.model)
}

func TestLLM_CodexIgnoresClaudeModels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gpt-4o", NewCodexCLIAdapter(Config{Model: "claude-haiku-4-5-20251001"}).model)
	assert.Equal(t, "o3-mini", NewCodexCLIAdapter(Config{Model: "o3-mini"}).model)
}

func TestLLM_Transcript(t *testing.T) {
	t.Parallel()

	got := transcript(Request{Messages: []Message{
		{Role: RoleUser, Content: "How do I save?"},
		{Role: RoleAssistant, Content: "Budget first."},
		{Role: RoleUser, Content: "What is this?", Image: &Image{MediaType: "image/png", Data: "AAAA"}},
	}})
	want := "User: How do I save?\n\nAssistant: Budget first.\n\nUser: What is this?\n[The user attached an image that cannot be displayed here.]"
	assert.Equal(t, want, got)
}

func TestLLM_ValidateRequest(t *testing.T) {
	t.Parallel()

	require.Error(t, validate(Request{}))
	require.Error(t, validate(Request{Messages: []Message{{Role: RoleAssistant, Content: "hi"}}}))
	require.NoError(t, validate(Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}}))
}

func TestLLM_Offline(t *testing.T) {
	t.Parallel()

	a := Instrument(NewOfflineAdapter())
	resp, err := a.Complete(t.Context(), Request{
		System:   "You are an advisor.",
		Messages: []Message{{Role: RoleUser, Content: "Should I buy bonds?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, OfflineReply, resp.Text)
	assert.Positive(t, resp.InputTokens)
	assert.Equal(t, "offline", a.Name())
}

func TestLLM_DetectOffline(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("PATH", t.TempDir())

	_, err := DetectBestAdapter(Config{})
	require.Error(t, err)

	a, err := DetectBestAdapter(Config{AllowOffline: true})
	require.NoError(t, err)
	assert.Equal(t, "offline", a.Name())
	assert.Equal(t, []string{"offline"}, ListAvailableAdapters(Config{AllowOffline: true}))
}

func TestLLM_AnthropicAPI_Complete(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5-20251001",
			"content": [{"type": "text", "text": "Build an emergency fund."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 120, "output_tokens": 8}
		}`)
	}))
	defer srv.Close()

	adapter, err := NewAnthropicAPIAdapter(Config{APIKey: "test-key", Model: "claude-haiku-4-5-20251001"},
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	resp, err := adapter.Complete(t.Context(), Request{
		System: "profile",
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "look", Image: &Image{MediaType: "image/jpeg", Data: "/9j/"}},
		},
		MaxTokens: 256,
	})
	require.NoError(t, err)
	assert.Equal(t, "Build an emergency fund.", resp.Text)
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 8, resp.OutputTokens)

	assert.EqualValues(t, 256, body["max_tokens"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	last := msgs[2].(map[string]any)
	content := last["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0].(map[string]any)["type"])
	assert.Equal(t, "text", content[1].(map[string]any)["type"])
}

func TestLLM_AnthropicAPI_EmptyReply(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_2","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer srv.Close()

	adapter, err := NewAnthropicAPIAdapter(Config{APIKey: "k"}, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = adapter.Complete(t.Context(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.ErrorIs(t, err, ErrEmptyResponse)
}
