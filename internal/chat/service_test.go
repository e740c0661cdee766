package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhabedank/fin-advisor/internal/docstore"
	"github.com/dhabedank/fin-advisor/internal/llm"
	"github.com/dhabedank/fin-advisor/internal/profile"
	"github.com/dhabedank/fin-advisor/internal/recommend"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeAdapter struct {
	mu    sync.Mutex
	reqs  []llm.Request
	reply string
	err   error
}

func (f *fakeAdapter) Name() string      { return "fake" }
func (f *fakeAdapter) IsAvailable() bool { return true }

func (f *fakeAdapter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.reply}, nil
}

type staticPrompts string

func (p staticPrompts) Generate(context.Context, string) string { return string(p) }

type riskProfiles map[string]string

func (r riskProfiles) Investments(userID string) profile.InvestmentRecord {
	if tol, ok := r[userID]; ok {
		return profile.InvestmentRecord{RiskTolerance: &tol}
	}
	return profile.InvestmentRecord{}
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newService(t *testing.T, adapter llm.Adapter, docs docstore.Store) *Service {
	t.Helper()
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(Config{
		Logger:  logger,
		Docs:    docs,
		Prompts: staticPrompts("## Investment Profile\nRisk Tolerance: Low"),
		LLM:     adapter,
		Catalog: recommend.NewCatalog([]recommend.Product{
			{ID: "P1", Name: "High Yield Savings", Category: "Savings", RiskLevel: "Low"},
			{ID: "P2", Name: "Growth Fund", Category: "Investment", RiskLevel: "High"},
		}),
		Profiles:     riskProfiles{"u1": "Low"},
		HistoryTurns: 4,
		now:          c.now,
	})
	require.NoError(t, err)
	return svc
}

func TestChat_ProcessMessage(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{reply: "Start with a high yield savings account."}
	docs := docstore.NewMemoryStore()
	svc := newService(t, adapter, docs)

	reply, err := svc.ProcessMessage(t.Context(), "u1", "  Where do I keep my savings?  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Start with a high yield savings account.", reply.Response)
	require.Len(t, reply.Recommendations, 1)
	assert.Equal(t, "P1", reply.Recommendations[0].ProductID)

	require.Len(t, adapter.reqs, 1)
	req := adapter.reqs[0]
	assert.Contains(t, req.System, "financial advisor")
	assert.Contains(t, req.System, "Risk Tolerance: Low")
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "Where do I keep my savings?", req.Messages[0].Content)

	history, err := svc.History(t.Context(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
	assert.True(t, history[0].Timestamp.Before(history[1].Timestamp))
}

func TestChat_HistoryIsReplayed(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{reply: "ok"}
	svc := newService(t, adapter, docstore.NewMemoryStore())

	for _, msg := range []string{"one", "two", "three"} {
		_, err := svc.ProcessMessage(t.Context(), "u1", msg, nil)
		require.NoError(t, err)
	}

	last := adapter.reqs[2]
	require.Len(t, last.Messages, 5)
	assert.Equal(t, "one", last.Messages[0].Content)
	assert.Equal(t, llm.RoleAssistant, last.Messages[1].Role)
	assert.Equal(t, "three", last.Messages[4].Content)

	_, err := svc.ProcessMessage(t.Context(), "u1", "four", nil)
	require.NoError(t, err)
	fourth := adapter.reqs[3]
	require.Len(t, fourth.Messages, 5, "history is capped at four turns")
	assert.Equal(t, "two", fourth.Messages[0].Content)

	other, err := svc.History(t.Context(), "u2", 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestChat_LLMFailureApologizes(t *testing.T) {
	t.Parallel()

	docs := docstore.NewMemoryStore()
	svc := newService(t, &fakeAdapter{err: errors.New("rate limited")}, docs)

	reply, err := svc.ProcessMessage(t.Context(), "u1", "savings?", nil)
	require.NoError(t, err)
	assert.Equal(t, ApologyReply, reply.Response)
	assert.NotNil(t, reply.Recommendations)
	assert.Empty(t, reply.Recommendations)

	history, err := svc.History(t.Context(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestChat_ImageOnly(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{reply: "That looks like a bank statement."}
	svc := newService(t, adapter, docstore.NewMemoryStore())

	_, err := svc.ProcessMessage(t.Context(), "u1", "", nil)
	require.ErrorIs(t, err, ErrEmptyMessage)

	img := &llm.Image{MediaType: "image/png", Data: "iVBORw0KGgo="}
	_, err = svc.ProcessMessage(t.Context(), "u1", "", img)
	require.NoError(t, err)

	msg := adapter.reqs[0].Messages[0]
	assert.Equal(t, img, msg.Image)
	assert.NotEmpty(t, msg.Content)

	history, err := svc.History(t.Context(), "u1", 0)
	require.NoError(t, err)
	assert.True(t, history[0].HasImage)
}

func TestChat_ToMessagesStartsWithUser(t *testing.T) {
	t.Parallel()

	msgs := toMessages([]Turn{
		{Role: llm.RoleAssistant, Content: "orphan"},
		{Role: llm.RoleUser, Content: "hi"},
		{Role: "system", Content: "ignored"},
		{Role: llm.RoleAssistant, Content: "hello"},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestChat_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewService(Config{Logger: logger})
	require.Error(t, err)
}
