// Package chat runs one advisor conversation turn: meta-prompt, history,
// model call, persistence and product recommendations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dhabedank/fin-advisor/internal/docstore"
	"github.com/dhabedank/fin-advisor/internal/llm"
	"github.com/dhabedank/fin-advisor/internal/metaprompt"
	"github.com/dhabedank/fin-advisor/internal/profile"
	"github.com/dhabedank/fin-advisor/internal/recommend"
	"github.com/dhabedank/fin-advisor/internal/tui"
)

const (
	// HistoryCollection stores one document per conversation turn.
	HistoryCollection = "chat_history"

	// ApologyReply is returned when the model call fails.
	ApologyReply = "I apologize, but I encountered an issue processing your message. " +
		"I'm a financial advisor chatbot that can help with investment advice, savings strategies, " +
		"and debt management. Could you try asking in a different way?"

	// ErrorReply is returned when the request could not be handled at all.
	ErrorReply = "I apologize, but something went wrong. Please try again later."

	// timestampLayout is fixed width so stored timestamps sort as strings.
	timestampLayout = "2006-01-02T15:04:05.000000Z"

	defaultHistoryTurns = 10
)

var ErrEmptyMessage = errors.New("message is empty")

// advisorInstructions precede the user's meta-prompt in the system prompt.
const advisorInstructions = `You are a knowledgeable, friendly financial advisor.
Give clear, practical guidance on budgeting, saving, debt management, credit and investing.
Tailor every answer to the user profile below: reference their situation when it is relevant,
respect their risk tolerance, and never invent facts about them that the profile does not state.
If the profile is limited, ask a short clarifying question before making specific recommendations.
Keep answers concise, and remind the user to consult a licensed professional before major decisions.

# User Profile
`

// SystemPrompt combines the advisor instructions with a user's meta-prompt.
func SystemPrompt(metaPrompt string) string {
	return advisorInstructions + metaPrompt
}

// InvestmentSource supplies the risk tolerance used for recommendations.
type InvestmentSource interface {
	Investments(userID string) profile.InvestmentRecord
}

// Turn is one stored message.
type Turn struct {
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	HasImage  bool      `json:"has_image,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Reply is the outcome of one chat request.
type Reply struct {
	Response        string                     `json:"response"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

type Config struct {
	Logger       *slog.Logger
	Docs         docstore.Store
	Prompts      metaprompt.Generator
	LLM          llm.Adapter
	Catalog      *recommend.Catalog
	Profiles     InvestmentSource
	HistoryTurns int
	MaxTokens    int
	// Model is used for cost estimates when the backend does not report one.
	Model string

	now func() time.Time
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Docs == nil {
		return errors.New("document store is required")
	}
	if c.Prompts == nil {
		return errors.New("meta-prompt generator is required")
	}
	if c.LLM == nil {
		return errors.New("llm adapter is required")
	}
	if c.Catalog == nil {
		c.Catalog = recommend.NewCatalog(nil)
	}
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = defaultHistoryTurns
	}
	if c.now == nil {
		c.now = time.Now
	}
	return nil
}

type Service struct {
	cfg Config
	log *slog.Logger
}

func NewService(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, log: cfg.Logger}, nil
}

// ProcessMessage answers a user message. Model failures are reported as
// ApologyReply rather than an error; only invalid input returns an error.
func (s *Service) ProcessMessage(ctx context.Context, userID, message string, image *llm.Image) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" && image == nil {
		return Reply{}, ErrEmptyMessage
	}
	if message == "" {
		message = "Please take a look at this image."
	}
	log := s.log.With("user_id", userID)

	metaPrompt := s.cfg.Prompts.Generate(ctx, userID)

	history, err := s.History(ctx, userID, s.cfg.HistoryTurns)
	if err != nil {
		log.Warn("failed to load chat history, continuing without it", "error", err)
		history = nil
	}

	req := llm.Request{
		System:    SystemPrompt(metaPrompt),
		Messages:  append(toMessages(history), llm.Message{Role: llm.RoleUser, Content: message, Image: image}),
		MaxTokens: s.cfg.MaxTokens,
	}

	userAt := s.cfg.now()
	resp, err := s.cfg.LLM.Complete(ctx, req)
	if err != nil {
		log.Error("llm request failed", "adapter", s.cfg.LLM.Name(), "error", err)
		return Reply{Response: ApologyReply, Recommendations: []recommend.Recommendation{}}, nil
	}
	s.logUsage(log, req, resp)

	// Stored timestamps have microsecond precision; keep the reply strictly
	// after the question so history sorts correctly.
	replyAt := s.cfg.now()
	if !replyAt.Truncate(time.Microsecond).After(userAt.Truncate(time.Microsecond)) {
		replyAt = userAt.Truncate(time.Microsecond).Add(time.Microsecond)
	}
	s.persist(ctx, log, userID,
		Turn{Role: llm.RoleUser, Content: message, HasImage: image != nil, Timestamp: userAt},
		Turn{Role: llm.RoleAssistant, Content: resp.Text, Timestamp: replyAt},
	)

	risk := ""
	if s.cfg.Profiles != nil {
		if tol := s.cfg.Profiles.Investments(userID).RiskTolerance; tol != nil {
			risk = *tol
		}
	}

	return Reply{
		Response:        resp.Text,
		Recommendations: s.cfg.Catalog.Recommend(message, risk, recommend.DefaultLimit),
	}, nil
}

// History returns the user's most recent turns, oldest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryTurns
	}
	docs, err := s.cfg.Docs.Find(ctx, HistoryCollection, docstore.Filter{"user_id": userID},
		docstore.SortBy("timestamp", true), docstore.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}

	turns := make([]Turn, 0, len(docs))
	for _, doc := range docs {
		ts, err := time.Parse(timestampLayout, doc.String("timestamp"))
		if err != nil {
			continue
		}
		turns = append(turns, Turn{
			Role:      llm.Role(doc.String("role")),
			Content:   doc.String("content"),
			HasImage:  doc["has_image"] == true,
			Timestamp: ts,
		})
	}
	slices.Reverse(turns)
	return turns, nil
}

func (s *Service) persist(ctx context.Context, log *slog.Logger, userID string, turns ...Turn) {
	docs := make([]docstore.Document, 0, len(turns))
	for _, t := range turns {
		docs = append(docs, docstore.Document{
			"user_id":   userID,
			"role":      string(t.Role),
			"content":   t.Content,
			"has_image": t.HasImage,
			"timestamp": t.Timestamp.UTC().Format(timestampLayout),
		})
	}
	if _, err := s.cfg.Docs.Insert(ctx, HistoryCollection, docs...); err != nil {
		log.Error("failed to store chat turns", "error", err)
	}
}

func (s *Service) logUsage(log *slog.Logger, req llm.Request, resp *llm.Response) {
	in, out := resp.InputTokens, resp.OutputTokens
	if in == 0 {
		chars := len(req.System)
		for _, m := range req.Messages {
			chars += len(m.Content)
		}
		in = tui.EstimateTokens(chars)
	}
	if out == 0 {
		out = tui.EstimateTokens(len(resp.Text))
	}
	model := resp.Model
	if model == "" {
		model = s.cfg.Model
	}
	log.Info("chat reply generated",
		"adapter", s.cfg.LLM.Name(),
		"model", model,
		"input_tokens", in,
		"output_tokens", out,
		"estimated_cost", tui.FormatCost(tui.EstimateCost(model, in, out)),
	)
}

// toMessages converts stored turns into model messages. The model expects
// the conversation to open with a user turn.
func toMessages(turns []Turn) []llm.Message {
	for len(turns) > 0 && turns[0].Role != llm.RoleUser {
		turns = turns[1:]
	}
	msgs := make([]llm.Message, 0, len(turns)+1)
	for _, t := range turns {
		if t.Role != llm.RoleUser && t.Role != llm.RoleAssistant {
			continue
		}
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}
