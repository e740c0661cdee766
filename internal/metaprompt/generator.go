package metaprompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/dhabedank/fin-advisor/internal/insight"
	"github.com/dhabedank/fin-advisor/internal/metrics"
	"github.com/dhabedank/fin-advisor/internal/profile"
)

// Generator produces the meta-prompt for a user. Implementations never fail;
// they degrade to FallbackPrompt.
type Generator interface {
	Generate(ctx context.Context, userID string) string
}

// UserDataSource is the read side of the dataset store.
type UserDataSource interface {
	UserData(userID string) profile.UserData
}

type GeneratorConfig struct {
	Logger   *slog.Logger
	Store    UserDataSource
	Insights insight.Config
}

func (c *GeneratorConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Store == nil {
		return errors.New("store is required")
	}
	return nil
}

// DatasetGenerator builds meta-prompts from the dataset store.
type DatasetGenerator struct {
	log      *slog.Logger
	store    UserDataSource
	insights insight.Config
}

func NewGenerator(cfg GeneratorConfig) (*DatasetGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DatasetGenerator{
		log:      cfg.Logger,
		store:    cfg.Store,
		insights: cfg.Insights,
	}, nil
}

// Generate looks up the user's records, extracts insights and renders them.
// Any failure, including a panic, is logged and yields FallbackPrompt.
func (g *DatasetGenerator) Generate(ctx context.Context, userID string) (prompt string) {
	log := g.log.With("user_id", userID)
	log.Debug("generating meta-prompt")

	defer func() {
		if r := recover(); r != nil {
			log.Error("meta-prompt generation panicked", "panic", r, "stack", string(debug.Stack()))
			metrics.MetaPromptsTotal.WithLabelValues("fallback").Inc()
			prompt = FallbackPrompt
		}
	}()

	prompt, err := g.generate(ctx, userID)
	if err != nil {
		log.Error("failed to generate meta-prompt", "error", err)
		metrics.MetaPromptsTotal.WithLabelValues("fallback").Inc()
		return FallbackPrompt
	}
	if prompt == EmptyProfilePrompt {
		metrics.MetaPromptsTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.MetaPromptsTotal.WithLabelValues("rendered").Inc()
	}
	return prompt
}

func (g *DatasetGenerator) generate(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context done before lookup: %w", err)
	}
	data := g.store.UserData(userID)

	txns := insight.ExtractTransactionInsights(data.Transactions, g.insights)
	sentiment := insight.ExtractSentimentInsights(data.Sentiment, g.insights)

	return Render(Input{
		Demographics: data.Demographics,
		Account:      data.Account,
		Credit:       data.Credit,
		Investments:  data.Investments,
		Transactions: txns,
		Sentiment:    sentiment,
	}), nil
}
