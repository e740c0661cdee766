package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhabedank/fin-advisor/internal/api"
	"github.com/dhabedank/fin-advisor/internal/auth"
	"github.com/dhabedank/fin-advisor/internal/chat"
	"github.com/dhabedank/fin-advisor/internal/metaprompt"
	"github.com/dhabedank/fin-advisor/internal/metrics"
	"github.com/dhabedank/fin-advisor/internal/recommend"
	"github.com/dhabedank/fin-advisor/internal/version"
)

var (
	addr           string
	mockData       bool
	cacheTTL       time.Duration
	tokenTTL       time.Duration
	historyTurns   int
	allowedOrigins []string
)

// mockUser is seeded into the document store in mock-data mode.
var mockUser = auth.Registration{
	Username: "testuser",
	Password: "secret",
	FullName: "Test User",
	Email:    "test@example.com",
	UserID:   "testuser",
}

// ServeCmd starts the advisor HTTP API.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the financial advisor API",
	Long: `Start the HTTP API for the financial advisor chat backend.

Profile datasets are loaded once at startup from the CSV directory (or from
the document store with --source db). Each chat request builds the user's
meta-prompt, replays recent history and asks the configured model.

With --mock-data the server runs on an in-memory store seeded with the
account testuser/secret and falls back to an offline responder when no
model is available.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addCommonFlags(ServeCmd)
	addDataFlags(ServeCmd)
	addLLMFlags(ServeCmd)

	ServeCmd.Flags().StringVarP(&addr, "addr", "a", ":8000", "Listen address")
	ServeCmd.Flags().BoolVar(&mockData, "mock-data", false, "Use an in-memory store seeded with a test account (default: $MOCK_DATA)")
	ServeCmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 5*time.Minute, "How long a generated meta-prompt is reused")
	ServeCmd.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "Bearer token lifetime")
	ServeCmd.Flags().IntVar(&historyTurns, "history-turns", 10, "Stored turns replayed to the model")
	ServeCmd.Flags().StringSliceVar(&allowedOrigins, "allowed-origins", []string{"*"}, "CORS allowed origins")
}

func runServe(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(verbose)
	metrics.BuildInfo.WithLabelValues(version.Version).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := openDocStore(ctx, log)
	if err != nil {
		return err
	}
	defer docs.Close()

	src, err := profileSource(docs)
	if err != nil {
		return err
	}
	profiles := loadProfiles(ctx, log, src)

	catalog, err := recommend.LoadCatalog(ctx, src)
	if err != nil {
		log.Warn("failed to load product catalog, recommendations disabled", "error", err)
		catalog = recommend.NewCatalog(nil)
	}
	log.Info("loaded product catalog", "products", catalog.Len())

	generator, err := metaprompt.NewGenerator(metaprompt.GeneratorConfig{
		Logger:   log,
		Store:    profiles,
		Insights: insightConfig,
	})
	if err != nil {
		return fmt.Errorf("failed to create meta-prompt generator: %w", err)
	}
	prompts := metaprompt.NewCachedGenerator(generator, cacheTTL)
	prompts.Start()
	defer prompts.Stop()

	adapter, err := createLLMAdapter(mockData)
	if err != nil {
		return fmt.Errorf("failed to create LLM adapter: %w", err)
	}
	log.Info("using llm", "adapter", adapter.Name(), "model", llmModel)

	authSvc, err := auth.NewService(auth.Config{Logger: log, Docs: docs, TokenTTL: tokenTTL})
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}
	authSvc.Start()
	defer authSvc.Stop()
	if mockData {
		if err := authSvc.EnsureUser(ctx, mockUser); err != nil {
			return fmt.Errorf("failed to seed test user: %w", err)
		}
		log.Info("mock data mode, seeded test account", "username", mockUser.Username)
	}

	chatSvc, err := chat.NewService(chat.Config{
		Logger:       log,
		Docs:         docs,
		Prompts:      prompts,
		LLM:          adapter,
		Catalog:      catalog,
		Profiles:     profiles,
		HistoryTurns: historyTurns,
		MaxTokens:    maxTokens,
		Model:        llmModel,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat service: %w", err)
	}

	router, err := api.NewRouter(api.Config{
		Logger:         log,
		Auth:           authSvc,
		Chat:           chatSvc,
		Prompts:        prompts,
		Catalog:        catalog,
		Profiles:       profiles,
		AllowedOrigins: allowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	return api.Serve(ctx, log, addr, router)
}
