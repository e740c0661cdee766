// Package api exposes the advisor over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dhabedank/fin-advisor/internal/auth"
	"github.com/dhabedank/fin-advisor/internal/chat"
	"github.com/dhabedank/fin-advisor/internal/llm"
	"github.com/dhabedank/fin-advisor/internal/metaprompt"
	"github.com/dhabedank/fin-advisor/internal/metrics"
	"github.com/dhabedank/fin-advisor/internal/recommend"
)

const (
	// GuestUserID is used for unauthenticated chat.
	GuestUserID = "guest-user"

	defaultMaxUploadBytes = 10 << 20
	shutdownTimeout       = 30 * time.Second
)

// Chatter is the chat service as seen by the handlers.
type Chatter interface {
	ProcessMessage(ctx context.Context, userID, message string, image *llm.Image) (chat.Reply, error)
	History(ctx context.Context, userID string, limit int) ([]chat.Turn, error)
}

type Config struct {
	Logger   *slog.Logger
	Auth     *auth.Service
	Chat     Chatter
	Prompts  metaprompt.Generator
	Catalog  *recommend.Catalog
	Profiles chat.InvestmentSource

	AllowedOrigins []string
	MaxUploadBytes int64
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Auth == nil {
		return errors.New("auth service is required")
	}
	if c.Chat == nil {
		return errors.New("chat service is required")
	}
	if c.Prompts == nil {
		return errors.New("meta-prompt generator is required")
	}
	if c.Catalog == nil {
		c.Catalog = recommend.NewCatalog(nil)
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}
	return nil
}

type handlers struct {
	cfg Config
	log *slog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg Config) (http.Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &handlers{cfg: cfg, log: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/health", h.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/simple_chat", h.simpleChat)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/token", h.token)
		r.With(cfg.Auth.Middleware).Get("/me", h.me)
		r.With(cfg.Auth.Middleware).Post("/logout", h.logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.Middleware)
		r.Post("/api/chat/message", h.chatMessage)
		r.Get("/api/chat/history", h.chatHistory)
		r.Get("/api/recommendations", h.recommendations)
		r.Get("/api/profile/context", h.profileContext)
	})

	return r, nil
}

// Serve runs the server until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, log *slog.Logger, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("api server stopped")
	return nil
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
