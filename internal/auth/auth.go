// Package auth registers users, checks passwords and issues bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/dhabedank/fin-advisor/internal/docstore"
)

const (
	UsersCollection = "users"

	defaultTokenTTL = 24 * time.Hour
	minPasswordLen  = 6
)

var (
	ErrUserExists         = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserDisabled       = errors.New("user is disabled")
)

// ValidationError reports a rejected registration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// User is the public view of an account. The user id doubles as the key into
// the profile datasets.
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Disabled bool   `json:"disabled"`
}

// Registration is the input to Register.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	// UserID links the account to existing profile data. Generated when empty.
	UserID string `json:"user_id,omitempty"`
}

// Token is an issued bearer token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Config struct {
	Logger   *slog.Logger
	Docs     docstore.Store
	TokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Docs == nil {
		return errors.New("document store is required")
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	return nil
}

// Service owns the users collection and the in-memory session table.
type Service struct {
	log      *slog.Logger
	docs     docstore.Store
	cost     int
	ttl      time.Duration
	sessions *ttlcache.Cache[string, User]
}

func NewService(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		log:  cfg.Logger,
		docs: cfg.Docs,
		cost: cfg.BcryptCost,
		ttl:  cfg.TokenTTL,
		sessions: ttlcache.New(
			ttlcache.WithTTL[string, User](cfg.TokenTTL),
			ttlcache.WithDisableTouchOnHit[string, User](),
		),
	}, nil
}

// Start runs session expiry until Stop is called.
func (s *Service) Start() {
	go s.sessions.Start()
}

func (s *Service) Stop() {
	s.sessions.Stop()
}

func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := validateRegistration(reg); err != nil {
		return User{}, err
	}

	if _, err := s.docs.FindOne(ctx, UsersCollection, docstore.Filter{"username": reg.Username}); err == nil {
		return User{}, ErrUserExists
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		UserID:   reg.UserID,
		Username: reg.Username,
		Email:    reg.Email,
		FullName: strings.TrimSpace(reg.FullName),
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}

	if _, err := s.docs.Insert(ctx, UsersCollection, docstore.Document{
		"user_id":         user.UserID,
		"username":        user.Username,
		"email":           user.Email,
		"full_name":       user.FullName,
		"hashed_password": string(hash),
		"disabled":        false,
		"created_at":      time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return User{}, fmt.Errorf("failed to store user: %w", err)
	}

	s.log.Info("registered user", "username", user.Username, "user_id", user.UserID)
	return user, nil
}

// Login checks credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	doc, err := s.docs.FindOne(ctx, UsersCollection, docstore.Filter{"username": strings.TrimSpace(username)})
	if errors.Is(err, docstore.ErrNotFound) {
		return Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return Token{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(doc.String("hashed_password")), []byte(password)); err != nil {
		return Token{}, ErrInvalidCredentials
	}
	user := userFromDocument(doc)
	if user.Disabled {
		return Token{}, ErrUserDisabled
	}

	token := uuid.NewString()
	item := s.sessions.Set(token, user, ttlcache.DefaultTTL)
	return Token{AccessToken: token, TokenType: "bearer", ExpiresAt: item.ExpiresAt()}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(token string) (User, error) {
	if token == "" {
		return User{}, ErrInvalidToken
	}
	item := s.sessions.Get(token)
	if item == nil {
		return User{}, ErrInvalidToken
	}
	return item.Value(), nil
}

// Logout revokes a token.
func (s *Service) Logout(token string) {
	s.sessions.Delete(token)
}

// EnsureUser registers the account unless the username already exists.
// Used to seed the demo account in mock-data mode.
func (s *Service) EnsureUser(ctx context.Context, reg Registration) error {
	_, err := s.Register(ctx, reg)
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	return err
}

func userFromDocument(doc docstore.Document) User {
	disabled, _ := doc["disabled"].(bool)
	return User{
		UserID:   doc.String("user_id"),
		Username: doc.String("username"),
		Email:    doc.String("email"),
		FullName: doc.String("full_name"),
		Disabled: disabled,
	}
}

func validateRegistration(reg Registration) error {
	if reg.Username == "" {
		return &ValidationError{Field: "username", Reason: "is required"}
	}
	if strings.ContainsAny(reg.Username, " \t\n") {
		return &ValidationError{Field: "username", Reason: "must not contain whitespace"}
	}
	if len(reg.Password) < minPasswordLen {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}
	if reg.Email != "" {
		if _, err := mail.ParseAddress(reg.Email); err != nil {
			return &ValidationError{Field: "email", Reason: "is not a valid address"}
		}
	}
	return nil
}
