package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-billing/internal/common"
)

const defaultAccessTTL = 12 * time.Hour

var errInvalidCredentials = common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, nil)

// Service authenticates the shop's staff account and issues access tokens.
// There is a single account; its password hash comes from configuration.
type Service struct {
	username     string
	passwordHash string
	tokens       staffTokens
	now          func() time.Time
}

// Config configures the auth service.
type Config struct {
	Username       string
	PasswordHash   string
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewService validates cfg and fills in the token defaults.
func NewService(cfg Config) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	username := strings.ToLower(strings.TrimSpace(cfg.Username))
	if username == "" {
		return nil, errors.New("auth: staff username is required")
	}
	tokens := staffTokens{
		secret:   []byte(secret),
		issuer:   orDefault(cfg.Issuer, "toko-billing"),
		audience: orDefault(cfg.Audience, "toko-billing-staff"),
		staff:    username,
		ttl:      cfg.AccessTokenTTL,
		skew:     max(cfg.ClockSkew, 0),
	}
	if tokens.ttl <= 0 {
		tokens.ttl = defaultAccessTTL
	}
	return &Service{
		username:     username,
		passwordHash: strings.TrimSpace(cfg.PasswordHash),
		tokens:       tokens,
		now:          time.Now,
	}, nil
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// HashPassword produces an argon2id hash suitable for STAFF_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", common.NewAppError("WEAK_PASSWORD", "password must be at least 8 characters", http.StatusBadRequest, nil)
	}
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

// Login verifies the staff credentials and signs an access token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	logger := zerolog.Ctx(ctx)
	if s.passwordHash == "" {
		logger.Warn().Msg("login_disabled_no_password_hash")
		return LoginResult{}, errInvalidCredentials
	}
	if !strings.EqualFold(strings.TrimSpace(username), s.username) || password == "" {
		return LoginResult{}, errInvalidCredentials
	}
	ok, err := argon2id.ComparePasswordAndHash(password, s.passwordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return LoginResult{}, errInvalidCredentials
	}

	token, expiresAt, err := s.tokens.sign(s.now())
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// ParseAccessToken validates an access token and returns the staff username.
func (s *Service) ParseAccessToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	staff, err := s.tokens.verify(token, s.now())
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	return staff, nil
}
