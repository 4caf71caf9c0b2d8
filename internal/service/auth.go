package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"digilocker/internal/config"
	"digilocker/internal/model"
	"digilocker/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRateLimited        = errors.New("too many login attempts, try again later")
	ErrEmailTaken         = errors.New("email already registered")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
)

// TokenPair is the session credential issued on successful authentication.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterResult reports the outcome of a signup. When the deployment
// requires email confirmation, no session is established and
// PendingConfirmation is set instead.
type RegisterResult struct {
	User                *model.User `json:"user"`
	Tokens              *TokenPair  `json:"tokens,omitempty"`
	PendingConfirmation bool        `json:"pending_confirmation"`
}

// AuthService implements the identity provider boundary: password sign-up and
// sign-in, session teardown, and token refresh. Federated sign-in lives in
// OAuthService and funnels into issueSession here.
type AuthService struct {
	users   repository.UserRepository
	cfg     config.AuthConfig
	log     *zap.Logger
	limiter *loginLimiter
}

func NewAuthService(users repository.UserRepository, cfg config.AuthConfig, log *zap.Logger) *AuthService {
	return &AuthService{
		users:   users,
		cfg:     cfg,
		log:     log,
		limiter: newLoginLimiter(cfg.LoginAttempts, cfg.LoginWindow),
	}
}

// Register creates a new identity. Depending on configuration the session is
// either established immediately or deferred until email confirmation.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*RegisterResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, errors.New("name, email and password are required")
	}

	taken, err := s.users.IsEmailTaken(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		EmailConfirmed: !s.cfg.RequireEmailConfirmation,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID))

	if s.cfg.RequireEmailConfirmation {
		return &RegisterResult{User: user, PendingConfirmation: true}, nil
	}

	tokens, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{User: user, Tokens: tokens}, nil
}

// Login authenticates with email and password. Failures are classified:
// unknown email or wrong password map to ErrInvalidCredentials, exhausted
// attempt budget to ErrRateLimited, everything else is a remote failure.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if !s.limiter.allow(email) {
		s.log.Warn("login rate limited", zap.String("email", email))
		return nil, nil, ErrRateLimited
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.limiter.fail(email)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		s.limiter.fail(email)
		s.log.Warn("login failed", zap.String("user_id", user.ID))
		return nil, nil, ErrInvalidCredentials
	}

	if !user.EmailConfirmed {
		return nil, nil, ErrEmailNotConfirmed
	}

	tokens, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	s.limiter.reset(email)
	s.log.Info("user logged in", zap.String("user_id", user.ID))
	return tokens, user, nil
}

// Refresh validates a stored refresh token and rotates the pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := ParseToken(s.cfg.JWTSecret, refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}

	valid, err := s.users.IsRefreshTokenValid(ctx, userID, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("validate refresh token: %w", err)
	}
	if !valid {
		return nil, ErrInvalidToken
	}

	if err := s.users.DeleteRefreshToken(ctx, userID, refreshToken); err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return s.issueSession(ctx, userID)
}

// Logout tears down the session by discarding the refresh token. The caller
// is responsible for dropping identity-scoped state (the vault manager does
// this for the document mirror).
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) error {
	if err := s.users.DeleteRefreshToken(ctx, userID, refreshToken); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	s.log.Info("user logged out", zap.String("user_id", userID))
	return nil
}

// ConfirmEmail marks the identity's email as confirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, userID string) error {
	return s.users.SetEmailConfirmed(ctx, userID, true)
}

// User returns the identity for an id.
func (s *AuthService) User(ctx context.Context, id string) (*model.User, error) {
	return s.users.FindByID(ctx, id)
}

// issueSession generates an access/refresh pair and persists the refresh token.
func (s *AuthService) issueSession(ctx context.Context, userID string) (*TokenPair, error) {
	access, err := generateToken(s.cfg.JWTSecret, userID, tokenTypeAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := generateToken(s.cfg.JWTSecret, userID, tokenTypeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.users.SaveRefreshToken(ctx, userID, refresh); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
