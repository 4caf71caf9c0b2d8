package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"digilocker/internal/config"
	"digilocker/internal/model"
	"digilocker/internal/repository"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// oauthProvider bundles the oauth2 config with the provider's userinfo endpoint.
type oauthProvider struct {
	conf        *oauth2.Config
	userInfoURL string
}

// OAuthService implements federated sign-in through the authorization-code
// flow. It provisions a local identity on first sign-in and issues the same
// token pair as password auth.
type OAuthService struct {
	providers map[string]oauthProvider
	users     repository.UserRepository
	auth      *AuthService
	log       *zap.Logger
}

func NewOAuthService(cfgs map[string]config.OAuthProviderConfig, users repository.UserRepository, auth *AuthService, log *zap.Logger) *OAuthService {
	providers := make(map[string]oauthProvider, len(cfgs))
	for name, c := range cfgs {
		providers[name] = oauthProvider{
			conf: &oauth2.Config{
				ClientID:     c.ClientID,
				ClientSecret: c.ClientSecret,
				RedirectURL:  c.RedirectURL,
				Scopes:       c.Scopes,
				Endpoint: oauth2.Endpoint{
					AuthURL:  c.AuthURL,
					TokenURL: c.TokenURL,
				},
			},
			userInfoURL: c.UserInfoURL,
		}
	}
	return &OAuthService{providers: providers, users: users, auth: auth, log: log}
}

// AuthURL returns the provider's consent page URL for a redirect flow.
func (s *OAuthService) AuthURL(provider, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return p.conf.AuthCodeURL(state), nil
}

// userInfo is the subset of the provider's userinfo payload this service
// consumes. Field aliases cover both OIDC (sub/picture) and GitHub
// (id/avatar_url) shapes.
type userInfo struct {
	Sub       string          `json:"sub"`
	ID        json.RawMessage `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Picture   string          `json:"picture"`
	AvatarURL string          `json:"avatar_url"`
}

func (u userInfo) subject() string {
	if u.Sub != "" {
		return u.Sub
	}
	return strings.Trim(string(u.ID), `"`)
}

func (u userInfo) avatar() string {
	if u.Picture != "" {
		return u.Picture
	}
	return u.AvatarURL
}

// Exchange completes the code flow: swaps the code for a provider token,
// fetches the user profile, provisions or loads the local identity, and
// issues a session.
func (s *OAuthService) Exchange(ctx context.Context, provider, code string) (*TokenPair, *model.User, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, nil, ErrUnknownProvider
	}

	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange code: %w", err)
	}

	info, err := s.fetchUserInfo(ctx, p, tok)
	if err != nil {
		return nil, nil, err
	}
	if info.subject() == "" {
		return nil, nil, fmt.Errorf("provider %s returned no subject", provider)
	}

	user, err := s.findOrCreate(ctx, provider, info)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.auth.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("federated sign-in", zap.String("provider", provider), zap.String("user_id", user.ID))
	return tokens, user, nil
}

func (s *OAuthService) fetchUserInfo(ctx context.Context, p oauthProvider, tok *oauth2.Token) (*userInfo, error) {
	client := p.conf.Client(ctx, tok)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}

func (s *OAuthService) findOrCreate(ctx context.Context, provider string, info *userInfo) (*model.User, error) {
	user, err := s.users.FindByProvider(ctx, provider, info.subject())
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find federated user: %w", err)
	}

	// First sign-in through this provider. Link to an existing account with
	// the same email if there is one.
	if info.Email != "" {
		if existing, err := s.users.FindByEmail(ctx, strings.ToLower(info.Email)); err == nil {
			return existing, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find user by email: %w", err)
		}
	}

	name := info.Name
	if name == "" {
		name = info.Email
	}
	user, err = s.users.Create(ctx, &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          strings.ToLower(info.Email),
		AvatarURL:      info.avatar(),
		EmailConfirmed: true, // the provider vouches for the address
		Provider:       provider,
		ProviderID:     info.subject(),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("provision federated user: %w", err)
	}
	return user, nil
}
