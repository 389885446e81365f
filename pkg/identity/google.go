package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleConfig holds OAuth client settings for Google sign-in.
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

// GoogleProvider implements Provider for Google sign-in.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithUserInfoURL overrides the user info endpoint, used in tests.
func WithUserInfoURL(url string) GoogleOption {
	return func(p *GoogleProvider) {
		if url != "" {
			p.userInfoURL = url
		}
	}
}

// WithEndpoint overrides the OAuth endpoint, used in tests.
func WithEndpoint(endpoint oauth2.Endpoint) GoogleOption {
	return func(p *GoogleProvider) {
		p.oauth.Endpoint = endpoint
	}
}

// NewGoogleProvider creates a Google identity provider.
func NewGoogleProvider(cfg GoogleConfig, opts ...GoogleOption) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("identity: google client ID and secret are required")
	}

	p := &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: defaultUserInfoURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AuthURL returns the Google authorization URL for the given state.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// HandleCallback exchanges the code from the callback request and fetches
// the user's profile from the userinfo endpoint.
func (p *GoogleProvider) HandleCallback(ctx context.Context, r *http.Request) (*Identity, error) {
	code := r.URL.Query().Get("code")
	if code == "" {
		return nil, ErrMissingAuthCode
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Join(ErrExchangeFailed, err)
	}

	client := p.oauth.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, errors.Join(ErrUserInfoFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUserInfoFailed, resp.StatusCode)
	}

	var profile struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, errors.Join(ErrUserInfoFailed, err)
	}
	if profile.Sub == "" {
		return nil, ErrIncompleteProfile
	}

	return &Identity{
		ID:            profile.Sub,
		Email:         profile.Email,
		Name:          profile.Name,
		Picture:       profile.Picture,
		EmailVerified: profile.EmailVerified,
	}, nil
}
