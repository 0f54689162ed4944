package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	googleRevokeURL   = "https://oauth2.googleapis.com/revoke"

	defaultRequestTimeout = 10 * time.Second
)

// GoogleConfig configures the Google provider. Endpoint and client
// overrides exist for tests; production deployments only set the
// credential fields.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Scopes defaults to openid, email and profile.
	Scopes []string

	// Timeout bounds each provider call when the caller's context has
	// no deadline of its own. Defaults to 10s.
	Timeout time.Duration

	// AuthURL, TokenURL, UserinfoURL and RevokeURL override the Google
	// endpoints. Used by tests to point at a local server.
	AuthURL     string
	TokenURL    string
	UserinfoURL string
	RevokeURL   string

	// HTTPClient overrides the client used for all provider calls.
	HTTPClient *http.Client
}

// Google implements IdentityProvider against Google's OAuth2 and
// OpenID Connect endpoints.
type Google struct {
	oauth       oauth2.Config
	userinfoURL string
	revokeURL   string
	timeout     time.Duration
	httpClient  *http.Client
}

// NewGoogle validates cfg and returns a Google provider.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("oauth: google client id and secret are required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("oauth: google redirect URL is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}

	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = googleAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	userinfoURL := cfg.UserinfoURL
	if userinfoURL == "" {
		userinfoURL = googleUserinfoURL
	}
	revokeURL := cfg.RevokeURL
	if revokeURL == "" {
		revokeURL = googleRevokeURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Google{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		userinfoURL: userinfoURL,
		revokeURL:   revokeURL,
		timeout:     timeout,
		httpClient:  cfg.HTTPClient,
	}, nil
}

// Name implements IdentityProvider.
func (g *Google) Name() string { return "google" }

// AuthorizationURL implements IdentityProvider. Offline access and
// forced consent guarantee a provider refresh token on first login.
func (g *Google) AuthorizationURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange implements IdentityProvider.
func (g *Google) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := g.requestContext(ctx)
	defer cancel()

	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth: google code exchange: %w", err)
	}
	return tok, nil
}

type googleUserinfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// FetchProfile implements IdentityProvider.
func (g *Google) FetchProfile(ctx context.Context, tok *oauth2.Token) (*Profile, error) {
	ctx, cancel := g.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	tok.SetAuthHeader(req)

	resp, err := g.client(ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth: google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("oauth: google userinfo status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("oauth: google userinfo decode: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, errors.New("oauth: google userinfo missing sub or email")
	}

	return &Profile{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    info.Name,
	}, nil
}

// Revoke implements IdentityProvider.
func (g *Google) Revoke(ctx context.Context, tok *oauth2.Token) error {
	ctx, cancel := g.requestContext(ctx)
	defer cancel()

	form := url.Values{"token": {tok.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client(ctx).Do(req)
	if err != nil {
		return fmt.Errorf("oauth: google revoke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oauth: google revoke status %d", resp.StatusCode)
	}
	return nil
}

func (g *Google) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Google) client(ctx context.Context) *http.Client {
	if g.httpClient != nil {
		return g.httpClient
	}
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok {
		return c
	}
	return http.DefaultClient
}
