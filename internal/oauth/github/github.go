// Package github implements OAuth 2.0 authentication with GitHub.
// GitHub issues no id_token, so the profile is assembled from separate
// calls to the /user and /user/emails REST endpoints.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ssogate/ssogate/internal/identity"
	"github.com/ssogate/ssogate/internal/models"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

const defaultAPIBase = "https://api.github.com"

// Config holds the GitHub OAuth2 client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and APIBase override the GitHub endpoints, for tests only.
	Endpoint oauth2.Endpoint
	APIBase  string
}

type Provider struct {
	oauth *oauth2.Config
	api   string
	http  *http.Client
}

func New(cfg Config) *Provider {
	ep := cfg.Endpoint
	if ep.AuthURL == "" {
		ep = githuboauth.Endpoint
	}
	api := cfg.APIBase
	if api == "" {
		api = defaultAPIBase
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     ep,
			Scopes:       []string{"user:email", "read:user"},
		},
		api:  api,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Provider) Name() string { return models.ProviderGithub }

func (p *Provider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

type apiUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type apiEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *Provider) Exchange(ctx context.Context, code string) (*identity.Profile, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github code exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, nil
	}

	var u apiUser
	if err := p.get(ctx, tok.AccessToken, "/user", &u); err != nil {
		return nil, fmt.Errorf("github user fetch: %w", err)
	}
	if u.ID == 0 {
		return nil, nil
	}

	email := u.Email
	verified := email != "" // public profile email, taken at face value
	if email == "" {
		var emails []apiEmail
		if err := p.get(ctx, tok.AccessToken, "/user/emails", &emails); err != nil {
			return nil, fmt.Errorf("github emails fetch: %w", err)
		}
		email, verified = pickEmail(emails)
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}
	return &identity.Profile{
		Provider:      models.ProviderGithub,
		ExternalID:    strconv.FormatInt(u.ID, 10),
		DisplayName:   name,
		Email:         email,
		EmailVerified: verified && email != "",
		Photo:         u.AvatarURL,
	}, nil
}

// pickEmail prefers the primary verified address, then any verified one,
// then the first listed.
func pickEmail(emails []apiEmail) (string, bool) {
	var anyVerified, first string
	for _, e := range emails {
		if e.Email == "" {
			continue
		}
		if e.Primary && e.Verified {
			return e.Email, true
		}
		if e.Verified && anyVerified == "" {
			anyVerified = e.Email
		}
		if first == "" {
			first = e.Email
		}
	}
	if anyVerified != "" {
		return anyVerified, true
	}
	return first, false
}

func (p *Provider) get(ctx context.Context, token, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.api+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api %s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
