package google

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/ssogate/ssogate/internal/identity"
	"github.com/ssogate/ssogate/internal/models"
	"golang.org/x/oauth2"
)

const issuer = "https://accounts.google.com"

// Config holds the Google OAuth2/OIDC client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Issuer overrides the Google issuer, for tests only.
	Issuer string
}

// Provider implements the Google handshake: authorization-code exchange
// followed by id_token verification against Google's JWKS.
type Provider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// New discovers the Google OIDC endpoints and builds the provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	iss := cfg.Issuer
	if iss == "" {
		iss = issuer
	}
	p, err := oidc.NewProvider(ctx, iss)
	if err != nil {
		return nil, fmt.Errorf("google oidc discovery: %w", err)
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     p.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: p.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (p *Provider) Name() string { return models.ProviderGoogle }

func (p *Provider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

type idClaims struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
}

func (p *Provider) Exchange(ctx context.Context, code string) (*identity.Profile, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		// exchange succeeded but Google produced no identity
		return nil, nil
	}
	idt, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("google id_token verify: %w", err)
	}
	var claims idClaims
	if err := idt.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google id_token claims: %w", err)
	}
	if claims.Sub == "" {
		return nil, nil
	}
	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	return &identity.Profile{
		Provider:      models.ProviderGoogle,
		ExternalID:    claims.Sub,
		DisplayName:   name,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified && claims.Email != "",
		Photo:         claims.Picture,
	}, nil
}
