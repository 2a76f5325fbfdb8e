package oauth

import (
	"context"

	"github.com/ssogate/ssogate/internal/identity"
)

// Provider abstracts one external identity provider's handshake.
// Exchange returns (nil, nil) when the provider structurally completed
// the exchange but declined to authenticate the user; an error means the
// upstream call itself failed.
type Provider interface {
	// Name returns the provider name ("google", "github").
	Name() string

	// AuthURL builds the provider authorization URL carrying the given
	// anti-forgery state.
	AuthURL(state string) string

	// Exchange redeems the authorization code and resolves the verified
	// external profile.
	Exchange(ctx context.Context, code string) (*identity.Profile, error)
}
