package models

// Supported external identity providers.
const (
	ProviderGoogle = "google"
	ProviderGithub = "github"
)

// ValidProvider checks if the provider is supported
func ValidProvider(p string) bool {
	switch p {
	case ProviderGoogle, ProviderGithub:
		return true
	default:
		return false
	}
}

// ProviderID returns the external id linked for the given provider,
// empty when unlinked or the provider is unknown.
func (u *User) ProviderID(provider string) string {
	switch provider {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderGithub:
		return u.GithubID
	}
	return ""
}

// SetProviderID links the external id for the given provider.
func (u *User) SetProviderID(provider, externalID string) {
	switch provider {
	case ProviderGoogle:
		u.GoogleID = externalID
	case ProviderGithub:
		u.GithubID = externalID
	}
}
