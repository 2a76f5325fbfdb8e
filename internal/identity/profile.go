package identity

// Profile is the verified external profile a provider handshake yields.
// It is consumed once by the Reconciler and never persisted directly.
type Profile struct {
	Provider      string // models.ProviderGoogle | models.ProviderGithub
	ExternalID    string // opaque provider-assigned identifier
	DisplayName   string
	Email         string // empty when the provider exposed no address
	EmailVerified bool
	Photo         string
}
