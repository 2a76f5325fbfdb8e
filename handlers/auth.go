package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/ssogate/ssogate/internal/config"
	"github.com/ssogate/ssogate/internal/identity"
	"github.com/ssogate/ssogate/internal/models"
	"github.com/ssogate/ssogate/internal/oauth"
	"github.com/ssogate/ssogate/internal/oauth/state"
	"github.com/ssogate/ssogate/internal/tokens"
	"github.com/ssogate/ssogate/pkg/logger"
	"github.com/ssogate/ssogate/pkg/metrics"
)

// Error codes appended to the frontend login URL in redirect mode.
const (
	errCodeInternal = "INTERNAL"
	errCodeDenied   = "SSO_DENIED"
	errCodeExists   = "SSO_EXISTS"
	errCodeNoEmail  = "SSO_NO_EMAIL"
	errCodeDatabase = "DATABASE"
)

// AuthHandler drives the SSO callback flow: handshake result in, bearer
// credential (or mapped error) out. One route pair is registered per
// configured provider; no global provider registry exists.
type AuthHandler struct {
	cfg        *config.Config
	providers  map[string]oauth.Provider
	states     state.Store
	reconciler *identity.Reconciler
	issuer     *tokens.Issuer
}

func NewAuthHandler(cfg *config.Config, providers map[string]oauth.Provider, states state.Store, rec *identity.Reconciler, issuer *tokens.Issuer) *AuthHandler {
	return &AuthHandler{cfg: cfg, providers: providers, states: states, reconciler: rec, issuer: issuer}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	for name, prov := range h.providers {
		a.GET("/"+name, h.begin(prov))
		a.GET("/"+name+"/callback", h.callback(prov))
	}
	a.GET("/verify-token/:token", h.VerifyToken)
}

// begin starts the provider handshake by redirecting to its consent page.
func (h *AuthHandler) begin(prov oauth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := h.states.Issue(c.Request.Context(), prov.Name())
		if err != nil {
			logger.Errorf("state issue failed for %s: %v", prov.Name(), err)
			h.internalError(c, "could not start authentication")
			return
		}
		c.Redirect(http.StatusFound, prov.AuthURL(st))
	}
}

// callback is the core entry point: it consumes the handshake result and
// translates every reconciliation outcome to a client-visible response.
func (h *AuthHandler) callback(prov oauth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		name := prov.Name()
		q := c.Request.URL.Query()

		// provider-reported error arrives without a code; classify before
		// the missing-code check so a declined consent doesn't loop
		if idpErr := q.Get("error"); idpErr != "" {
			if idpErr == "access_denied" {
				h.denied(c, name)
				return
			}
			logger.Errorf("%s handshake error: %s %s", name, idpErr, q.Get("error_description"))
			metrics.LoginOutcomes.WithLabelValues(name, "error").Inc()
			h.internalError(c, "authentication failed")
			return
		}

		// missing code: re-initiate the handshake, not an error
		code := q.Get("code")
		if code == "" {
			c.Redirect(http.StatusFound, "/auth/"+name)
			return
		}

		ok, err := h.states.Consume(ctx, name, q.Get("state"))
		if err != nil {
			logger.Errorf("%s state check failed: %v", name, err)
			h.internalError(c, "authentication failed")
			return
		}
		if !ok {
			logger.Warnf("%s callback with unknown or expired state", name)
			h.invalidState(c)
			return
		}

		profile, err := prov.Exchange(ctx, code)
		if err != nil {
			logger.Errorf("%s handshake failed: %v", name, err)
			metrics.LoginOutcomes.WithLabelValues(name, "error").Inc()
			h.internalError(c, "authentication failed")
			return
		}
		if profile == nil {
			h.denied(c, name)
			return
		}

		user, outcome, err := h.reconciler.Reconcile(ctx, profile)
		if err != nil {
			h.reconcileError(c, name, err)
			return
		}

		token, err := h.issuer.Issue(userClaims(user, name))
		if err != nil {
			logger.Errorf("%s token issuance failed: %v", name, err)
			metrics.LoginOutcomes.WithLabelValues(name, "error").Inc()
			h.internalError(c, "token issuance failed")
			return
		}

		metrics.LoginOutcomes.WithLabelValues(name, string(outcome)).Inc()
		metrics.TokensIssued.WithLabelValues(name).Inc()

		if h.redirectMode() {
			c.Redirect(http.StatusFound, h.cfg.Callback.FrontendBase+"/api/auth/callback?token="+url.QueryEscape(token))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": user})
	}
}

// reconcileError maps reconciliation failures to the client. Conflicts and
// missing emails are expected business outcomes and are not logged as
// errors; store failures are logged in full, the client sees an opaque 500.
func (h *AuthHandler) reconcileError(c *gin.Context, provider string, err error) {
	var conflict *identity.ConflictError
	switch {
	case errors.As(err, &conflict):
		metrics.LoginOutcomes.WithLabelValues(provider, "conflict").Inc()
		if h.redirectMode() {
			h.loginRedirect(c, errCodeExists)
			return
		}
		c.String(http.StatusForbidden, "Email already exists")
	case errors.Is(err, identity.ErrMissingEmail):
		metrics.LoginOutcomes.WithLabelValues(provider, "missing_email").Inc()
		if h.redirectMode() {
			h.loginRedirect(c, errCodeNoEmail)
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Email not provided by provider"})
	default:
		logger.Errorf("%s reconciliation store failure: %v", provider, err)
		metrics.LoginOutcomes.WithLabelValues(provider, "error").Inc()
		if h.redirectMode() {
			h.loginRedirect(c, errCodeDatabase)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "database error"})
	}
}

func (h *AuthHandler) denied(c *gin.Context, provider string) {
	metrics.LoginOutcomes.WithLabelValues(provider, "denied").Inc()
	if h.redirectMode() {
		h.loginRedirect(c, errCodeDenied)
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication denied"})
}

func (h *AuthHandler) invalidState(c *gin.Context) {
	if h.redirectMode() {
		h.loginRedirect(c, errCodeDenied)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid or expired state"})
}

func (h *AuthHandler) internalError(c *gin.Context, message string) {
	if h.redirectMode() {
		h.loginRedirect(c, errCodeInternal)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": message})
}

func (h *AuthHandler) redirectMode() bool {
	return h.cfg.Callback.Mode == config.ModeRedirect
}

func (h *AuthHandler) loginRedirect(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, h.cfg.Callback.FrontendBase+"/auth/login?error="+code)
}

// userClaims builds the claim set a bearer credential carries: the user's
// public fields plus the provider the login came through.
func userClaims(u *models.User, provider string) map[string]interface{} {
	claims := map[string]interface{}{
		"sub":      u.ID,
		"email":    u.Email,
		"name":     u.Name,
		"provider": provider,
	}
	if u.GoogleID != "" {
		claims["googleId"] = u.GoogleID
	}
	if u.GithubID != "" {
		claims["githubId"] = u.GithubID
	}
	if u.Photo != "" {
		claims["photo"] = u.Photo
	}
	claims["emailVerified"] = u.EmailVerifiedAt != nil
	return claims
}

// VerifyToken implements GET /auth/verify-token/:token, the standalone
// check clients use to validate a previously issued credential.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Token param missing"})
		return
	}
	claims, ok := h.issuer.Verify(token)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Token is valid", "user": claims})
}
