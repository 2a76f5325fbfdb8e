package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Response modes for the SSO callback. Picked once per deployment; the
// callback never mixes them per request.
const (
	ModeJSON     = "json"
	ModeRedirect = "redirect"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	OAuth     OAuthConfig
	Callback  CallbackConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ProviderCredentials are the OAuth2 client credentials for one provider.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
}

type OAuthConfig struct {
	Google ProviderCredentials
	Github ProviderCredentials
	// RedirectBase is the externally visible origin of this service, used
	// to build /auth/{provider}/callback redirect URLs registered at the
	// providers.
	RedirectBase string
}

type CallbackConfig struct {
	// Mode selects how callback outcomes are returned: ModeJSON responds
	// with JSON bodies, ModeRedirect bounces to FrontendBase with the
	// token (or error code) in the query string.
	Mode         string
	FrontendBase string
}

type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file.
// It fails when JWT_SECRET is unset: signing with a well-known default
// secret is not an option, refuse to start instead.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5002")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("JWT_TOKEN_TTL", 60)
	viper.SetDefault("CALLBACK_MODE", ModeJSON)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		OAuth: OAuthConfig{
			Google: ProviderCredentials{
				ClientID:     viper.GetString("GOOGLE_CLIENT_ID"),
				ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			},
			Github: ProviderCredentials{
				ClientID:     viper.GetString("GITHUB_CLIENT_ID"),
				ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			},
			RedirectBase: viper.GetString("OAUTH_REDIRECT_BASE"),
		},
		Callback: CallbackConfig{
			Mode:         viper.GetString("CALLBACK_MODE"),
			FrontendBase: frontendBase(),
		},
		JWT: JWTConfig{
			Secret:   os.Getenv("JWT_SECRET"),
			TokenTTL: time.Duration(viper.GetInt("JWT_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Callback.Mode != ModeJSON && cfg.Callback.Mode != ModeRedirect {
		return nil, fmt.Errorf("CALLBACK_MODE must be %q or %q, got %q", ModeJSON, ModeRedirect, cfg.Callback.Mode)
	}
	if cfg.Callback.Mode == ModeRedirect && cfg.Callback.FrontendBase == "" {
		return nil, fmt.Errorf("FRONTEND_BASE is required when CALLBACK_MODE=%s", ModeRedirect)
	}

	return cfg, nil
}

// frontendBase reads the redirect-mode target origin. NEXT_URL is accepted
// as a legacy alias for FRONTEND_BASE.
func frontendBase() string {
	if v := viper.GetString("FRONTEND_BASE"); v != "" {
		return v
	}
	return viper.GetString("NEXT_URL")
}
