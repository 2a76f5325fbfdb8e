package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/ssogate/ssogate/handlers"
	"github.com/ssogate/ssogate/internal/config"
	"github.com/ssogate/ssogate/internal/database"
	"github.com/ssogate/ssogate/internal/identity"
	"github.com/ssogate/ssogate/internal/oauth"
	"github.com/ssogate/ssogate/internal/oauth/github"
	"github.com/ssogate/ssogate/internal/oauth/google"
	"github.com/ssogate/ssogate/internal/oauth/state"
	"github.com/ssogate/ssogate/internal/tokens"
	"github.com/ssogate/ssogate/internal/users"
	"github.com/ssogate/ssogate/pkg/logger"
	"github.com/ssogate/ssogate/pkg/metrics"
	"github.com/ssogate/ssogate/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging level is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v mode=%s", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Callback.Mode)

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	r.Use(gin.Logger(), gin.Recovery())

	ctx := context.Background()

	// Connect to Redis early so the rate limiter and state store can use it
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		} else {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// User store: MongoDB when configured, in-memory otherwise (dev/test only)
	var repo users.Repository
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			logger.Fatalf("could not connect to MongoDB: %v", err)
		}
		defer func() { _ = client.Disconnect(ctx) }()

		col := client.Database(cfg.MongoDB.Database).Collection("users")
		mrepo := users.NewMongoRepository(col)
		if err := mrepo.EnsureIndexes(ctx); err != nil {
			logger.Fatalf("could not ensure user indexes: %v", err)
		}
		repo = mrepo
		logger.Infof("Using MongoDB user store: %s", cfg.MongoDB.Database)
	} else {
		repo = users.NewMemoryRepository()
		logger.Warnf("MONGODB_URI not set, using in-memory user store")
	}

	// Anti-forgery state store: Redis when available, in-memory otherwise
	var states state.Store
	if rdb != nil {
		states = state.NewRedisStore(rdb, state.DefaultTTL)
	} else {
		states = state.NewMemoryStore(state.DefaultTTL)
		logger.Warnf("Redis unavailable, using in-memory state store")
	}

	// Providers are constructed explicitly from config; an unconfigured or
	// unreachable provider is skipped, not registered half-working.
	providers := map[string]oauth.Provider{}
	if cfg.OAuth.Google.ClientID != "" {
		gp, err := google.New(ctx, google.Config{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectBase + "/auth/google/callback",
		})
		if err != nil {
			logger.Warnf("google provider disabled: %v", err)
		} else {
			providers[gp.Name()] = gp
		}
	}
	if cfg.OAuth.Github.ClientID != "" {
		gh := github.New(github.Config{
			ClientID:     cfg.OAuth.Github.ClientID,
			ClientSecret: cfg.OAuth.Github.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectBase + "/auth/github/callback",
		})
		providers[gh.Name()] = gh
	}
	if len(providers) == 0 {
		logger.Warnf("no SSO providers configured")
	}

	issuer := tokens.NewIssuer(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	reconciler := identity.NewReconciler(repo)

	h := handlers.NewAuthHandler(cfg, providers, states, reconciler, issuer)
	h.Register(r.Group("/"))
	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1")
	api.GET("/me", middleware.AuthMiddleware(issuer), func(c *gin.Context) {
		claims, _ := c.Get("claims")
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	})

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{
			"store":     repo != nil,
			"providers": len(providers) > 0,
		}
		if cfg.Redis.Host != "" {
			deps["redis"] = rdb != nil
			if rdb == nil {
				ready = false
			}
		}
		if len(providers) == 0 {
			ready = false
		}
		status := http.StatusOK
		label := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			label = "not_ready"
		}
		c.JSON(status, gin.H{"status": label, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting SSO gateway on %s (providers: %d)", addr, len(providers))
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
