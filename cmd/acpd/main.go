// Command acpd runs the ACP agent registry HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/solace-protocol/acp/internal/activity"
	"github.com/solace-protocol/acp/internal/identity"
	"github.com/solace-protocol/acp/internal/registry/handler"
	"github.com/solace-protocol/acp/internal/registry/model"
	"github.com/solace-protocol/acp/internal/registry/service"
	"github.com/solace-protocol/acp/internal/registry/store"
	"github.com/solace-protocol/acp/internal/solana"
)

const version = "1.0.0"

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("acpd exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("acpd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("acp")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("database.url", "")
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.token_ttl_seconds", 86400)
	viper.SetDefault("auth.admin_secret", "")
	viper.SetDefault("auth.dev_user_id", "user_123")
	viper.SetDefault("auth.dev_wallet", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	viper.SetDefault("solana.deploy_latency", "2s")
	viper.SetDefault("solana.deploy_fail_rate", 0.0)

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	// ── Storage ──────────────────────────────────────────────────────────────
	var (
		agents store.Store
		log    activity.Log
		db     *pgxpool.Pool
	)
	if dbURL := viper.GetString("database.url"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")
		db = pool
		agents = store.NewPostgres(db)
		log = activity.NewPostgresLog(db, logger)
	} else {
		logger.Info("no database.url configured, using in-memory storage")
		agents = store.NewMemory()
		log = activity.NewMemoryLog()
	}

	// ── Auth ─────────────────────────────────────────────────────────────────
	httpPort := viper.GetInt("server.port")
	issuerURL := fmt.Sprintf("http://localhost:%d", httpPort)

	var tokens *identity.TokenIssuer
	if secret := viper.GetString("auth.jwt_secret"); secret != "" {
		ttl := time.Duration(viper.GetInt("auth.token_ttl_seconds")) * time.Second
		tokens = identity.NewTokenIssuer([]byte(secret), issuerURL, ttl)
		logger.Info("JWT session auth enabled")
	} else {
		logger.Warn("auth.jwt_secret not set — JWT auth disabled, using dev principal")
	}

	devPrincipal := &identity.Principal{
		UserID: viper.GetString("auth.dev_user_id"),
		Wallet: viper.GetString("auth.dev_wallet"),
	}
	auth := identity.NewAuth(tokens, viper.GetString("auth.admin_secret"), devPrincipal)

	// ── Deployer ─────────────────────────────────────────────────────────────
	deployLatency, err := time.ParseDuration(viper.GetString("solana.deploy_latency"))
	if err != nil {
		return fmt.Errorf("parse solana.deploy_latency: %w", err)
	}
	deployer := solana.NewSimulator(deployLatency, viper.GetFloat64("solana.deploy_fail_rate"), logger)

	// ── Wire up layers ───────────────────────────────────────────────────────
	svc := service.NewAgentService(agents, deployer, log, logger)
	agentHandler := handler.NewAgentHandler(svc, auth, logger)

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.RequestID())

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Request-ID", "X-Admin-Secret"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.Use(handler.SecurityHeaders())

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	if rps := viper.GetInt("server.rate_limit_rps"); rps > 0 {
		router.Use(handler.RateLimiter(rps, rps*2))
	}

	router.Use(handler.RequestLogger(logger))
	router.Use(handler.PrometheusMiddleware())

	// Public endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   version,
		})
	})
	router.GET("/api/status", func(c *gin.Context) {
		total, err := agents.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "operational",
			"version": version,
			"agents":  total,
		})
	})
	router.GET("/metrics", handler.MetricsHandler())

	api := router.Group("/api")
	agentHandler.Register(api)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	// ── Background: refresh agent status gauges every 30 seconds ────────────
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				refreshAgentGauges(ctx, agents, logger)
				cancel()
			case <-done:
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("acpd listening", zap.Int("port", httpPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	<-quit
	close(done)
	logger.Info("shutting down acpd...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("acpd stopped")
	return nil
}

// refreshAgentGauges recounts agents per status and updates the Prometheus
// gauges.
func refreshAgentGauges(ctx context.Context, agents store.Store, logger *zap.Logger) {
	all, err := agents.Scan(ctx)
	if err != nil {
		logger.Warn("agent gauge refresh failed", zap.Error(err))
		return
	}
	counts := make(map[model.AgentStatus]int)
	for _, a := range all {
		counts[a.Status]++
	}
	for _, status := range model.AgentStatuses() {
		handler.SetAgentsGauge(string(status), float64(counts[status]))
	}
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
