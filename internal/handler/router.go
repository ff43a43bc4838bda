package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/tourledger/internal/identity"
	"github.com/jmerrifield20/tourledger/internal/ledger"
)

// RouterConfig carries the HTTP surface settings.
type RouterConfig struct {
	CORSOrigins  []string
	RateLimitRPS int   // 0 = no rate limiting
	MaxBodyBytes int64 // 0 = 1 MiB

	// Degraded reports a failing integrity audit on /healthz. nil = never.
	Degraded func() bool
}

// NewRouter builds the gin engine with middleware and every route mounted.
// ctx bounds background work such as rate limiter cleanup.
func NewRouter(ctx context.Context, cfg RouterConfig, l *ledger.Ledger, tokens *identity.TokenIssuer, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if len(cfg.CORSOrigins) > 0 {
		router.Use(CORS(cfg.CORSOrigins))
	}
	router.Use(SecurityHeaders())

	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	router.Use(BodyLimit(cfg.MaxBodyBytes))

	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}
	router.Use(PrometheusMiddleware())
	router.Use(RequestLogger(logger))

	router.GET("/healthz", Healthz(l, cfg.Degraded, logger))
	router.GET("/metrics", MetricsHandler())

	v1 := router.Group("/api/v1")
	NewVerificationHandler(l, tokens, logger).Register(v1)
	NewLedgerHandler(l, tokens, logger).Register(v1)

	return router
}
