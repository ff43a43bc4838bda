package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/tourledger/internal/identity"
	"github.com/jmerrifield20/tourledger/internal/ledger"
)

// LedgerHandler exposes chain inspection, integrity and analytics endpoints.
type LedgerHandler struct {
	ledger *ledger.Ledger
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(l *ledger.Ledger, tokens *identity.TokenIssuer, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: l, tokens: tokens, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/verify", h.Verify)
		l.GET("/records/:idx", h.GetRecord)
		l.GET("/analytics", identity.RequireRole(h.tokens, identity.RoleRegistrar), h.Analytics)
	}
}

// Overview handles GET /ledger and returns the chain length and current tip hash.
func (h *LedgerHandler) Overview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"entries":        h.ledger.Len(),
		"root":           h.ledger.Root(),
		"hash_algorithm": h.ledger.Hasher().Name(),
	})
}

// Verify handles GET /ledger/verify[?scope=store]. The default scope checks
// the in-memory chain; scope=store re-reads and checks the persisted history.
func (h *LedgerHandler) Verify(c *gin.Context) {
	scope := c.DefaultQuery("scope", "memory")

	var err error
	switch scope {
	case "memory":
		err = h.ledger.Verify()
	case "store":
		err = h.ledger.VerifyStored(c.Request.Context())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be memory or store"})
		return
	}

	SetChainValid(scope, err == nil)
	if err != nil {
		h.logger.Warn("ledger integrity check failed", zap.String("scope", scope), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"scope": scope,
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "scope": scope})
}

// GetRecord handles GET /ledger/records/:idx and returns a single in-memory record.
func (h *LedgerHandler) GetRecord(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idx must be a non-negative integer"})
		return
	}

	rec, err := h.ledger.Get(idx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Analytics handles GET /ledger/analytics.
func (h *LedgerHandler) Analytics(c *gin.Context) {
	a, err := h.ledger.Analytics(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "ledger analytics", err)
		return
	}
	SetChainValid("memory", a.ChainIntegrity)
	c.JSON(http.StatusOK, a)
}

// Healthz returns a handler that reports 503 when the store cannot be pinged
// or degraded reports a failing integrity audit.
func Healthz(l *ledger.Ledger, degraded func() bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := l.Ping(ctx); err != nil {
			RecordHealthCheck("healthz", false)
			logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		if degraded != nil && degraded() {
			RecordHealthCheck("healthz", false)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		RecordHealthCheck("healthz", true)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
