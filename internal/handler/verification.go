package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmerrifield20/tourledger/internal/identity"
	"github.com/jmerrifield20/tourledger/internal/ledger"
)

// VerificationHandler exposes registration and verification of guides,
// products, artisans and bookings.
type VerificationHandler struct {
	ledger *ledger.Ledger
	tokens *identity.TokenIssuer // nil = open mode, actor "anonymous"
	logger *zap.Logger
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(l *ledger.Ledger, tokens *identity.TokenIssuer, logger *zap.Logger) *VerificationHandler {
	return &VerificationHandler{ledger: l, tokens: tokens, logger: logger}
}

// Register mounts the verification routes on the given router group.
func (h *VerificationHandler) Register(rg *gin.RouterGroup) {
	registrar := identity.RequireRole(h.tokens, identity.RoleRegistrar)
	viewer := identity.OptionalUser(h.tokens)

	rg.POST("/guides", registrar, h.RegisterGuide)
	rg.GET("/guides/verify", viewer, h.VerifyGuide)
	rg.POST("/products", registrar, h.RegisterProduct)
	rg.GET("/products/verify", viewer, h.VerifyProduct)
	rg.POST("/artisans", registrar, h.RegisterArtisan)
	rg.GET("/artisans/verify", viewer, h.VerifyArtisan)

	rg.POST("/bookings", identity.RequireUser(h.tokens), h.RecordBooking)
	rg.GET("/bookings/:id/verify", viewer, h.VerifyBooking)

	rg.GET("/scan", viewer, h.Scan)
}

func (h *VerificationHandler) registered(c *gin.Context, t ledger.RecordType, rc *ledger.Receipt, err error) {
	if err != nil {
		writeError(c, h.logger, "register "+string(t), err)
		return
	}
	RecordAppend(string(t))
	h.logger.Info("ledger record registered",
		zap.String("record_id", rc.RecordID),
		zap.String("actor", identity.ActorFromCtx(c)),
	)
	c.JSON(http.StatusCreated, rc)
}

// RegisterGuide handles POST /guides.
func (h *VerificationHandler) RegisterGuide(c *gin.Context) {
	var req ledger.GuideVerification
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rc, err := h.ledger.RegisterGuide(c.Request.Context(), identity.ActorFromCtx(c), req)
	h.registered(c, ledger.RecordTypeGuide, rc, err)
}

// RegisterProduct handles POST /products.
func (h *VerificationHandler) RegisterProduct(c *gin.Context) {
	var req ledger.ProductAuthenticity
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rc, err := h.ledger.RegisterProduct(c.Request.Context(), identity.ActorFromCtx(c), req)
	h.registered(c, ledger.RecordTypeProduct, rc, err)
}

// RegisterArtisan handles POST /artisans.
func (h *VerificationHandler) RegisterArtisan(c *gin.Context) {
	var req ledger.ArtisanVerification
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rc, err := h.ledger.RegisterArtisan(c.Request.Context(), identity.ActorFromCtx(c), req)
	h.registered(c, ledger.RecordTypeArtisan, rc, err)
}

func qrParam(c *gin.Context) (string, bool) {
	qr := strings.TrimSpace(c.Query("qr"))
	if qr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"verified": false, "error": "qr query parameter is required"})
		return "", false
	}
	return qr, true
}

// verified writes the outcome of a verify lookup under key.
func (h *VerificationHandler) verified(c *gin.Context, t ledger.RecordType, key string, v any, err error) {
	RecordVerification(string(t), verificationResult(err))
	h.logVerifier(c, "verify", t, err)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"verified": true, key: v})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"verified": false})
	default:
		writeError(c, h.logger, "verify "+string(t), err)
	}
}

// VerifyGuide handles GET /guides/verify?qr=.
func (h *VerificationHandler) VerifyGuide(c *gin.Context) {
	qr, ok := qrParam(c)
	if !ok {
		return
	}
	g, err := h.ledger.VerifyGuide(c.Request.Context(), qr)
	h.verified(c, ledger.RecordTypeGuide, "guide", g, err)
}

// VerifyProduct handles GET /products/verify?qr=.
func (h *VerificationHandler) VerifyProduct(c *gin.Context) {
	qr, ok := qrParam(c)
	if !ok {
		return
	}
	p, err := h.ledger.VerifyProduct(c.Request.Context(), qr)
	h.verified(c, ledger.RecordTypeProduct, "product", p, err)
}

// VerifyArtisan handles GET /artisans/verify?qr=.
func (h *VerificationHandler) VerifyArtisan(c *gin.Context) {
	qr, ok := qrParam(c)
	if !ok {
		return
	}
	a, err := h.ledger.VerifyArtisan(c.Request.Context(), qr)
	h.verified(c, ledger.RecordTypeArtisan, "artisan", a, err)
}

// RecordBooking handles POST /bookings. A missing bookingId is generated and
// a missing touristId defaults to the authenticated caller.
func (h *VerificationHandler) RecordBooking(c *gin.Context) {
	var req ledger.BookingRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.BookingID == "" {
		req.BookingID = uuid.NewString()
	}
	if req.TouristID == "" {
		if claims := identity.ClaimsFromCtx(c); claims != nil {
			req.TouristID = claims.Subject
		}
	}

	actor := identity.ActorFromCtx(c)
	hash, err := h.ledger.RecordBooking(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.logger, "record booking", err)
		return
	}
	RecordAppend(string(ledger.RecordTypeBooking))
	h.logger.Info("booking recorded",
		zap.String("booking_id", req.BookingID),
		zap.String("actor", actor),
	)
	c.JSON(http.StatusCreated, gin.H{
		"booking_id":        req.BookingID,
		"hash":              hash,
		"confirmation_code": ledger.BookingTokenPrefix + req.BookingID,
	})
}

// VerifyBooking handles GET /bookings/:id/verify. The id may carry the BOOKING_ prefix.
func (h *VerificationHandler) VerifyBooking(c *gin.Context) {
	b, err := h.ledger.VerifyBooking(c.Request.Context(), c.Param("id"))
	h.verified(c, ledger.RecordTypeBooking, "booking", b, err)
}

// Scan handles GET /scan?qr= and dispatches a scanned code on its prefix.
func (h *VerificationHandler) Scan(c *gin.Context) {
	qr, ok := qrParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if strings.HasPrefix(qr, ledger.BookingTokenPrefix) {
		b, err := h.ledger.VerifyBooking(ctx, qr)
		h.scanned(c, ledger.RecordTypeBooking, b, err)
		return
	}

	tok, err := ledger.ParseQRToken(qr)
	if err != nil {
		RecordVerification("unknown", "invalid")
		c.JSON(http.StatusBadRequest, gin.H{"verified": false, "error": err.Error()})
		return
	}
	switch tok.Type {
	case ledger.RecordTypeGuide:
		g, err := h.ledger.VerifyGuide(ctx, qr)
		h.scanned(c, tok.Type, g, err)
	case ledger.RecordTypeProduct:
		p, err := h.ledger.VerifyProduct(ctx, qr)
		h.scanned(c, tok.Type, p, err)
	case ledger.RecordTypeArtisan:
		a, err := h.ledger.VerifyArtisan(ctx, qr)
		h.scanned(c, tok.Type, a, err)
	}
}

func (h *VerificationHandler) scanned(c *gin.Context, t ledger.RecordType, v any, err error) {
	RecordVerification(string(t), verificationResult(err))
	h.logVerifier(c, "scan", t, err)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"verified": true, "type": t, "record": v})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"verified": false, "type": t})
	default:
		writeError(c, h.logger, "scan "+string(t), err)
	}
}

// logVerifier records who looked a code up. Anonymous lookups are logged too.
func (h *VerificationHandler) logVerifier(c *gin.Context, op string, t ledger.RecordType, err error) {
	h.logger.Debug("ledger lookup",
		zap.String("op", op),
		zap.String("type", string(t)),
		zap.String("verifier", identity.ActorFromCtx(c)),
		zap.String("result", verificationResult(err)),
	)
}
