package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/tourledger/internal/ledger"
)

// writeError maps ledger errors onto HTTP responses. Unexpected errors are
// logged and reported without detail.
func writeError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, ledger.ErrInvalidQRCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	default:
		logger.Error(op, zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// verificationResult classifies a verify error for metrics.
func verificationResult(err error) string {
	switch {
	case err == nil:
		return "verified"
	case errors.Is(err, ledger.ErrNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrInvalidQRCode):
		return "invalid"
	}
	var ve *ledger.ValidationError
	if errors.As(err, &ve) {
		return "invalid"
	}
	return "error"
}
