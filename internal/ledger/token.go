package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// BookingTokenPrefix prefixes booking confirmation codes ("BOOKING_{bookingId}").
const BookingTokenPrefix = "BOOKING_"

// tokenPrefix returns the QR prefix for t, e.g. "GUIDE_".
func tokenPrefix(t RecordType) string {
	return strings.ToUpper(string(t)) + "_"
}

// NewQRToken builds the printable token "{TYPE}_{entityID}_{millis}".
func NewQRToken(t RecordType, entityID string, millis int64) string {
	return tokenPrefix(t) + entityID + "_" + strconv.FormatInt(millis, 10)
}

// QRToken is a parsed verification token.
type QRToken struct {
	Type     RecordType
	EntityID string
	IssuedAt int64
}

// ParseQRToken parses a guide, product or artisan token. The entity id may
// itself contain underscores; the issue time is the last segment.
func ParseQRToken(code string) (*QRToken, error) {
	for _, t := range []RecordType{RecordTypeGuide, RecordTypeProduct, RecordTypeArtisan} {
		prefix := tokenPrefix(t)
		if !strings.HasPrefix(code, prefix) {
			continue
		}
		rest := strings.TrimPrefix(code, prefix)
		i := strings.LastIndex(rest, "_")
		if i <= 0 || i == len(rest)-1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidQRCode, code)
		}
		millis, err := strconv.ParseInt(rest[i+1:], 10, 64)
		if err != nil || millis < 0 {
			return nil, fmt.Errorf("%w: bad timestamp in %q", ErrInvalidQRCode, code)
		}
		return &QRToken{Type: t, EntityID: rest[:i], IssuedAt: millis}, nil
	}
	return nil, fmt.Errorf("%w: unknown prefix in %q", ErrInvalidQRCode, code)
}

// parseTokenFor parses code and checks it was issued for type t.
func parseTokenFor(t RecordType, code string) (*QRToken, error) {
	tok, err := ParseQRToken(code)
	if err != nil {
		return nil, err
	}
	if tok.Type != t {
		return nil, fmt.Errorf("%w: %s token presented for %s verification", ErrInvalidQRCode, tok.Type, t)
	}
	return tok, nil
}

// BookingIDFromCode accepts either a bare booking id or a "BOOKING_" code.
func BookingIDFromCode(code string) string {
	return strings.TrimPrefix(strings.TrimSpace(code), BookingTokenPrefix)
}
