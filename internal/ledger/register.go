package ledger

import (
	"context"
	"strings"
)

// Receipt is returned by the register operations.
type Receipt struct {
	RecordID  string `json:"record_id"`
	QRCode    string `json:"qr_code"`
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"`
}

func receipt(rec *Record, qr string) *Receipt {
	return &Receipt{RecordID: rec.ID, QRCode: qr, Hash: rec.Hash, Timestamp: rec.Timestamp}
}

// RegisterGuide appends a guide record and returns its receipt. The QR token
// GUIDE_{guideId}_{millis} is the value to print and later present to VerifyGuide.
func (l *Ledger) RegisterGuide(ctx context.Context, actor string, g GuideVerification) (*Receipt, error) {
	if err := validateGuide(&g); err != nil {
		return nil, err
	}
	var qr string
	rec, err := l.appendRecord(ctx, RecordTypeGuide, g.GuideID, actor, func(now int64) any {
		qr = NewQRToken(RecordTypeGuide, g.GuideID, now)
		g.QRCode = qr
		g.RegisteredAt = now
		return g
	})
	if err != nil {
		return nil, err
	}
	return receipt(rec, qr), nil
}

// VerifyGuide resolves a guide QR token. It returns ErrNotFound when no guide
// record carries exactly this token.
func (l *Ledger) VerifyGuide(ctx context.Context, qrCode string) (*VerifiedGuide, error) {
	tok, err := parseTokenFor(RecordTypeGuide, qrCode)
	if err != nil {
		return nil, err
	}
	row, err := l.lookup(ctx, RecordTypeGuide, tok.EntityID)
	if err != nil {
		return nil, err
	}
	var g GuideVerification
	if err := decodePayload(row, &g); err != nil {
		return nil, err
	}
	if g.QRCode != qrCode {
		return nil, ErrNotFound
	}
	return &VerifiedGuide{GuideVerification: g, Verified: row.Verified}, nil
}

// RegisterProduct appends a product record. Token prefix is PRODUCT_.
func (l *Ledger) RegisterProduct(ctx context.Context, actor string, p ProductAuthenticity) (*Receipt, error) {
	if err := validateProduct(&p); err != nil {
		return nil, err
	}
	var qr string
	rec, err := l.appendRecord(ctx, RecordTypeProduct, p.ProductID, actor, func(now int64) any {
		qr = NewQRToken(RecordTypeProduct, p.ProductID, now)
		p.QRCode = qr
		p.RegisteredAt = now
		return p
	})
	if err != nil {
		return nil, err
	}
	return receipt(rec, qr), nil
}

// VerifyProduct resolves a product QR token.
func (l *Ledger) VerifyProduct(ctx context.Context, qrCode string) (*VerifiedProduct, error) {
	tok, err := parseTokenFor(RecordTypeProduct, qrCode)
	if err != nil {
		return nil, err
	}
	row, err := l.lookup(ctx, RecordTypeProduct, tok.EntityID)
	if err != nil {
		return nil, err
	}
	var p ProductAuthenticity
	if err := decodePayload(row, &p); err != nil {
		return nil, err
	}
	if p.QRCode != qrCode {
		return nil, ErrNotFound
	}
	return &VerifiedProduct{ProductAuthenticity: p, Verified: row.Verified}, nil
}

// RegisterArtisan appends an artisan record. Token prefix is ARTISAN_.
func (l *Ledger) RegisterArtisan(ctx context.Context, actor string, a ArtisanVerification) (*Receipt, error) {
	if err := validateArtisan(&a); err != nil {
		return nil, err
	}
	var qr string
	rec, err := l.appendRecord(ctx, RecordTypeArtisan, a.ArtisanID, actor, func(now int64) any {
		qr = NewQRToken(RecordTypeArtisan, a.ArtisanID, now)
		a.QRCode = qr
		a.RegisteredAt = now
		return a
	})
	if err != nil {
		return nil, err
	}
	return receipt(rec, qr), nil
}

// VerifyArtisan resolves an artisan QR token.
func (l *Ledger) VerifyArtisan(ctx context.Context, qrCode string) (*VerifiedArtisan, error) {
	tok, err := parseTokenFor(RecordTypeArtisan, qrCode)
	if err != nil {
		return nil, err
	}
	row, err := l.lookup(ctx, RecordTypeArtisan, tok.EntityID)
	if err != nil {
		return nil, err
	}
	var a ArtisanVerification
	if err := decodePayload(row, &a); err != nil {
		return nil, err
	}
	if a.QRCode != qrCode {
		return nil, ErrNotFound
	}
	return &VerifiedArtisan{ArtisanVerification: a, Verified: row.Verified}, nil
}

// RecordBooking appends a booking record and returns its hash. The stored
// payload carries the same hash in its "hash" field.
func (l *Ledger) RecordBooking(ctx context.Context, actor string, b BookingRecord) (string, error) {
	if err := validateBooking(&b); err != nil {
		return "", err
	}
	rec, err := l.appendRecord(ctx, RecordTypeBooking, b.BookingID, actor, func(now int64) any {
		if b.Timestamp == 0 {
			b.Timestamp = now
		}
		b.Hash = ""
		return b
	})
	if err != nil {
		return "", err
	}
	return rec.Hash, nil
}

// VerifyBooking looks up booking_{bookingID}. A BOOKING_ prefix is accepted.
func (l *Ledger) VerifyBooking(ctx context.Context, bookingID string) (*BookingRecord, error) {
	id := BookingIDFromCode(bookingID)
	if id == "" {
		return nil, &ValidationError{Field: "bookingId", Msg: "required"}
	}
	row, err := l.lookup(ctx, RecordTypeBooking, id)
	if err != nil {
		return nil, err
	}
	var b BookingRecord
	if err := decodePayload(row, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &ValidationError{Field: field, Msg: "required"}
	}
	if strings.ContainsAny(v, " \t\r\n") {
		return &ValidationError{Field: field, Msg: "must not contain whitespace"}
	}
	return nil
}

func validateGuide(g *GuideVerification) error {
	if err := requireID("guideId", g.GuideID); err != nil {
		return err
	}
	if strings.TrimSpace(g.Name) == "" {
		return &ValidationError{Field: "name", Msg: "required"}
	}
	if g.Status == "" {
		g.Status = StatusVerified
	}
	if !g.Status.valid() {
		return &ValidationError{Field: "status", Msg: "must be verified, pending or rejected"}
	}
	if g.Certifications == nil {
		g.Certifications = []string{}
	}
	return nil
}

func validateProduct(p *ProductAuthenticity) error {
	if err := requireID("productId", p.ProductID); err != nil {
		return err
	}
	if strings.TrimSpace(p.ProductName) == "" {
		return &ValidationError{Field: "productName", Msg: "required"}
	}
	return nil
}

func validateArtisan(a *ArtisanVerification) error {
	if err := requireID("artisanId", a.ArtisanID); err != nil {
		return err
	}
	if strings.TrimSpace(a.Name) == "" {
		return &ValidationError{Field: "name", Msg: "required"}
	}
	if a.Status == "" {
		a.Status = StatusVerified
	}
	if !a.Status.valid() {
		return &ValidationError{Field: "status", Msg: "must be verified, pending or rejected"}
	}
	if a.CraftTypes == nil {
		a.CraftTypes = []string{}
	}
	return nil
}

func validateBooking(b *BookingRecord) error {
	if err := requireID("bookingId", b.BookingID); err != nil {
		return err
	}
	switch b.ServiceType {
	case ServiceGuide, ServiceHomestay, ServiceExperience:
	default:
		return &ValidationError{Field: "serviceType", Msg: "must be guide, homestay or experience"}
	}
	if b.Status == "" {
		b.Status = BookingConfirmed
	}
	switch b.Status {
	case BookingConfirmed, BookingPending, BookingCompleted, BookingCancelled:
	default:
		return &ValidationError{Field: "status", Msg: "must be confirmed, pending, completed or cancelled"}
	}
	if b.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Msg: "must not be negative"}
	}
	return nil
}
