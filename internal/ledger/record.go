package ledger

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// RecordType identifies the kind of entity a ledger record verifies.
type RecordType string

const (
	RecordTypeGuide   RecordType = "guide"
	RecordTypeProduct RecordType = "product"
	RecordTypeBooking RecordType = "booking"
	RecordTypeArtisan RecordType = "artisan"
)

// Valid reports whether t is one of the four known record types.
func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeGuide, RecordTypeProduct, RecordTypeBooking, RecordTypeArtisan:
		return true
	}
	return false
}

// GenesisPreviousHash is the sentinel stored as the genesis record's previousHash.
const GenesisPreviousHash = "0"

// Record is a single link of the verification chain.
type Record struct {
	ID           string          `json:"id"`
	Type         RecordType      `json:"type"`
	Data         json.RawMessage `json:"data"` // canonical JSON
	Hash         string          `json:"hash"`
	PreviousHash string          `json:"previousHash"`
	Timestamp    int64           `json:"timestamp"` // ms since epoch
	Verified     bool            `json:"verified"`
	Actor        string          `json:"actor,omitempty"`
}

// RecordID builds the logical key "{type}_{entityID}".
func RecordID(t RecordType, entityID string) string {
	return string(t) + "_" + entityID
}

// VerificationStatus is the registration status carried on guide and artisan payloads.
type VerificationStatus string

const (
	StatusVerified VerificationStatus = "verified"
	StatusPending  VerificationStatus = "pending"
	StatusRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) valid() bool {
	return s == StatusVerified || s == StatusPending || s == StatusRejected
}

// GuideVerification is the payload of a guide record.
type GuideVerification struct {
	GuideID        string             `json:"guideId"`
	Name           string             `json:"name"`
	Location       string             `json:"location"`
	Certifications []string           `json:"certifications"`
	GovtID         string             `json:"govtId"`
	Status         VerificationStatus `json:"status"`
	QRCode         string             `json:"qrCode"`
	RegisteredAt   int64              `json:"registeredAt,omitempty"`
}

// ProductAuthenticity is the payload of a product record.
type ProductAuthenticity struct {
	ProductID               string `json:"productId"`
	ArtisanName             string `json:"artisanName"`
	ProductName             string `json:"productName"`
	Location                string `json:"location"`
	CraftType               string `json:"craftType"`
	AuthenticityCertificate string `json:"authenticityCertificate"`
	QRCode                  string `json:"qrCode"`
	RegisteredAt            int64  `json:"registeredAt,omitempty"`
}

// ArtisanVerification is the payload of an artisan record.
type ArtisanVerification struct {
	ArtisanID    string             `json:"artisanId"`
	Name         string             `json:"name"`
	Location     string             `json:"location"`
	CraftTypes   []string           `json:"craftTypes"`
	GovtID       string             `json:"govtId"`
	Status       VerificationStatus `json:"status"`
	QRCode       string             `json:"qrCode"`
	RegisteredAt int64              `json:"registeredAt,omitempty"`
}

// ServiceType is what a booking reserves.
type ServiceType string

const (
	ServiceGuide      ServiceType = "guide"
	ServiceHomestay   ServiceType = "homestay"
	ServiceExperience ServiceType = "experience"
)

// BookingStatus is the lifecycle label carried on a booking payload.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingPending   BookingStatus = "pending"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// BookingRecord is the payload of a booking record. Hash is filled in by
// RecordBooking and is excluded from the hashed content.
type BookingRecord struct {
	BookingID   string          `json:"bookingId"`
	TouristID   string          `json:"touristId"`
	ServiceType ServiceType     `json:"serviceType"`
	ServiceID   string          `json:"serviceId"`
	Amount      decimal.Decimal `json:"amount"`
	Status      BookingStatus   `json:"status"`
	Timestamp   int64           `json:"timestamp"`
	Hash        string          `json:"hash,omitempty"`
}

// VerifiedGuide is a stored guide payload together with its record's verified flag.
type VerifiedGuide struct {
	GuideVerification
	Verified bool `json:"verified"`
}

// VerifiedProduct is a stored product payload together with its record's verified flag.
type VerifiedProduct struct {
	ProductAuthenticity
	Verified bool `json:"verified"`
}

// VerifiedArtisan is a stored artisan payload together with its record's verified flag.
type VerifiedArtisan struct {
	ArtisanVerification
	Verified bool `json:"verified"`
}
