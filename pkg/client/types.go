package client

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Guide is the registration payload of a tourist guide.
type Guide struct {
	GuideID        string   `json:"guideId"`
	Name           string   `json:"name"`
	Location       string   `json:"location,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	GovtID         string   `json:"govtId,omitempty"`
	Status         string   `json:"status,omitempty"`
	QRCode         string   `json:"qrCode,omitempty"`
	RegisteredAt   int64    `json:"registeredAt,omitempty"`
	Verified       bool     `json:"verified,omitempty"`
}

// Product is the authenticity payload of a handicraft product.
type Product struct {
	ProductID               string `json:"productId"`
	ArtisanName             string `json:"artisanName,omitempty"`
	ProductName             string `json:"productName"`
	Location                string `json:"location,omitempty"`
	CraftType               string `json:"craftType,omitempty"`
	AuthenticityCertificate string `json:"authenticityCertificate,omitempty"`
	QRCode                  string `json:"qrCode,omitempty"`
	RegisteredAt            int64  `json:"registeredAt,omitempty"`
	Verified                bool   `json:"verified,omitempty"`
}

// Artisan is the registration payload of a craftsperson.
type Artisan struct {
	ArtisanID    string   `json:"artisanId"`
	Name         string   `json:"name"`
	Location     string   `json:"location,omitempty"`
	CraftTypes   []string `json:"craftTypes,omitempty"`
	GovtID       string   `json:"govtId,omitempty"`
	Status       string   `json:"status,omitempty"`
	QRCode       string   `json:"qrCode,omitempty"`
	RegisteredAt int64    `json:"registeredAt,omitempty"`
	Verified     bool     `json:"verified,omitempty"`
}

// Booking is a tourist reservation. BookingID and TouristID may be left
// empty on RecordBooking; the server fills them in.
type Booking struct {
	BookingID   string          `json:"bookingId,omitempty"`
	TouristID   string          `json:"touristId,omitempty"`
	ServiceType string          `json:"serviceType"`
	ServiceID   string          `json:"serviceId"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status,omitempty"`
	Timestamp   int64           `json:"timestamp,omitempty"`
	Hash        string          `json:"hash,omitempty"`
}

// Receipt is returned by the register calls.
type Receipt struct {
	RecordID  string `json:"record_id"`
	QRCode    string `json:"qr_code"`
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"`
}

// BookingReceipt is returned by RecordBooking.
type BookingReceipt struct {
	BookingID        string `json:"booking_id"`
	Hash             string `json:"hash"`
	ConfirmationCode string `json:"confirmation_code"`
}

// ScanResult is the outcome of Scan. Record holds the typed payload as raw JSON.
type ScanResult struct {
	Verified bool            `json:"verified"`
	Type     string          `json:"type"`
	Record   json.RawMessage `json:"record,omitempty"`
}

// LedgerOverview summarises the chain.
type LedgerOverview struct {
	Entries       int    `json:"entries"`
	Root          string `json:"root"`
	HashAlgorithm string `json:"hash_algorithm"`
}

// ChainStatus is the outcome of VerifyChain.
type ChainStatus struct {
	Valid bool   `json:"valid"`
	Scope string `json:"scope"`
	Error string `json:"error,omitempty"`
}

// Record is one link of the chain as served by GET /ledger/records/:idx.
type Record struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Data         json.RawMessage `json:"data"`
	Hash         string          `json:"hash"`
	PreviousHash string          `json:"previousHash"`
	Timestamp    int64           `json:"timestamp"`
	Verified     bool            `json:"verified"`
	Actor        string          `json:"actor,omitempty"`
}

// Analytics holds the aggregate counts of the chain.
type Analytics struct {
	TotalRecords      int `json:"totalRecords"`
	VerifiedGuides    int `json:"verifiedGuides"`
	AuthenticProducts int `json:"authenticProducts"`
	TotalBookings     int `json:"totalBookings"`
	RecordsByType     struct {
		Guides   int `json:"guides"`
		Products int `json:"products"`
		Bookings int `json:"bookings"`
		Artisans int `json:"artisans"`
	} `json:"recordsByType"`
	ChainIntegrity bool       `json:"chainIntegrity"`
	ChainLength    int        `json:"chainLength"`
	ChainTip       string     `json:"chainTip"`
	FirstRecordAt  *time.Time `json:"firstRecordAt,omitempty"`
	LastRecordAt   *time.Time `json:"lastRecordAt,omitempty"`
}
