package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf16"

	"golang.org/x/crypto/blake2b"
	"lukechampine.com/blake3"
)

// Hasher turns the serialised record tuple into a hex link hash.
type Hasher interface {
	Name() string
	Sum(content []byte) string
}

// Supported hash algorithm names.
const (
	HashSHA256  = "sha256"
	HashBLAKE3  = "blake3"
	HashBLAKE2b = "blake2b"
	HashRolling = "rolling"
)

// HasherByName resolves a configured algorithm name. An empty name selects SHA-256.
func HasherByName(name string) (Hasher, error) {
	switch name {
	case "", HashSHA256:
		return SHA256Hasher{}, nil
	case HashBLAKE3:
		return BLAKE3Hasher{}, nil
	case HashBLAKE2b:
		return BLAKE2bHasher{}, nil
	case HashRolling:
		return RollingHasher{}, nil
	}
	return nil, fmt.Errorf("unknown hash algorithm %q", name)
}

// SHA256Hasher is the default hasher.
type SHA256Hasher struct{}

func (SHA256Hasher) Name() string { return HashSHA256 }

func (SHA256Hasher) Sum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// BLAKE3Hasher hashes with BLAKE3-256.
type BLAKE3Hasher struct{}

func (BLAKE3Hasher) Name() string { return HashBLAKE3 }

func (BLAKE3Hasher) Sum(content []byte) string {
	h := blake3.Sum256(content)
	return hex.EncodeToString(h[:])
}

// BLAKE2bHasher hashes with BLAKE2b-256.
type BLAKE2bHasher struct{}

func (BLAKE2bHasher) Name() string { return HashBLAKE2b }

func (BLAKE2bHasher) Sum(content []byte) string {
	h := blake2b.Sum256(content)
	return hex.EncodeToString(h[:])
}

// RollingHasher is the legacy 32-bit multiply-and-subtract accumulator
// (h = h*31 + c over UTF-16 code units), rendered as the hex of its absolute value.
// It implements the legacy-compatible algorithm and has no collision or
// preimage resistance. Byte-for-byte agreement with chains written by other
// implementations is not guaranteed, since their canonical content may differ.
type RollingHasher struct{}

func (RollingHasher) Name() string { return HashRolling }

func (RollingHasher) Sum(content []byte) string {
	var h int32
	for _, u := range utf16.Encode([]rune(string(content))) {
		h = (h << 5) - h + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}

// hashTuple is serialised in field order; data is already canonical.
type hashTuple struct {
	ID           string          `json:"id"`
	Data         json.RawMessage `json:"data"`
	PreviousHash string          `json:"previousHash"`
	Timestamp    int64           `json:"timestamp"`
}

// computeHash hashes (id, data, previousHash, timestamp).
func computeHash(h Hasher, id string, data json.RawMessage, previousHash string, timestamp int64) (string, error) {
	content, err := encodeJSON(hashTuple{ID: id, Data: data, PreviousHash: previousHash, Timestamp: timestamp})
	if err != nil {
		return "", fmt.Errorf("serialise hash tuple: %w", err)
	}
	return h.Sum(content), nil
}

// hashRecord recomputes a record's hash from its stored fields. Booking
// payloads embed their own hash, which is removed before hashing.
func hashRecord(h Hasher, r *Record) (string, error) {
	data := r.Data
	if r.Type == RecordTypeBooking {
		stripped, err := withoutKey(data, "hash")
		if err != nil {
			return "", err
		}
		data = stripped
	}
	return computeHash(h, r.ID, data, r.PreviousHash, r.Timestamp)
}

// canonicalJSON serialises v with sorted object keys, no insignificant
// whitespace, and numbers preserved as written. Payloads read back from a
// jsonb column therefore hash identically to the ones that were written.
func canonicalJSON(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return canonicalize(raw)
}

func canonicalize(raw []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return encodeJSON(generic)
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// withoutKey returns the canonical form of the JSON object raw with key removed.
func withoutKey(raw json.RawMessage, key string) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	delete(obj, key)
	return encodeJSON(obj)
}
