package ledger

import (
	"context"
	"encoding/json"
	"time"
)

// Row is a persisted ledger record as stored in blockchain_records.
type Row struct {
	Seq          int64 // insertion order, assigned by the store
	RecordID     string
	RecordType   RecordType
	RecordData   json.RawMessage
	Hash         string
	PreviousHash string
	Timestamp    time.Time
	Verified     bool
	Actor        string
}

// Summary is the (type, verified, timestamp) projection used for analytics.
type Summary struct {
	RecordType RecordType
	Verified   bool
	Timestamp  time.Time
}

// Store persists ledger rows. PostgresStore, SQLStore and MemoryStore implement it.
type Store interface {
	// Insert appends a row. Ids are not unique; later rows supersede earlier ones.
	Insert(ctx context.Context, row *Row) error

	// Latest returns the most recently inserted row with the given type and
	// record id, or ErrNotFound.
	Latest(ctx context.Context, recordType RecordType, recordID string) (*Row, error)

	// Summaries returns the analytics projection of every row.
	Summaries(ctx context.Context) ([]Summary, error)

	// Rows returns every row ordered by timestamp, then insertion order.
	Rows(ctx context.Context) ([]*Row, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

func rowFromRecord(r *Record) *Row {
	return &Row{
		RecordID:     r.ID,
		RecordType:   r.Type,
		RecordData:   r.Data,
		Hash:         r.Hash,
		PreviousHash: r.PreviousHash,
		Timestamp:    time.UnixMilli(r.Timestamp).UTC(),
		Verified:     r.Verified,
		Actor:        r.Actor,
	}
}

func recordFromRow(row *Row) (*Record, error) {
	data, err := canonicalize(row.RecordData)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:           row.RecordID,
		Type:         row.RecordType,
		Data:         data,
		Hash:         row.Hash,
		PreviousHash: row.PreviousHash,
		Timestamp:    row.Timestamp.UnixMilli(),
		Verified:     row.Verified,
		Actor:        row.Actor,
	}, nil
}
