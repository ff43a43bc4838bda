package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const selectRowColumns = `seq, record_id, record_type, record_data, hash, previous_hash, timestamp, verified, actor`

// PostgresStore persists ledger rows to the blockchain_records table.
// The schema lives in migrations/001_blockchain_records.up.sql.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, row *Row) error {
	if err := s.pool.QueryRow(ctx,
		`INSERT INTO blockchain_records
		   (record_id, record_type, record_data, hash, previous_hash, timestamp, verified, actor)
		 VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8)
		 RETURNING seq`,
		row.RecordID, string(row.RecordType), string(row.RecordData),
		row.Hash, row.PreviousHash, row.Timestamp, row.Verified, row.Actor,
	).Scan(&row.Seq); err != nil {
		return fmt.Errorf("insert ledger record %s: %w", row.RecordID, err)
	}
	s.logger.Debug("ledger record stored",
		zap.Int64("seq", row.Seq),
		zap.String("record_id", row.RecordID),
	)
	return nil
}

// Latest implements Store.
func (s *PostgresStore) Latest(ctx context.Context, recordType RecordType, recordID string) (*Row, error) {
	row, err := scanRow(s.pool.QueryRow(ctx,
		`SELECT `+selectRowColumns+`
		 FROM blockchain_records
		 WHERE record_type = $1 AND record_id = $2
		 ORDER BY seq DESC LIMIT 1`,
		string(recordType), recordID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger record %s: %w", recordID, err)
	}
	return row, nil
}

// Summaries implements Store.
func (s *PostgresStore) Summaries(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, `SELECT record_type, verified, timestamp FROM blockchain_records`)
	if err != nil {
		return nil, fmt.Errorf("query ledger summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var recordType string
		if err := rows.Scan(&recordType, &sum.Verified, &sum.Timestamp); err != nil {
			return nil, fmt.Errorf("scan ledger summary: %w", err)
		}
		sum.RecordType = RecordType(recordType)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Rows implements Store. O(n) in table size; intended for startup rehydration
// and operator-triggered full verification.
func (s *PostgresStore) Rows(ctx context.Context) ([]*Row, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectRowColumns+` FROM blockchain_records ORDER BY timestamp ASC, seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanRow(r pgx.Row) (*Row, error) {
	row := &Row{}
	var recordType string
	var data []byte
	if err := r.Scan(
		&row.Seq, &row.RecordID, &recordType, &data,
		&row.Hash, &row.PreviousHash, &row.Timestamp,
		&row.Verified, &row.Actor,
	); err != nil {
		return nil, err
	}
	row.RecordType = RecordType(recordType)
	row.RecordData = data
	row.Timestamp = row.Timestamp.UTC()
	return row, nil
}
