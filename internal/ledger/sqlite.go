package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// recordModel mirrors the blockchain_records table for gorm.
type recordModel struct {
	Seq          int64          `gorm:"primaryKey;autoIncrement"`
	RecordID     string         `gorm:"not null;index:idx_blockchain_records_type_id,priority:2"`
	RecordType   string         `gorm:"not null;index:idx_blockchain_records_type_id,priority:1"`
	RecordData   datatypes.JSON `gorm:"not null"`
	Hash         string         `gorm:"not null"`
	PreviousHash string         `gorm:"not null"`
	Timestamp    time.Time      `gorm:"not null;index"`
	Verified     bool           `gorm:"not null"`
	Actor        string         `gorm:"not null;default:''"`
}

func (recordModel) TableName() string { return "blockchain_records" }

func (m *recordModel) toRow() *Row {
	return &Row{
		Seq:          m.Seq,
		RecordID:     m.RecordID,
		RecordType:   RecordType(m.RecordType),
		RecordData:   []byte(m.RecordData),
		Hash:         m.Hash,
		PreviousHash: m.PreviousHash,
		Timestamp:    m.Timestamp.UTC(),
		Verified:     m.Verified,
		Actor:        m.Actor,
	}
}

// SQLStore persists ledger rows through gorm. It backs the embedded SQLite
// deployment and works with any gorm dialector.
type SQLStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenSQLiteStore opens (or creates) a SQLite database at dsn and migrates
// the blockchain_records table. Use "file::memory:?cache=shared" for a
// throwaway in-process database.
func OpenSQLiteStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite serialises writers; one connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)
	return NewSQLStore(db, logger)
}

// NewSQLStore wraps an open gorm handle and migrates the schema.
func NewSQLStore(db *gorm.DB, logger *zap.Logger) (*SQLStore, error) {
	if err := db.AutoMigrate(&recordModel{}); err != nil {
		return nil, fmt.Errorf("migrate blockchain_records: %w", err)
	}
	return &SQLStore{db: db, logger: logger}, nil
}

// Insert implements Store.
func (s *SQLStore) Insert(ctx context.Context, row *Row) error {
	m := recordModel{
		RecordID:     row.RecordID,
		RecordType:   string(row.RecordType),
		RecordData:   datatypes.JSON(row.RecordData),
		Hash:         row.Hash,
		PreviousHash: row.PreviousHash,
		Timestamp:    row.Timestamp,
		Verified:     row.Verified,
		Actor:        row.Actor,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert ledger record %s: %w", row.RecordID, err)
	}
	row.Seq = m.Seq
	s.logger.Debug("ledger record stored",
		zap.Int64("seq", row.Seq),
		zap.String("record_id", row.RecordID),
	)
	return nil
}

// Latest implements Store.
func (s *SQLStore) Latest(ctx context.Context, recordType RecordType, recordID string) (*Row, error) {
	var m recordModel
	err := s.db.WithContext(ctx).
		Where("record_type = ? AND record_id = ?", string(recordType), recordID).
		Order("seq DESC").
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger record %s: %w", recordID, err)
	}
	return m.toRow(), nil
}

// Summaries implements Store.
func (s *SQLStore) Summaries(ctx context.Context) ([]Summary, error) {
	var ms []recordModel
	if err := s.db.WithContext(ctx).
		Select("record_type", "verified", "timestamp").
		Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("query ledger summaries: %w", err)
	}
	out := make([]Summary, 0, len(ms))
	for _, m := range ms {
		out = append(out, Summary{
			RecordType: RecordType(m.RecordType),
			Verified:   m.Verified,
			Timestamp:  m.Timestamp.UTC(),
		})
	}
	return out, nil
}

// Rows implements Store.
func (s *SQLStore) Rows(ctx context.Context) ([]*Row, error) {
	var ms []recordModel
	if err := s.db.WithContext(ctx).
		Order("timestamp ASC").Order("seq ASC").
		Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	out := make([]*Row, 0, len(ms))
	for i := range ms {
		out = append(out, ms[i].toRow())
	}
	return out, nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
