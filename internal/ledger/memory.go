package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation.
// It is primarily useful for testing and for development instances that do
// not need the records to outlive the process.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []*Row
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, row *Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *row
	cp.RecordData = append([]byte(nil), row.RecordData...)
	cp.Seq = int64(len(s.rows) + 1)
	row.Seq = cp.Seq
	s.rows = append(s.rows, &cp)
	return nil
}

// Latest implements Store.
func (s *MemoryStore) Latest(_ context.Context, recordType RecordType, recordID string) (*Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.rows) - 1; i >= 0; i-- {
		r := s.rows[i]
		if r.RecordType == recordType && r.RecordID == recordID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// Summaries implements Store.
func (s *MemoryStore) Summaries(_ context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, Summary{RecordType: r.RecordType, Verified: r.Verified, Timestamp: r.Timestamp})
	}
	return out, nil
}

// Rows implements Store.
func (s *MemoryStore) Rows(_ context.Context) ([]*Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Row, 0, len(s.rows))
	for _, r := range s.rows {
		cp := *r
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Tamper overwrites the stored payload of the latest row with the given id.
// It exists so integrity checks can be exercised against modified history.
func (s *MemoryStore) Tamper(recordID string, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].RecordID == recordID {
			s.rows[i].RecordData = append([]byte(nil), data...)
			return true
		}
	}
	return false
}
