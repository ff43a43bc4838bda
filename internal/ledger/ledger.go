package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const genesisID = "genesis"

var genesisData = json.RawMessage(`{"message":"Jharkhand Tourism Blockchain Genesis Block"}`)

var tracer = otel.Tracer("github.com/jmerrifield20/tourledger/internal/ledger")

// Publisher receives an event after every durable append.
// The publishers in internal/events satisfy it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
}

// AppendedEvent is published as "ledger.record.<type>" after a record is stored.
type AppendedEvent struct {
	RecordID     string     `json:"record_id"`
	RecordType   RecordType `json:"record_type"`
	Hash         string     `json:"hash"`
	PreviousHash string     `json:"previous_hash"`
	Timestamp    int64      `json:"timestamp"`
	Actor        string     `json:"actor,omitempty"`
}

// Ledger is the verification chain for one process. Appends are serialised;
// a record joins the in-memory chain only after the store accepted it.
type Ledger struct {
	mu        sync.RWMutex
	chain     []*Record
	store     Store
	hasher    Hasher
	publisher Publisher // nil = no events
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a Ledger seeded with the genesis record. The in-memory chain
// is not loaded from store; call Rehydrate for that.
func New(store Store, hasher Hasher, logger *zap.Logger) *Ledger {
	if hasher == nil {
		hasher = SHA256Hasher{}
	}
	return &Ledger{
		chain:  []*Record{newGenesis(hasher)},
		store:  store,
		hasher: hasher,
		now:    time.Now,
		logger: logger,
	}
}

// newGenesis builds the deterministic genesis record. Its timestamp is fixed
// so every process computes the same tip hash for an empty chain.
func newGenesis(h Hasher) *Record {
	hash, _ := computeHash(h, genesisID, genesisData, GenesisPreviousHash, 0)
	return &Record{
		ID:           genesisID,
		Type:         RecordTypeGuide,
		Data:         genesisData,
		Hash:         hash,
		PreviousHash: GenesisPreviousHash,
		Timestamp:    0,
		Verified:     true,
	}
}

// SetClock replaces the time source.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// SetPublisher configures the event publisher used after each append.
func (l *Ledger) SetPublisher(p Publisher) {
	l.publisher = p
}

// Hasher returns the configured hash algorithm.
func (l *Ledger) Hasher() Hasher {
	return l.hasher
}

// Rehydrate replaces the in-memory chain with genesis followed by every
// stored row, ordered by timestamp. It returns the number of rows loaded.
// Appends wait until it finishes.
func (l *Ledger) Rehydrate(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.store.Rows(ctx)
	if err != nil {
		l.logger.Error("rehydrate ledger", zap.Error(err))
		return 0, fmt.Errorf("load ledger rows: %w", err)
	}
	chain := make([]*Record, 0, len(rows)+1)
	chain = append(chain, newGenesis(l.hasher))
	for _, row := range rows {
		rec, err := recordFromRow(row)
		if err != nil {
			return 0, fmt.Errorf("decode row %s: %w", row.RecordID, err)
		}
		chain = append(chain, rec)
	}

	l.chain = chain
	return len(rows), nil
}

// selfHashing payloads embed the record hash in their stored form.
type selfHashing interface {
	withHash(hash string) any
}

func (b BookingRecord) withHash(hash string) any {
	b.Hash = hash
	return b
}

// appendRecord builds the payload at the append timestamp, persists the
// record, then links it into the chain.
func (l *Ledger) appendRecord(ctx context.Context, t RecordType, entityID, actor string, build func(now int64) any) (*Record, error) {
	ctx, span := tracer.Start(ctx, "ledger.append", trace.WithAttributes(
		attribute.String("ledger.record_type", string(t)),
		attribute.String("ledger.entity_id", entityID),
	))
	defer span.End()

	rec, err := l.appendLocked(ctx, t, entityID, actor, build)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("ledger.hash", rec.Hash))
	l.publish(ctx, rec)
	return rec, nil
}

func (l *Ledger) appendLocked(ctx context.Context, t RecordType, entityID, actor string, build func(now int64) any) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.chain[len(l.chain)-1]
	now := l.now().UnixMilli()
	if now < prev.Timestamp {
		now = prev.Timestamp
	}

	payload := build(now)
	id := RecordID(t, entityID)

	data, err := canonicalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("serialise %s payload: %w", t, err)
	}
	hash, err := computeHash(l.hasher, id, data, prev.Hash, now)
	if err != nil {
		return nil, err
	}
	if sh, ok := payload.(selfHashing); ok {
		if data, err = canonicalJSON(sh.withHash(hash)); err != nil {
			return nil, fmt.Errorf("serialise %s payload: %w", t, err)
		}
	}

	rec := &Record{
		ID:           id,
		Type:         t,
		Data:         data,
		Hash:         hash,
		PreviousHash: prev.Hash,
		Timestamp:    now,
		Verified:     true,
		Actor:        actor,
	}

	if err := l.store.Insert(ctx, rowFromRecord(rec)); err != nil {
		l.logger.Error("persist ledger record",
			zap.String("record_id", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("persist %s: %w", id, err)
	}
	l.chain = append(l.chain, rec)

	l.logger.Debug("ledger record appended",
		zap.Int("index", len(l.chain)-1),
		zap.String("record_id", id),
		zap.String("actor", actor),
	)
	return rec, nil
}

// publish emits an AppendedEvent in a non-fatal manner.
func (l *Ledger) publish(ctx context.Context, rec *Record) {
	if l.publisher == nil {
		return
	}
	ev := AppendedEvent{
		RecordID:     rec.ID,
		RecordType:   rec.Type,
		Hash:         rec.Hash,
		PreviousHash: rec.PreviousHash,
		Timestamp:    rec.Timestamp,
		Actor:        rec.Actor,
	}
	if err := l.publisher.Publish(ctx, "ledger.record."+string(rec.Type), ev); err != nil {
		l.logger.Error("event publish failed (non-fatal)",
			zap.String("record_id", rec.ID),
			zap.Error(err),
		)
	}
}

// lookup returns the latest stored row for {t}_{entityID}.
func (l *Ledger) lookup(ctx context.Context, t RecordType, entityID string) (*Row, error) {
	ctx, span := tracer.Start(ctx, "ledger.lookup", trace.WithAttributes(
		attribute.String("ledger.record_type", string(t)),
		attribute.String("ledger.entity_id", entityID),
	))
	defer span.End()

	row, err := l.store.Latest(ctx, t, RecordID(t, entityID))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		l.logger.Error("ledger lookup",
			zap.String("record_type", string(t)),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("lookup %s: %w", RecordID(t, entityID), err)
	}
	return row, nil
}

func decodePayload(row *Row, v any) error {
	if err := json.Unmarshal(row.RecordData, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", row.RecordID, err)
	}
	return nil
}

// Len returns the number of in-memory records, genesis included.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// Root returns the hash of the chain tip.
func (l *Ledger) Root() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain[len(l.chain)-1].Hash
}

// Get returns a copy of the in-memory record at index.
func (l *Ledger) Get(index int) (*Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.chain) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	cp := *l.chain[index]
	return &cp, nil
}

// Ping checks that the backing store is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}
