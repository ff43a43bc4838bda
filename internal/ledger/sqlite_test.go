package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jmerrifield20/tourledger/internal/ledger"
)

func newSQLiteStore(t *testing.T) *ledger.SQLStore {
	t.Helper()
	store, err := ledger.OpenSQLiteStore("file:"+uuid.NewString()+"?mode=memory&cache=shared", zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStore_insertAndLatest(t *testing.T) {
	store := newSQLiteStore(t)
	ts := time.UnixMilli(1_700_000_000_000).UTC()

	for i, data := range []string{`{"v":1}`, `{"v":2}`} {
		row := &ledger.Row{
			RecordID:     "guide_G001",
			RecordType:   ledger.RecordTypeGuide,
			RecordData:   []byte(data),
			Hash:         "h" + data,
			PreviousHash: "0",
			Timestamp:    ts.Add(time.Duration(i) * time.Second),
			Verified:     true,
			Actor:        "registrar",
		}
		if err := store.Insert(ctx, row); err != nil {
			t.Fatal(err)
		}
		if row.Seq != int64(i+1) {
			t.Errorf("seq: got %d, want %d", row.Seq, i+1)
		}
	}

	got, err := store.Latest(ctx, ledger.RecordTypeGuide, "guide_G001")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.RecordData) != `{"v":2}` || got.Seq != 2 {
		t.Errorf("expected the most recent row, got seq=%d data=%s", got.Seq, got.RecordData)
	}
	if !got.Timestamp.Equal(ts.Add(time.Second)) || got.Actor != "registrar" {
		t.Errorf("round trip lost fields: %+v", got)
	}

	if _, err := store.Latest(ctx, ledger.RecordTypeProduct, "guide_G001"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("type mismatch: expected ErrNotFound, got %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestSQLStore_ledgerRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	l := newLedger(t, store)

	rc, err := l.RegisterGuide(ctx, "registrar", sampleGuide("G001"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.RegisterProduct(ctx, "registrar", sampleProduct("P001")); err != nil {
		t.Fatal(err)
	}
	hash, err := l.RecordBooking(ctx, "tourist-1", ledger.BookingRecord{
		BookingID: "B1", TouristID: "tourist-1", ServiceType: ledger.ServiceGuide,
		ServiceID: "G001", Amount: decimal.RequireFromString("1200.00"),
	})
	if err != nil {
		t.Fatal(err)
	}

	g, err := l.VerifyGuide(ctx, rc.QRCode)
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "Birsa Munda Jr." || len(g.Certifications) != 2 {
		t.Errorf("unexpected guide: %+v", g)
	}
	b, err := l.VerifyBooking(ctx, "B1")
	if err != nil {
		t.Fatal(err)
	}
	if b.Hash != hash {
		t.Errorf("booking hash: got %q, want %q", b.Hash, hash)
	}

	if err := l.VerifyStored(ctx); err != nil {
		t.Errorf("stored history should verify: %v", err)
	}

	restarted := ledger.New(store, nil, zap.NewNop())
	n, err := restarted.Rehydrate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || restarted.Root() != l.Root() {
		t.Errorf("rehydrate: n=%d root=%q want %q", n, restarted.Root(), l.Root())
	}

	a, err := restarted.Analytics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := ledger.RecordsByType{Guides: 1, Products: 1, Bookings: 1}
	if a.RecordsByType != want || a.TotalRecords != 3 || !a.ChainIntegrity {
		t.Errorf("analytics: %+v", a)
	}
}
