package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jmerrifield20/tourledger/internal/handler"
	"github.com/jmerrifield20/tourledger/internal/identity"
	"github.com/jmerrifield20/tourledger/internal/ledger"
	"github.com/jmerrifield20/tourledger/pkg/client"
)

type server struct {
	url       string
	registrar string
	tourist   string
}

// newServer runs a real ledgerd router over a memory store.
func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := identity.NewTokenIssuer("client-test-secret", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	registrar, _ := tokens.Issue("staff-1", "officer@jharkhand.gov.in", identity.RoleRegistrar)
	tourist, _ := tokens.Issue("tourist-3", "", identity.RoleTourist)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	l := ledger.New(ledger.NewMemoryStore(), nil, zap.NewNop())
	srv := httptest.NewServer(handler.NewRouter(ctx, handler.RouterConfig{}, l, tokens, zap.NewNop()))
	t.Cleanup(srv.Close)

	return &server{url: srv.URL, registrar: registrar, tourist: tourist}
}

func TestNew_invalidBase(t *testing.T) {
	if _, err := client.New("not a url"); err == nil {
		t.Error("expected error for base without scheme")
	}
}

func TestRegisterAndVerifyGuide(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	c := client.MustNew(s.url, client.WithBearerToken(s.registrar))

	rc, err := c.RegisterGuide(ctx, client.Guide{GuideID: "G001", Name: "Asha Oraon", Location: "Netarhat"})
	if err != nil {
		t.Fatalf("RegisterGuide: %v", err)
	}
	if rc.RecordID != "guide_G001" || rc.QRCode == "" || rc.Hash == "" {
		t.Fatalf("unexpected receipt: %+v", rc)
	}

	public := client.MustNew(s.url)
	g, err := public.VerifyGuide(ctx, rc.QRCode)
	if err != nil {
		t.Fatalf("VerifyGuide: %v", err)
	}
	if g.Name != "Asha Oraon" || !g.Verified || g.Status != "verified" {
		t.Errorf("unexpected guide: %+v", g)
	}

	if _, err := public.VerifyGuide(ctx, "GUIDE_UNKNOWN_1"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("unknown guide: got %v, want ErrNotFound", err)
	}
}

func TestRegister_requiresRegistrar(t *testing.T) {
	s := newServer(t)
	c := client.MustNew(s.url, client.WithBearerToken(s.tourist))

	_, err := c.RegisterProduct(context.Background(), client.Product{ProductID: "P1", ProductName: "Dokra horse"})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("got %v, want 403 APIError", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	s := newServer(t)
	c := client.MustNew(s.url, client.WithBearerToken(s.registrar))

	_, err := c.RegisterArtisan(context.Background(), client.Artisan{ArtisanID: "A1"})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest || apiErr.Message == "" {
		t.Errorf("got %v, want 400 with message", err)
	}
}

func TestBookingAndScan(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	c := client.MustNew(s.url, client.WithBearerToken(s.tourist))

	rc, err := c.RecordBooking(ctx, client.Booking{
		ServiceType: "homestay",
		ServiceID:   "H-12",
		Amount:      decimal.RequireFromString("2500.50"),
	})
	if err != nil {
		t.Fatalf("RecordBooking: %v", err)
	}
	if rc.BookingID == "" || rc.ConfirmationCode != "BOOKING_"+rc.BookingID {
		t.Fatalf("unexpected receipt: %+v", rc)
	}

	b, err := c.VerifyBooking(ctx, rc.ConfirmationCode)
	if err != nil {
		t.Fatalf("VerifyBooking: %v", err)
	}
	if b.TouristID != "tourist-3" || b.Hash != rc.Hash || !b.Amount.Equal(decimal.RequireFromString("2500.5")) {
		t.Errorf("unexpected booking: %+v", b)
	}

	res, err := c.Scan(ctx, rc.ConfirmationCode)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Verified || res.Type != "booking" || len(res.Record) == 0 {
		t.Errorf("unexpected scan: %+v", res)
	}
}

func TestLedgerEndpoints(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	c := client.MustNew(s.url, client.WithBearerToken(s.registrar))

	if _, err := c.RegisterProduct(ctx, client.Product{ProductID: "P9", ProductName: "Sohrai panel"}); err != nil {
		t.Fatal(err)
	}

	ov, err := c.Ledger(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Entries != 2 || ov.HashAlgorithm != "sha256" {
		t.Errorf("overview: %+v", ov)
	}

	st, err := c.VerifyChain(ctx, "")
	if err != nil || !st.Valid || st.Scope != "memory" {
		t.Errorf("verify chain: %+v, %v", st, err)
	}

	rec, err := c.GetRecord(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != "product_P9" || rec.Hash != ov.Root {
		t.Errorf("record: %+v", rec)
	}
	if _, err := c.GetRecord(ctx, 5); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("out of range: got %v", err)
	}

	a, err := c.Analytics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if a.AuthenticProducts != 1 || a.TotalRecords != 1 || !a.ChainIntegrity {
		t.Errorf("analytics: %+v", a)
	}

	if err := c.Health(ctx); err != nil {
		t.Errorf("health: %v", err)
	}
}
