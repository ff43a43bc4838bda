package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jmerrifield20/tourledger/internal/handler"
	"github.com/jmerrifield20/tourledger/internal/identity"
	"github.com/jmerrifield20/tourledger/internal/ledger"
)

type testEnv struct {
	router    *gin.Engine
	ledger    *ledger.Ledger
	registrar string
	tourist   string
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := identity.NewTokenIssuer("handler-test-secret", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	registrar, _ := tokens.Issue("staff-1", "officer@jharkhand.gov.in", identity.RoleRegistrar)
	tourist, _ := tokens.Issue("tourist-9", "", identity.RoleTourist)

	l := ledger.New(ledger.NewMemoryStore(), nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := handler.NewRouter(ctx, handler.RouterConfig{CORSOrigins: []string{"*"}}, l, tokens, zap.NewNop())
	return &testEnv{router: r, ledger: l, registrar: registrar, tourist: tourist}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

var guideBody = map[string]any{
	"guideId":        "G001",
	"name":           "Birsa Munda Jr.",
	"location":       "Betla",
	"certifications": []string{"Wildlife Guide"},
	"govtId":         "JH-GUIDE-2024-001",
}

func TestRegisterGuide_201_thenVerify(t *testing.T) {
	env := setup(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/guides", env.registrar, guideBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	qr, _ := resp["qr_code"].(string)
	if !strings.HasPrefix(qr, "GUIDE_G001_") {
		t.Fatalf("qr_code: got %q", qr)
	}
	if resp["record_id"] != "guide_G001" || resp["hash"] == "" {
		t.Errorf("unexpected receipt: %v", resp)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/guides/verify?qr="+qr, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["verified"] != true {
		t.Errorf("expected verified=true, got %v", resp["verified"])
	}
	guide, _ := resp["guide"].(map[string]any)
	if guide["name"] != "Birsa Munda Jr." {
		t.Errorf("guide name: got %v", guide["name"])
	}

	rec, err := env.ledger.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Actor != "officer@jharkhand.gov.in" {
		t.Errorf("actor: got %q", rec.Actor)
	}
}

func TestRegisterGuide_auth(t *testing.T) {
	env := setup(t)

	if w, _ := env.do(t, http.MethodPost, "/api/v1/guides", "", guideBody); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	}
	if w, _ := env.do(t, http.MethodPost, "/api/v1/guides", env.tourist, guideBody); w.Code != http.StatusForbidden {
		t.Errorf("tourist: expected 403, got %d", w.Code)
	}
	if n := env.ledger.Len(); n != 1 {
		t.Errorf("rejected requests must not append; len=%d", n)
	}
}

func TestRegisterProduct_400_validation(t *testing.T) {
	env := setup(t)
	w, resp := env.do(t, http.MethodPost, "/api/v1/products", env.registrar, map[string]any{"productId": "P1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp["field"] != "productName" {
		t.Errorf("field: got %v", resp["field"])
	}
}

func TestVerifyProduct_responses(t *testing.T) {
	env := setup(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing qr", "/api/v1/products/verify", http.StatusBadRequest},
		{"malformed qr", "/api/v1/products/verify?qr=not-a-code", http.StatusBadRequest},
		{"wrong type", "/api/v1/products/verify?qr=GUIDE_G001_1", http.StatusBadRequest},
		{"unregistered", "/api/v1/products/verify?qr=PRODUCT_P404_1700000000000", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, http.MethodGet, tt.path, "", nil)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if resp["verified"] == true {
				t.Error("verified must not be true")
			}
		})
	}
}

func TestArtisan_registerAndScan(t *testing.T) {
	env := setup(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/artisans", env.registrar, map[string]any{
		"artisanId":  "A1",
		"name":       "Sunita Devi",
		"location":   "Khunti",
		"craftTypes": []string{"Dokra"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	qr := resp["qr_code"].(string)

	w, resp = env.do(t, http.MethodGet, "/api/v1/scan?qr="+qr, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["type"] != "artisan" || resp["verified"] != true {
		t.Errorf("unexpected scan result: %v", resp)
	}
}

func TestBooking_recordAndVerify(t *testing.T) {
	env := setup(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/bookings", env.tourist, map[string]any{
		"serviceType": "guide",
		"serviceId":   "G001",
		"amount":      "1500.00",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	id, _ := resp["booking_id"].(string)
	hash, _ := resp["hash"].(string)
	if id == "" || hash == "" {
		t.Fatalf("unexpected response: %v", resp)
	}
	code := resp["confirmation_code"].(string)

	w, resp = env.do(t, http.MethodGet, "/api/v1/bookings/"+code+"/verify", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	b := resp["booking"].(map[string]any)
	if b["hash"] != hash || b["touristId"] != "tourist-9" || b["status"] != "confirmed" {
		t.Errorf("unexpected booking: %v", b)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/scan?qr="+code, "", nil)
	if w.Code != http.StatusOK || resp["type"] != "booking" {
		t.Errorf("scan booking: %d %v", w.Code, resp)
	}
}

func TestBooking_401_withoutToken(t *testing.T) {
	env := setup(t)
	w, _ := env.do(t, http.MethodPost, "/api/v1/bookings", "", map[string]any{"serviceType": "guide"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestVerifyBooking_404(t *testing.T) {
	env := setup(t)
	w, resp := env.do(t, http.MethodGet, "/api/v1/bookings/B404/verify", "", nil)
	if w.Code != http.StatusNotFound || resp["verified"] != false {
		t.Errorf("expected 404 verified=false, got %d %v", w.Code, resp)
	}
}

func TestScan_400_unknownPrefix(t *testing.T) {
	env := setup(t)
	if w, _ := env.do(t, http.MethodGet, "/api/v1/scan?qr=HOMESTAY_H1_1", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLedgerOverview_200(t *testing.T) {
	env := setup(t)
	env.do(t, http.MethodPost, "/api/v1/guides", env.registrar, guideBody)

	w, resp := env.do(t, http.MethodGet, "/api/v1/ledger", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if int(resp["entries"].(float64)) != 2 { // genesis + 1
		t.Errorf("entries: got %v", resp["entries"])
	}
	if resp["root"] != env.ledger.Root() || resp["hash_algorithm"] != "sha256" {
		t.Errorf("unexpected overview: %v", resp)
	}
}

func TestLedgerVerify_scopes(t *testing.T) {
	env := setup(t)
	env.do(t, http.MethodPost, "/api/v1/guides", env.registrar, guideBody)

	for _, scope := range []string{"", "?scope=memory", "?scope=store"} {
		w, resp := env.do(t, http.MethodGet, "/api/v1/ledger/verify"+scope, "", nil)
		if w.Code != http.StatusOK || resp["valid"] != true {
			t.Errorf("verify%s: %d %v", scope, w.Code, resp)
		}
	}
	if w, _ := env.do(t, http.MethodGet, "/api/v1/ledger/verify?scope=disk", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad scope: expected 400, got %d", w.Code)
	}
}

func TestLedgerGetRecord(t *testing.T) {
	env := setup(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/ledger/records/0", http.StatusOK},
		{"/api/v1/ledger/records/999", http.StatusNotFound},
		{"/api/v1/ledger/records/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w, _ := env.do(t, http.MethodGet, tt.path, "", nil); w.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.want, w.Code)
		}
	}
}

func TestLedgerAnalytics(t *testing.T) {
	env := setup(t)
	env.do(t, http.MethodPost, "/api/v1/guides", env.registrar, guideBody)
	env.do(t, http.MethodPost, "/api/v1/bookings", env.tourist, map[string]any{"serviceType": "homestay"})

	if w, _ := env.do(t, http.MethodGet, "/api/v1/ledger/analytics", env.tourist, nil); w.Code != http.StatusForbidden {
		t.Errorf("tourist: expected 403, got %d", w.Code)
	}

	w, resp := env.do(t, http.MethodGet, "/api/v1/ledger/analytics", env.registrar, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["totalRecords"] != float64(2) || resp["totalBookings"] != float64(1) || resp["chainIntegrity"] != true {
		t.Errorf("unexpected analytics: %v", resp)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	env := setup(t)

	w, resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK || resp["status"] != "ok" {
		t.Errorf("healthz: %d %v", w.Code, resp)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	env.do(t, http.MethodPost, "/api/v1/guides", env.registrar, guideBody)
	w, _ = env.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "tourledger_ledger_appends_total") {
		t.Errorf("metrics output missing ledger counters (status %d)", w.Code)
	}
}

func TestHealthz_reportsDegradedAudit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := ledger.New(ledger.NewMemoryStore(), nil, zap.NewNop())
	degraded := false
	r := handler.NewRouter(context.Background(), handler.RouterConfig{
		Degraded: func() bool { return degraded },
	}, l, nil, zap.NewNop())
	env := &testEnv{router: r, ledger: l}

	w, resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("healthy: %d %v", w.Code, resp)
	}

	degraded = true
	w, resp = env.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusServiceUnavailable || resp["status"] != "degraded" {
		t.Errorf("degraded: %d %v", w.Code, resp)
	}
}

func TestVerify_logsVerifierIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, err := identity.NewTokenIssuer("handler-test-secret", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	registrar, _ := tokens.Issue("staff-1", "officer@jharkhand.gov.in", identity.RoleRegistrar)
	tourist, _ := tokens.Issue("tourist-9", "", identity.RoleTourist)

	core, logs := observer.New(zap.DebugLevel)
	l := ledger.New(ledger.NewMemoryStore(), nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env := &testEnv{router: handler.NewRouter(ctx, handler.RouterConfig{}, l, tokens, zap.New(core)), ledger: l}

	_, resp := env.do(t, http.MethodPost, "/api/v1/guides", registrar, guideBody)
	qr, _ := resp["qr_code"].(string)
	if qr == "" {
		t.Fatalf("no qr_code in %v", resp)
	}

	tests := []struct {
		name, token, path, want string
	}{
		{"tourist verify", tourist, "/api/v1/guides/verify?qr=" + qr, "tourist-9"},
		{"anonymous verify", "", "/api/v1/guides/verify?qr=" + qr, identity.Anonymous},
		{"invalid token is anonymous", "not-a-jwt", "/api/v1/guides/verify?qr=" + qr, identity.Anonymous},
		{"tourist scan", tourist, "/api/v1/scan?qr=" + qr, "tourist-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.TakeAll()
			w, _ := env.do(t, http.MethodGet, tt.path, tt.token, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			entries := logs.FilterMessage("ledger lookup").All()
			if len(entries) != 1 {
				t.Fatalf("expected one lookup log, got %d", len(entries))
			}
			if got := entries[0].ContextMap()["verifier"]; got != tt.want {
				t.Errorf("verifier: got %v, want %q", got, tt.want)
			}
		})
	}
}
