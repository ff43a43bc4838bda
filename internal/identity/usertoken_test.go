package identity_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmerrifield20/tourledger/internal/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestIssuer(t *testing.T, ttl time.Duration) *identity.TokenIssuer {
	t.Helper()
	ti, err := identity.NewTokenIssuer("test-secret-0123456789", "https://auth.jharkhandtourism.in", ttl)
	if err != nil {
		t.Fatal(err)
	}
	return ti
}

func TestNewTokenIssuer_requiresSecret(t *testing.T) {
	if _, err := identity.NewTokenIssuer("", "", 0); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestTokenIssuer_roundTrip(t *testing.T) {
	ti := newTestIssuer(t, time.Hour)

	token, err := ti.Issue("user-17", "officer@jharkhand.gov.in", identity.RoleRegistrar)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("expected 3-part JWT, got %d parts", len(parts))
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Subject != "user-17" || claims.Role != identity.RoleRegistrar {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Actor() != "officer@jharkhand.gov.in" {
		t.Errorf("Actor(): got %q", claims.Actor())
	}
}

func TestTokenIssuer_Verify_expired(t *testing.T) {
	ti := newTestIssuer(t, time.Nanosecond)
	token, err := ti.Issue("user-1", "", identity.RoleTourist)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ti.Verify(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenIssuer_Verify_wrongSecret(t *testing.T) {
	token, _ := newTestIssuer(t, time.Hour).Issue("user-1", "", "")
	other, _ := identity.NewTokenIssuer("another-secret", "https://auth.jharkhandtourism.in", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestTokenIssuer_Verify_wrongIssuer(t *testing.T) {
	token, _ := newTestIssuer(t, time.Hour).Issue("user-1", "", "")
	other, _ := identity.NewTokenIssuer("test-secret-0123456789", "https://elsewhere.example", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Error("expected error for unexpected issuer")
	}
}

func TestUserClaims_HasRole(t *testing.T) {
	var nilClaims *identity.UserClaims
	if nilClaims.HasRole(identity.RoleTourist) {
		t.Error("nil claims must not carry roles")
	}
	if nilClaims.Actor() != identity.Anonymous {
		t.Errorf("nil claims actor: got %q", nilClaims.Actor())
	}
	admin := &identity.UserClaims{Role: identity.RoleAdmin}
	if !admin.HasRole(identity.RoleRegistrar) {
		t.Error("admin should satisfy every role")
	}
	tourist := &identity.UserClaims{Role: identity.RoleTourist}
	if tourist.HasRole(identity.RoleRegistrar) {
		t.Error("tourist must not satisfy registrar")
	}
}

func serve(mw gin.HandlerFunc, authHeader string) (*httptest.ResponseRecorder, string) {
	var actor string
	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		actor = identity.ActorFromCtx(c)
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, actor
}

func TestRequireRole(t *testing.T) {
	ti := newTestIssuer(t, time.Hour)
	registrar, _ := ti.Issue("u1", "officer@jharkhand.gov.in", identity.RoleRegistrar)
	tourist, _ := ti.Issue("u2", "", identity.RoleTourist)

	tests := []struct {
		name   string
		header string
		want   int
		actor  string
	}{
		{"no token", "", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, ""},
		{"wrong role", "Bearer " + tourist, http.StatusForbidden, ""},
		{"registrar", "Bearer " + registrar, http.StatusNoContent, "officer@jharkhand.gov.in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, actor := serve(identity.RequireRole(ti, identity.RoleRegistrar), tt.header)
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d", w.Code, tt.want)
			}
			if actor != tt.actor {
				t.Errorf("actor: got %q, want %q", actor, tt.actor)
			}
		})
	}
}

func TestRequireUser_nilIssuerIsOpen(t *testing.T) {
	w, actor := serve(identity.RequireRole(nil, identity.RoleRegistrar), "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", w.Code)
	}
	if actor != identity.Anonymous {
		t.Errorf("actor: got %q, want %q", actor, identity.Anonymous)
	}
}

func TestOptionalUser(t *testing.T) {
	ti := newTestIssuer(t, time.Hour)
	token, _ := ti.Issue("u2", "", identity.RoleTourist)

	w, actor := serve(identity.OptionalUser(ti), "Bearer "+token)
	if w.Code != http.StatusNoContent || actor != "u2" {
		t.Errorf("with token: status %d actor %q", w.Code, actor)
	}
	w, actor = serve(identity.OptionalUser(ti), "Bearer broken")
	if w.Code != http.StatusNoContent || actor != identity.Anonymous {
		t.Errorf("with bad token: status %d actor %q", w.Code, actor)
	}
}
