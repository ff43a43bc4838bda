package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/tourledger/internal/handler"
	"github.com/jmerrifield20/tourledger/internal/identity"
	"github.com/jmerrifield20/tourledger/internal/ledger"
)

const testSecret = "ledgerctl-test-secret"

func newTestServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := identity.NewTokenIssuer(testSecret, "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	l := ledger.New(ledger.NewMemoryStore(), nil, zap.NewNop())
	srv := httptest.NewServer(handler.NewRouter(ctx, handler.RouterConfig{}, l, tokens, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv.URL
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	serverURL, token, output = "", "", "text"
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func registrarToken(t *testing.T) string {
	t.Helper()
	issuer, err := identity.NewTokenIssuer(testSecret, "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := issuer.Issue("staff-1", "officer@jharkhand.gov.in", identity.RoleRegistrar)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestToken_requiresSecret(t *testing.T) {
	t.Setenv("LEDGERCTL_JWT_SECRET", "")
	tokSecret = ""
	if err := execute(t, "token", "someone"); err == nil {
		t.Error("expected error without a secret")
	}
}

func TestToken_rejectsUnknownRole(t *testing.T) {
	if err := execute(t, "token", "someone", "--secret", testSecret, "--role", "root"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestRegisterThenVerify(t *testing.T) {
	url := newTestServer(t)
	tok := registrarToken(t)

	if err := execute(t, "--server", url, "--token", tok, "register", "guide", "G7", "--name", "Sita Munda"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := execute(t, "--server", url, "chain", "--scope", "store"); err != nil {
		t.Fatalf("chain: %v", err)
	}
	if err := execute(t, "--server", url, "record", "1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	err := execute(t, "--server", url, "verify", "guide", "GUIDE_G404_1")
	if !errors.Is(err, errUnverified) {
		t.Errorf("unknown guide: got %v, want errUnverified", err)
	}
}

func TestRecord_badIndex(t *testing.T) {
	if err := execute(t, "record", "-1"); err == nil {
		t.Error("expected error for negative index")
	}
}
