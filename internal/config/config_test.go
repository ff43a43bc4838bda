package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmerrifield20/tourledger/internal/config"
)

func TestLoad_defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Database.Driver != config.DriverPostgres {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second || cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("durations not decoded: %v %v", cfg.Server.ShutdownTimeout, cfg.Auth.TokenTTL)
	}
	if cfg.Ledger.Hash != "sha256" || !cfg.Ledger.Rehydrate {
		t.Errorf("ledger defaults: %+v", cfg.Ledger)
	}
	if cfg.File != "" {
		t.Errorf("no file expected, got %q", cfg.File)
	}
}

func TestLoad_fileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "ledgerd.yaml")
	yaml := "server:\n  port: 9090\ndatabase:\n  driver: sqlite\nledger:\n  hash: blake3\n  rehydrate: false\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("env should override file: port=%d", cfg.Server.Port)
	}
	if cfg.Database.Driver != config.DriverSQLite || cfg.Ledger.Hash != "blake3" || cfg.Ledger.Rehydrate {
		t.Errorf("file values not applied: %+v %+v", cfg.Database, cfg.Ledger)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("jwt secret: got %q", cfg.Auth.JWTSecret)
	}
	if cfg.File != path {
		t.Errorf("File: got %q, want %q", cfg.File, path)
	}
}

func TestLoad_dotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(".env", []byte("EVENTS_EXCHANGE=jh.ledger\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("EVENTS_EXCHANGE") })

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Events.Exchange != "jh.ledger" {
		t.Errorf("exchange: got %q", cfg.Events.Exchange)
	}
}

func TestLoad_invalidDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_DRIVER", "mongo")
	if _, err := config.Load(""); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_missingExplicitFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
