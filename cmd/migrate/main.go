// Command migrate applies the embedded *.up.sql migrations against the ledger database.
// Uses the same schema_migrations table format as golang-migrate (bigint version + dirty flag)
// so the two tools are interchangeable.
//
// Usage:
//
//	go run ./cmd/migrate
//	DATABASE_URL=postgres://... go run ./cmd/migrate
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmerrifield20/tourledger/internal/config"
	"github.com/jmerrifield20/tourledger/migrations"
)

type migration struct {
	version int64
	name    string
}

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("database.driver is %q; the sqlite store migrates itself on open", cfg.Database.Driver)
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	fmt.Println("connected to database")

	// Ensure tracking table exists, same schema as golang-migrate.
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version bigint NOT NULL,
			dirty   boolean NOT NULL,
			PRIMARY KEY (version)
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	pending, err := upMigrations(migrations.FS)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range pending {
		var done bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1 AND dirty = false)`,
			m.version,
		).Scan(&done); err != nil {
			return fmt.Errorf("check %s: %w", m.name, err)
		}
		if done {
			fmt.Printf("  skip  %s (already applied)\n", m.name)
			continue
		}

		sql, err := fs.ReadFile(migrations.FS, m.name)
		if err != nil {
			return fmt.Errorf("read %s: %w", m.name, err)
		}
		if err := apply(ctx, db, m, string(sql)); err != nil {
			return err
		}
		fmt.Printf("  apply %s\n", m.name)
		applied++
	}

	if applied == 0 {
		fmt.Println("nothing to migrate, already up to date")
	} else {
		fmt.Printf("applied %d migration(s)\n", applied)
	}
	return nil
}

// apply runs one migration and its bookkeeping in a single transaction.
func apply(ctx context.Context, db *pgxpool.Pool, m migration, sql string) error {
	return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, dirty) VALUES ($1, true)
			 ON CONFLICT (version) DO UPDATE SET dirty = true`, m.version,
		); err != nil {
			return fmt.Errorf("mark dirty %s: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE schema_migrations SET dirty = false WHERE version = $1`, m.version,
		); err != nil {
			return fmt.Errorf("mark clean %s: %w", m.name, err)
		}
		return nil
	})
}

// upMigrations lists the *.up.sql files of fsys ordered by version.
func upMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		ver, err := versionFromFile(e.Name())
		if err != nil {
			return nil, fmt.Errorf("parse version from %s: %w", e.Name(), err)
		}
		out = append(out, migration{version: ver, name: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// versionFromFile extracts the leading integer from a migration filename.
// "001_blockchain_records.up.sql" → 1
func versionFromFile(filename string) (int64, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("unexpected filename format")
	}
	return strconv.ParseInt(prefix, 10, 64)
}
