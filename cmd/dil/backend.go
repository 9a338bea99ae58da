package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Mindburn-Labs/dil/pkg/config"
	"github.com/Mindburn-Labs/dil/pkg/crypto"
	"github.com/Mindburn-Labs/dil/pkg/ledger"
	"github.com/Mindburn-Labs/dil/pkg/store"

	_ "github.com/lib/pq" // Postgres Driver
	_ "modernc.org/sqlite"
)

// loadConfig loads and validates configuration, reporting problems on stderr.
func loadConfig(stderr io.Writer) (*config.Config, bool) {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, false
	}
	return cfg, true
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})).With("service", "dil")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// openLedger opens the mirror selected by cfg and restores the ledger from it.
// The returned closer releases the mirror.
func openLedger(ctx context.Context, cfg *config.Config, hasher crypto.Hasher) (*ledger.Store, io.Closer, error) {
	mirror, closer, err := openMirror(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if mirror == nil {
		return ledger.New(hasher, nil), closer, nil
	}
	lgr, err := ledger.Open(ctx, hasher, mirror)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return lgr, closer, nil
}

func openMirror(ctx context.Context, cfg *config.Config) (ledger.Mirror, io.Closer, error) {
	switch cfg.Ledger.Backend {
	case config.BackendFile:
		log.Printf("[dil] ledger: jsonl file at %s", cfg.Ledger.Path)
		fm, err := store.NewFileMirror(cfg.Ledger.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open ledger file: %w", err)
		}
		return fm, fm, nil

	case config.BackendSQLite:
		return setupLiteMode(ctx, cfg.Ledger.Path)

	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.Ledger.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("DB ping failed: %w", err)
		}
		log.Println("[dil] postgres: connected")
		pm := store.NewPostgresMirror(db)
		if err := pm.Init(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to init ledger: %w", err)
		}
		return pm, db, nil

	default:
		log.Println("[dil] ledger: in-memory only")
		return nil, nopCloser, nil
	}
}

func setupLiteMode(ctx context.Context, dbPath string) (ledger.Mirror, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	log.Printf("[dil] lite mode: using sqlite at %s", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One writer; the ledger lock already serialises appends.
	db.SetMaxOpenConns(1)

	sm := store.NewSQLMirror(db)
	if err := sm.Init(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to init sqlite ledger: %w", err)
	}
	return sm, db, nil
}
