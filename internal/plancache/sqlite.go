package plancache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mattjoyce/kompozer/internal/plan"
)

// SQLite is a Store backed by a SQLite file, so the cache survives
// restarts and can be shared between the CLI and the HTTP surface.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the cache database at path and
// ensures the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("plan cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create plan cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open plan cache: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS plans (
  fingerprint TEXT PRIMARY KEY,
  plan_id     TEXT NOT NULL,
  created_at  TEXT NOT NULL,
  plan        JSON NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS plans_created_at_idx ON plans(created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap plan cache: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, fingerprint string) (*plan.BuildPlan, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT plan FROM plans WHERE fingerprint = ?`, fingerprint).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cached plan: %w", err)
	}
	return plan.Decode(data)
}

func (s *SQLite) Put(ctx context.Context, p *plan.BuildPlan) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (fingerprint, plan_id, created_at, plan)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
		   plan_id = excluded.plan_id,
		   created_at = excluded.created_at,
		   plan = excluded.plan`,
		p.KompositionFingerprint, p.PlanID, p.CreatedAt.Format(time.RFC3339Nano), data)
	if err != nil {
		return fmt.Errorf("store plan %s: %w", p.PlanID, err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
