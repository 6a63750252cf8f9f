package termstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seinsight/insight-core/internal/config"
	_ "modernc.org/sqlite"
)

// Store persists custom terminology entries across restarts. Built-in terms
// never live here; only client-added entries do. With persistence disabled it
// degrades to a no-op so callers need no branching.
type Store struct {
	db    *sql.DB
	cfg   config.TermsConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the term store according to config.
func Open(ctx context.Context, cfg config.TermsConfig, log *slog.Logger) (*Store, error) {
	if !cfg.Persist {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.StorePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.StorePath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS terms (
    term TEXT PRIMARY KEY,
    definition TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put inserts or replaces a custom term.
func (s *Store) Put(ctx context.Context, term, definition string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO terms(term, definition, created_at)
		 VALUES(?, ?, ?)
		 ON CONFLICT(term) DO UPDATE SET definition=excluded.definition`,
		strings.ToLower(term), definition, s.clock().UTC())
	return err
}

// Delete removes a custom term if present.
func (s *Store) Delete(ctx context.Context, term string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM terms WHERE term = ?`, strings.ToLower(term))
	return err
}

// All returns every persisted term, for seeding the dictionary at startup.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT term, definition FROM terms ORDER BY term ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var term, definition string
		if err := rows.Scan(&term, &definition); err != nil {
			return nil, err
		}
		out[term] = definition
	}
	return out, rows.Err()
}
