// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists a log of completed searches in SQLite so that
// recent queries and their provider coverage can be reviewed later.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/openresources/pkg/types"
)

const (
	// DefaultLimit is the number of entries Recent returns when asked for
	// zero or fewer.
	DefaultLimit = 20

	// MaxLimit bounds a single Recent call.
	MaxLimit = 200

	// timeFormat is fixed width so stored timestamps sort as text.
	timeFormat = "2006-01-02T15:04:05.000000000Z"
)

// ErrNotFound is returned by Get for an unknown entry id.
var ErrNotFound = errors.New("history entry not found")

// Entry is one recorded search.
type Entry struct {
	ID        string                 `json:"id" yaml:"id"`
	Query     string                 `json:"query" yaml:"query"`
	Type      string                 `json:"type" yaml:"type"`
	Page      int                    `json:"page" yaml:"page"`
	PageSize  int                    `json:"pageSize" yaml:"page_size"`
	Total     int                    `json:"total" yaml:"total"`
	Returned  int                    `json:"returned" yaml:"returned"`
	Coverage  types.Coverage         `json:"coverage" yaml:"coverage"`
	Providers []types.ProviderReport `json:"providers" yaml:"providers"`
	ElapsedMs int64                  `json:"elapsed_ms" yaml:"elapsed_ms"`
	CreatedAt time.Time              `json:"created_at" yaml:"created_at"`
}

// Store manages the search history SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed. The path ":memory:" opens a
// private in-memory database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dsn == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS searches (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			type TEXT NOT NULL,
			page INTEGER NOT NULL,
			page_size INTEGER NOT NULL,
			total INTEGER NOT NULL,
			returned INTEGER NOT NULL,
			coverage TEXT NOT NULL,
			providers TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores one completed search.
func (s *Store) Record(ctx context.Context, q types.Query, resp *types.SearchResponse) error {
	coverage, err := json.Marshal(resp.Coverage)
	if err != nil {
		return fmt.Errorf("encoding coverage: %w", err)
	}
	providers, err := json.Marshal(resp.Providers)
	if err != nil {
		return fmt.Errorf("encoding providers: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO searches (id, query, type, page, page_size, total, returned, coverage, providers, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), q.Text, string(q.Type), q.Page, q.PageSize,
		resp.Total, len(resp.Results), string(coverage), string(providers),
		resp.Elapsed.Milliseconds(), s.now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting search: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, type, page, page_size, total, returned, coverage, providers, elapsed_ms, created_at
		 FROM searches ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, type, page, page_size, total, returned, coverage, providers, elapsed_ms, created_at
		 FROM searches WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e                   Entry
		coverage, providers string
		createdAt           string
	)
	if err := sc.Scan(&e.ID, &e.Query, &e.Type, &e.Page, &e.PageSize, &e.Total, &e.Returned,
		&coverage, &providers, &e.ElapsedMs, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scanning history row: %w", err)
	}
	if err := json.Unmarshal([]byte(coverage), &e.Coverage); err != nil {
		return Entry{}, fmt.Errorf("decoding coverage of %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(providers), &e.Providers); err != nil {
		return Entry{}, fmt.Errorf("decoding providers of %s: %w", e.ID, err)
	}
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing created_at of %s: %w", e.ID, err)
	}
	e.CreatedAt = t
	return e, nil
}

// Prune deletes entries older than cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM searches WHERE created_at < ?`, cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}
