// Package sqlite provides the durable authority store for stage records and
// the mutation journal.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/louisbranch/gamestages/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/gamestages/internal/stage"
	"github.com/louisbranch/gamestages/internal/storage"
	"github.com/louisbranch/gamestages/internal/storage/sqlite/migrations"
)

const timeFormat = time.RFC3339Nano

// Store is a SQLite-backed record store. Records are loaded once per key and
// cached; mutations write through to the database before touching the cached
// set.
type Store struct {
	sqlDB *sql.DB

	mu         sync.Mutex
	persistent map[string]*record
	ephemeral  map[string]*record
}

// Open opens a SQLite store at the provided path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		sqlDB:      sqlDB,
		persistent: make(map[string]*record),
		ephemeral:  make(map[string]*record),
	}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LookupPersistent finds the record for a stable account ID, loading it from
// the database on first access. Accounts with no rows resolve to an empty
// record; only a backing failure surfaces an error.
func (s *Store) LookupPersistent(ctx context.Context, id string) (stage.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("account id is required")
	}
	return s.lookup(ctx, s.persistent, "persistent_stages", "account_id", id)
}

// LookupOrCreateEphemeral finds or lazily creates the record for an
// ephemeral actor by display name.
func (s *Store) LookupOrCreateEphemeral(ctx context.Context, name string) (stage.Record, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("actor name is required")
	}
	return s.lookup(ctx, s.ephemeral, "ephemeral_stages", "actor_name", name)
}

func (s *Store) lookup(ctx context.Context, cache map[string]*record, table, keyColumn, key string) (stage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	s.mu.Lock()
	rec, ok := cache[key]
	s.mu.Unlock()
	if ok {
		return rec, nil
	}

	stages, err := s.loadStages(ctx, table, keyColumn, key)
	if err != nil {
		return nil, err
	}
	rec = &record{
		db:        s.sqlDB,
		table:     table,
		keyColumn: keyColumn,
		key:       key,
		stages:    stages,
	}

	s.mu.Lock()
	// Another lookup may have raced the load; keep the first record so every
	// caller shares one instance per key.
	if existing, ok := cache[key]; ok {
		rec = existing
	} else {
		cache[key] = rec
	}
	s.mu.Unlock()
	return rec, nil
}

func (s *Store) loadStages(ctx context.Context, table, keyColumn, key string) (map[stage.Name]struct{}, error) {
	query := fmt.Sprintf("SELECT stage FROM %s WHERE %s = ?", table, keyColumn)
	rows, err := s.sqlDB.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("load stages: %w", err)
	}
	defer rows.Close()

	stages := make(map[stage.Name]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages[stage.Name(name)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return stages, nil
}

// AppendJournalEntry records a committed stage mutation.
func (s *Store) AppendJournalEntry(ctx context.Context, entry storage.JournalEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	occurredAt := entry.OccurredAt
	if occurredAt == "" {
		occurredAt = time.Now().UTC().Format(timeFormat)
	}
	_, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO stage_journal (occurred_at, type, identity_kind, identity_key, stage, count) VALUES (?, ?, ?, ?, ?, ?)",
		occurredAt, entry.Type, entry.IdentityKind, entry.IdentityKey, entry.Stage, entry.Count,
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// JournalEntries returns up to limit journal entries, newest first.
func (s *Store) JournalEntries(ctx context.Context, limit int) ([]storage.JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT occurred_at, type, identity_kind, identity_key, stage, count FROM stage_journal ORDER BY seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	defer rows.Close()

	var entries []storage.JournalEntry
	for rows.Next() {
		var entry storage.JournalEntry
		if err := rows.Scan(&entry.OccurredAt, &entry.Type, &entry.IdentityKind, &entry.IdentityKey, &entry.Stage, &entry.Count); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

var (
	_ storage.RecordStore  = (*Store)(nil)
	_ storage.JournalStore = (*Store)(nil)
)
