package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/onco-tier-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store. It creates the database
// file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	e := &Entry{}
	var tier, sublevel string

	err := s.Scan(
		&e.ID, &e.Gene, &e.Variant, &e.TumorType,
		&tier, &sublevel, &e.Justification, &e.Narrative,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Tier = domain.Tier(tier)
	e.Sublevel = domain.Sublevel(sublevel)
	return e, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		gene TEXT NOT NULL,
		variant TEXT NOT NULL,
		tumor_type TEXT DEFAULT '',
		tier TEXT NOT NULL,
		sublevel TEXT DEFAULT '',
		justification TEXT NOT NULL,
		narrative TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(gene, variant, tumor_type)
	);

	CREATE INDEX IF NOT EXISTS idx_history_gene ON history(gene);
	CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates the entry for its gene+variant+tumor_type key.
func (s *SQLiteStore) Save(ctx context.Context, entry *Entry) error {
	now := time.Now()
	entry.Gene = strings.ToUpper(strings.TrimSpace(entry.Gene))

	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM history WHERE gene = ? AND variant = ? AND tumor_type = ?",
		entry.Gene, entry.Variant, entry.TumorType,
	).Scan(&existingID)

	if err == nil {
		entry.ID = existingID
		entry.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE history SET
				tier = ?,
				sublevel = ?,
				justification = ?,
				narrative = ?,
				updated_at = ?
			WHERE id = ?
		`,
			string(entry.Tier),
			string(entry.Sublevel),
			entry.Justification,
			entry.Narrative,
			now,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	entry.CreatedAt = now
	entry.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO history (
			gene, variant, tumor_type, tier, sublevel,
			justification, narrative, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Gene,
		entry.Variant,
		entry.TumorType,
		string(entry.Tier),
		string(entry.Sublevel),
		entry.Justification,
		entry.Narrative,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	entry.ID = id

	return nil
}

// Get retrieves the entry for a gene+variant+tumor_type key, or nil.
func (s *SQLiteStore) Get(ctx context.Context, gene, variant, tumorType string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, gene, variant, tumor_type, tier, sublevel,
			justification, narrative, created_at, updated_at
		FROM history
		WHERE gene = ? AND variant = ? AND tumor_type = ?
		LIMIT 1
	`, strings.ToUpper(strings.TrimSpace(gene)), variant, tumorType)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return entry, nil
}

// List returns entries ordered newest first, with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, gene, variant, tumor_type, tier, sublevel,
			justification, narrative, created_at, updated_at
		FROM history
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// Count returns the total number of entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&count)
	return count, err
}

// Delete removes an entry by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all entries to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Entries:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports entries from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, entry := range export.Entries {
		existing, err := s.Get(ctx, entry.Gene, entry.Variant, entry.TumorType)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}
		if err := s.Save(ctx, entry); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
