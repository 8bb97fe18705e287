package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/onco-tier-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL. It expects
// the schema to already exist (created via migrations).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Save stores or updates the entry for its gene+variant+tumor_type key.
func (s *PostgresStore) Save(ctx context.Context, entry *Entry) error {
	now := time.Now()
	entry.Gene = strings.ToUpper(strings.TrimSpace(entry.Gene))

	query := `
		INSERT INTO history (
			gene, variant, tumor_type, tier, sublevel,
			justification, narrative, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (gene, variant, tumor_type) DO UPDATE SET
			tier = EXCLUDED.tier,
			sublevel = EXCLUDED.sublevel,
			justification = EXCLUDED.justification,
			narrative = EXCLUDED.narrative,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		entry.Gene,
		entry.Variant,
		entry.TumorType,
		string(entry.Tier),
		string(entry.Sublevel),
		entry.Justification,
		entry.Narrative,
		now,
		now,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}

	entry.UpdatedAt = now
	return nil
}

// Get retrieves the entry for a gene+variant+tumor_type key, or nil.
func (s *PostgresStore) Get(ctx context.Context, gene, variant, tumorType string) (*Entry, error) {
	query := `
		SELECT id, gene, variant, tumor_type, tier, sublevel,
			justification, narrative, created_at, updated_at
		FROM history
		WHERE gene = $1 AND variant = $2 AND tumor_type = $3
		LIMIT 1
	`

	entry := &Entry{}
	var tier, sublevel string

	err := s.db.QueryRowContext(ctx, query, strings.ToUpper(strings.TrimSpace(gene)), variant, tumorType).Scan(
		&entry.ID, &entry.Gene, &entry.Variant, &entry.TumorType,
		&tier, &sublevel, &entry.Justification, &entry.Narrative,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}

	entry.Tier = domain.Tier(tier)
	entry.Sublevel = domain.Sublevel(sublevel)
	return entry, nil
}

// List returns entries ordered newest first, with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Entry, error) {
	query := `
		SELECT id, gene, variant, tumor_type, tier, sublevel,
			justification, narrative, created_at, updated_at
		FROM history
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		entry := &Entry{}
		var tier, sublevel string
		if err := rows.Scan(
			&entry.ID, &entry.Gene, &entry.Variant, &entry.TumorType,
			&tier, &sublevel, &entry.Justification, &entry.Narrative,
			&entry.CreatedAt, &entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entry.Tier = domain.Tier(tier)
		entry.Sublevel = domain.Sublevel(sublevel)
		result = append(result, entry)
	}
	return result, rows.Err()
}

// Count returns the total number of entries.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&count)
	return count, err
}

// Delete removes an entry by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE id = $1", id)
	return err
}

// ExportJSON exports all entries to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
