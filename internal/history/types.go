// Package history provides a local audit log of tier classifications for the
// standalone MCP server. Repeated assessments of the same variant in the same
// tumor context update the existing entry.
package history

import (
	"context"
	"io"
	"time"

	"github.com/onco-tier-server/internal/domain"
)

// Entry is one recorded classification.
type Entry struct {
	ID            int64           `json:"id,omitempty"`
	Gene          string          `json:"gene"`
	Variant       string          `json:"variant"`
	TumorType     string          `json:"tumor_type,omitempty"`
	Tier          domain.Tier     `json:"tier"`
	Sublevel      domain.Sublevel `json:"sublevel,omitempty"`
	Justification string          `json:"justification"`
	Narrative     string          `json:"narrative,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Store defines the interface for classification history storage.
type Store interface {
	// Save stores or updates the entry for its gene+variant+tumor_type key.
	Save(ctx context.Context, entry *Entry) error

	// Get retrieves the entry for a gene+variant+tumor_type key, or nil.
	Get(ctx context.Context, gene, variant, tumorType string) (*Entry, error)

	// List returns entries ordered newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Entry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes an entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all entries to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports entries from a JSON reader, skipping keys that
	// already exist. Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Entries    []*Entry  `json:"entries"`
}
