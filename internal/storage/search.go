package storage

import (
	"context"
	"fmt"

	"github.com/twfooddata/nutridb/internal/observability"
)

// WarnSearchUnavailable is the report warning recorded when the
// full-text indexes cannot be built.
const WarnSearchUnavailable = "full-text search unavailable - FTS5 trigram support missing"

// SearchIndexManager builds the optional FTS5 full-text indexes over
// the foods and nutrients tables. The capability only exists on the
// sqlite driver and only when the linked sqlite supports the trigram
// tokenizer.
type SearchIndexManager struct {
	db     DB
	driver string
	logger *observability.Logger
}

// NewSearchIndexManager creates a search index manager for the given
// connection.
func NewSearchIndexManager(db DB, driver string, logger *observability.Logger) *SearchIndexManager {
	return &SearchIndexManager{
		db:     db,
		driver: driver,
		logger: logger.WithComponent("storage.search"),
	}
}

// Available probes FTS5 trigram support by creating and dropping a
// throwaway virtual table in the temp schema. Postgres never has the
// capability.
func (m *SearchIndexManager) Available(ctx context.Context) bool {
	if m.driver != "sqlite" && m.driver != "" {
		return false
	}
	if _, err := m.db.ExecContext(ctx,
		"CREATE VIRTUAL TABLE temp.fts_probe USING fts5(probe, tokenize='trigram')"); err != nil {
		m.logger.Debug().Err(err).Msg("FTS5 trigram probe failed")
		return false
	}
	if _, err := m.db.ExecContext(ctx, "DROP TABLE temp.fts_probe"); err != nil {
		m.logger.Debug().Err(err).Msg("FTS5 probe table drop failed")
		return false
	}
	return true
}

// Build creates and populates the foods_fts and nutrients_fts
// external-content tables. Callers must have verified Available first.
func (m *SearchIndexManager) Build(ctx context.Context) error {
	statements := []string{
		`CREATE VIRTUAL TABLE foods_fts USING fts5(
			name_zh,
			name_en,
			alias,
			content='foods',
			content_rowid='id',
			tokenize='trigram'
		)`,
		`CREATE VIRTUAL TABLE nutrients_fts USING fts5(
			name,
			content='nutrients',
			content_rowid='id',
			tokenize='trigram'
		)`,
		`INSERT INTO foods_fts(rowid, name_zh, name_en, alias)
		SELECT id, COALESCE(name_zh, ''), COALESCE(name_en, ''), COALESCE(alias, '') FROM foods`,
		`INSERT INTO nutrients_fts(rowid, name)
		SELECT id, name FROM nutrients`,
	}
	for _, stmt := range statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("build search index: %w", err)
		}
	}

	m.logger.Debug().Msg("Search indexes built")
	return nil
}
