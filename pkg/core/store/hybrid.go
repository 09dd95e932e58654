package store

import (
	"context"
	"fmt"

	"github.com/phuslu/log"

	"tmts_oracle/pkg/core/metrics"
)

// HybridSource reads from the database first and falls back to files when the
// database is unavailable or holds no records for a collection.
type HybridSource struct {
	db    *DocumentStore
	files *FileStore
}

// NewHybridSource combines the two stores. Either may be nil.
func NewHybridSource(db *DocumentStore, files *FileStore) *HybridSource {
	return &HybridSource{db: db, files: files}
}

// Fetch implements metrics.DataSource.
func (h *HybridSource) Fetch(ctx context.Context, collection string, fields []string) ([]metrics.Record, error) {
	if h.db != nil {
		records, err := h.db.Fetch(ctx, collection, fields)
		if err == nil && len(records) > 0 {
			return records, nil
		}
		if h.files == nil {
			return records, err
		}
		if err != nil {
			log.Warn().Str("collection", collection).Err(err).Msg("database fetch failed, using file store")
		}
	}
	if h.files == nil {
		return nil, fmt.Errorf("no data source configured for %s", collection)
	}
	return h.files.Fetch(ctx, collection, fields)
}

// Save writes records to every configured store.
func (h *HybridSource) Save(ctx context.Context, collection string, records []metrics.Record) error {
	if h.db != nil {
		if err := h.db.Upsert(ctx, collection, records); err != nil {
			return err
		}
	}
	if h.files != nil {
		if err := h.files.Write(collection, records); err != nil {
			return err
		}
	}
	return nil
}

// Open builds the hybrid source used by the binaries. The database is optional:
// when no url is configured or it cannot be reached, only files under dataDir are read.
func Open(ctx context.Context, url, dataDir, company, periodField string) *HybridSource {
	files := NewFileStore(dataDir, company, periodField)
	if err := InitDB(ctx, url); err != nil {
		log.Warn().Err(err).Str("data_dir", dataDir).Msg("database disabled, serving from files")
		return NewHybridSource(nil, files)
	}
	db := NewDocumentStore(GetPool(), company, periodField)
	if err := db.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("schema setup failed, serving from files")
		return NewHybridSource(nil, files)
	}
	log.Info().Str("company", company).Msg("document store ready")
	return NewHybridSource(db, files)
}
