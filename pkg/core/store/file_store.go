package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tmts_oracle/pkg/core/metrics"
	"tmts_oracle/pkg/core/utils"
)

// ErrCollectionNotFound is returned when no file exists for a collection.
var ErrCollectionNotFound = errors.New("collection not found")

// FileStore reads collections from <dir>/<company>/<collection>.json or .hjson.
// Files hold an array of records, newest period first.
type FileStore struct {
	dir         string
	company     string
	periodField string
}

// NewFileStore creates a file-backed store rooted at dir. periodField names the
// record key holding the period label; empty means DefaultPeriodField.
func NewFileStore(dir, company, periodField string) *FileStore {
	return &FileStore{dir: dir, company: company, periodField: periodFieldOr(periodField)}
}

func (s *FileStore) path(collection, ext string) string {
	return filepath.Join(s.dir, s.company, collection+ext)
}

// Fetch loads one collection file. Hand-edited files are parsed leniently.
func (s *FileStore) Fetch(ctx context.Context, collection string, fields []string) ([]metrics.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ext := range []string{".json", ".hjson"} {
		data, err := os.ReadFile(s.path(collection, ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", collection, err)
		}
		var records []metrics.Record
		decode := utils.SmartParse
		if ext == ".hjson" {
			decode = utils.DecodeHJSON
		}
		if err := decode(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse %s%s: %w", collection, ext, err)
		}
		return project(records, fields), nil
	}
	return nil, fmt.Errorf("%s/%s: %w", s.company, collection, ErrCollectionNotFound)
}

// Write replaces a collection file with the given records.
func (s *FileStore) Write(collection string, records []metrics.Record) error {
	for _, r := range records {
		if _, err := periodOf(r, s.periodField); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Join(s.dir, s.company), 0755); err != nil {
		return fmt.Errorf("failed to create company dir: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", collection, err)
	}
	if err := os.WriteFile(s.path(collection, ".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", collection, err)
	}
	return nil
}
