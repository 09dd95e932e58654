package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phuslu/log"

	"tmts_oracle/pkg/core/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS statement_records (
	company    TEXT        NOT NULL,
	collection TEXT        NOT NULL,
	period     TEXT        NOT NULL,
	position   INTEGER     NOT NULL,
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (company, collection, period)
)`

// DocumentStore keeps statement records as JSONB documents, one row per
// company, collection and period.
type DocumentStore struct {
	pool        *pgxpool.Pool
	company     string
	periodField string
}

// NewDocumentStore scopes a store to one company. periodField names the record
// key holding the period label; empty means DefaultPeriodField.
func NewDocumentStore(pool *pgxpool.Pool, company, periodField string) *DocumentStore {
	return &DocumentStore{pool: pool, company: company, periodField: periodFieldOr(periodField)}
}

// EnsureSchema creates the records table when it does not exist.
func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Fetch returns the records of a collection in stored order.
func (s *DocumentStore) Fetch(ctx context.Context, collection string, fields []string) ([]metrics.Record, error) {
	query := `
		SELECT data
		FROM statement_records
		WHERE company = $1 AND collection = $2
		ORDER BY position ASC
	`
	rows, err := s.pool.Query(ctx, query, s.company, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var records []metrics.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", collection, err)
		}
		var r metrics.Record
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", collection, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	return project(records, fields), nil
}

// Upsert writes records in the given order. Position follows slice order, so
// callers pass records newest first.
func (s *DocumentStore) Upsert(ctx context.Context, collection string, records []metrics.Record) error {
	query := `
		INSERT INTO statement_records (company, collection, period, position, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company, collection, period)
		DO UPDATE SET
			position = EXCLUDED.position,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`
	batch := &pgx.Batch{}
	now := time.Now()
	for i, r := range records {
		period, err := periodOf(r, s.periodField)
		if err != nil {
			return err
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s: %w", collection, period, err)
		}
		batch.Queue(query, s.company, collection, period, i, data, now)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", collection, err)
		}
	}
	log.Info().Str("company", s.company).Str("collection", collection).Int("records", len(records)).Msg("records upserted")
	return nil
}

// Collections lists the collections stored for the company.
func (s *DocumentStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT collection FROM statement_records WHERE company = $1 ORDER BY collection`, s.company)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}
