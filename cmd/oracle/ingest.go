package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/phuslu/log"

	"tmts_oracle/pkg/core/ingest"
	"tmts_oracle/pkg/core/metrics"
	"tmts_oracle/pkg/core/store"
	"tmts_oracle/pkg/core/utils"
)

type ingestCmd struct {
	file       string
	collection string
	table      int
	scale      float64
}

func (*ingestCmd) Name() string     { return "ingest" }
func (*ingestCmd) Synopsis() string { return "import a quarterly statement table from HTML" }
func (*ingestCmd) Usage() string {
	return `oracle ingest -file <statement.html> -collection <name> [-table N] [-scale X]

  Reads the N-th table with a quarter header row, maps captions to catalog
  field names and merges the records into the collection.
`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "HTML file holding the statement table")
	f.StringVar(&c.collection, "collection", "", "target collection, e.g. balance_sheet")
	f.IntVar(&c.table, "table", 0, "index of the quarterly table to read")
	f.Float64Var(&c.scale, "scale", 1, "multiplier applied to every value")
}

func (c *ingestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" || c.collection == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	in, err := os.Open(c.file)
	if err != nil {
		return fail(err)
	}
	defer in.Close()

	e, err := openEnv(ctx)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	res, err := ingest.ParseStatement(in, ingest.Options{TableIndex: c.table, Scale: c.scale, PeriodField: e.catalog.PeriodField})
	if err != nil {
		return fail(err)
	}

	if err := save(ctx, e, c.collection, res.Records); err != nil {
		return fail(err)
	}
	log.Info().Str("batch_id", res.BatchID).Str("collection", c.collection).
		Int("periods", len(res.Periods)).Int("fields", len(res.Fields)).Msg("statement ingested")
	return subcommands.ExitSuccess
}

type seedCmd struct {
	collection string
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "load JSON or HJSON records into a collection" }
func (*seedCmd) Usage() string {
	return `oracle seed -collection <name> <records.json>
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collection, "collection", "", "target collection")
}

func (c *seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.collection == "" || f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(f.Arg(0))
	if err != nil {
		return fail(err)
	}
	var records []metrics.Record
	if err := utils.SmartParse(data, &records); err != nil {
		return fail(fmt.Errorf("failed to parse %s: %w", f.Arg(0), err))
	}
	e, err := openEnv(ctx)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	if err := save(ctx, e, c.collection, records); err != nil {
		return fail(err)
	}
	log.Info().Str("collection", c.collection).Int("records", len(records)).Msg("collection seeded")
	return subcommands.ExitSuccess
}

// save merges records into what the collection already holds.
func save(ctx context.Context, e *env, collection string, records []metrics.Record) error {
	existing, err := e.source.Fetch(ctx, collection, nil)
	if err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
		return err
	}
	merged, err := ingest.MergeRecords(existing, records, e.catalog.PeriodField)
	if err != nil {
		return err
	}
	return e.source.Save(ctx, collection, merged)
}
