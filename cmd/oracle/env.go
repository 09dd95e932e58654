package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"tmts_oracle/pkg/core/config"
	"tmts_oracle/pkg/core/logging"
	"tmts_oracle/pkg/core/metrics"
	"tmts_oracle/pkg/core/store"
)

var commands = []subcommands.Command{
	&metricCmd{},
	&projectCmd{},
	&catalogCmd{},
	&ingestCmd{},
	&seedCmd{},
}

// env is what every command needs: settings, a catalog and a data source.
type env struct {
	cfg     *config.Config
	catalog *metrics.Catalog
	source  *store.HybridSource
	engine  *metrics.Engine
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	cat, err := cfg.LoadCatalog()
	if err != nil {
		return nil, err
	}
	src := store.Open(ctx, cfg.Database.URL, cfg.Data.Dir, cfg.Company, cat.PeriodField)
	engine, err := metrics.NewEngine(src, cat, cfg.EngineConfig())
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, catalog: cat, source: src, engine: engine}, nil
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}
