package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"tmts_oracle/pkg/core/metrics"
	"tmts_oracle/pkg/core/report"
	"tmts_oracle/pkg/core/store"
)

type metricCmd struct {
	timescale string
	format    string
}

func (*metricCmd) Name() string     { return "metric" }
func (*metricCmd) Synopsis() string { return "compute one catalog metric and print it" }
func (*metricCmd) Usage() string {
	return `oracle metric [-timescale QoQ|YoY|TTM] [-format markdown|json|html] <name>

  Derives the named metric from the configured statement collections.
  Without -timescale the metric's default timescale is used.
`
}

func (c *metricCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.timescale, "timescale", "", "QoQ, YoY or TTM (defaults to the metric's default)")
	f.StringVar(&c.format, "format", "markdown", "output format: markdown, json or html")
}

func (c *metricCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	e, err := openEnv(ctx)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	var ts metrics.Timescale
	if c.timescale != "" {
		if ts, err = metrics.ParseTimescale(c.timescale); err != nil {
			return fail(err)
		}
	}
	name := f.Arg(0)
	spec, err := e.catalog.Lookup(name)
	if err != nil {
		return fail(err)
	}
	t, err := e.engine.Compute(ctx, name, ts)
	if err != nil {
		return fail(err)
	}
	return printTable(t, spec.Unit, c.format)
}

type projectCmd struct {
	timescale string
	format    string
}

func (*projectCmd) Name() string     { return "project" }
func (*projectCmd) Synopsis() string { return "project free cash flow over the forecast horizon" }
func (*projectCmd) Usage() string {
	return `oracle project [-timescale QoQ|TTM] [-format markdown|json|html]

  Seeds compounding invested-capital and ROIC growth from recent rates of
  change and prints the projected free cash flow per quarter.
`
}

func (c *projectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.timescale, "timescale", "QoQ", "QoQ or TTM")
	f.StringVar(&c.format, "format", "markdown", "output format: markdown, json or html")
}

func (c *projectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ts, err := metrics.ParseTimescale(c.timescale)
	if err != nil {
		return fail(err)
	}
	e, err := openEnv(ctx)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	t, err := e.engine.Project(ctx, ts)
	if err != nil {
		return fail(err)
	}
	return printTable(t, metrics.UnitCurrency, c.format)
}

func printTable(t *metrics.Table, unit, format string) subcommands.ExitStatus {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(t); err != nil {
			return fail(err)
		}
	case "html":
		out, err := report.HTML(t, unit)
		if err != nil {
			return fail(err)
		}
		fmt.Print(out)
	case "markdown", "md":
		fmt.Print(report.Markdown(t, unit))
	default:
		return fail(fmt.Errorf("unknown format %q", format))
	}
	return subcommands.ExitSuccess
}
