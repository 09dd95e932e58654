package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"tmts_oracle/pkg/core/store"
)

type catalogCmd struct {
	group string
}

func (*catalogCmd) Name() string     { return "catalog" }
func (*catalogCmd) Synopsis() string { return "list the metrics of the configured catalog" }
func (*catalogCmd) Usage() string {
	return `oracle catalog [-group <group>]
`
}

func (c *catalogCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.group, "group", "", "only list metrics of this group")
}

func (c *catalogCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tGROUP\tKIND\tTIMESCALES\tDEFAULT\n")
	for _, m := range e.catalog.Metrics {
		if c.group != "" && m.Group != c.group {
			continue
		}
		scales := make([]string, len(m.Timescales))
		for i, ts := range m.Timescales {
			scales[i] = string(ts)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.Group, m.Kind, strings.Join(scales, ","), m.DefaultTimescale)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
