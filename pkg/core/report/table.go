package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"tmts_oracle/pkg/core/metrics"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders the table with one row per period.
func Markdown(t *metrics.Table, unit string) string {
	names := t.Names()
	var b strings.Builder

	b.WriteString("| " + t.PeriodKey)
	for _, n := range names {
		b.WriteString(" | " + escape(n))
	}
	b.WriteString(" |\n|---")
	for range names {
		b.WriteString("|---:")
	}
	b.WriteString("|\n")

	for i, p := range t.Periods {
		b.WriteString("| " + p)
		for _, n := range names {
			v, _ := t.Get(n)
			b.WriteString(" | " + FormatValue(v[i], unitFor(n, unit)))
		}
		b.WriteString(" |\n")
	}
	return b.String()
}

// HTML renders the Markdown table to an HTML fragment.
func HTML(t *metrics.Table, unit string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(t, unit)), &buf); err != nil {
		return "", fmt.Errorf("failed to render table: %w", err)
	}
	return buf.String(), nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
