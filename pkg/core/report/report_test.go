package report

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmts_oracle/pkg/core/metrics"
)

func sampleTable(t *testing.T) *metrics.Table {
	t.Helper()
	tbl := metrics.NewTable(metrics.PeriodKeyDate, []string{"3Q22", "2Q22"})
	require.NoError(t, tbl.Set("TotalRevenues", []float64{21454, 16934}))
	require.NoError(t, tbl.Set(metrics.GrowthSeries, []float64{26.69186, math.NaN()}))
	return tbl
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "$21,454.00", FormatValue(21454, metrics.UnitCurrency))
	assert.Equal(t, "0.2509", FormatValue(0.250879, metrics.UnitRatio))
	assert.Equal(t, "26.69%", FormatValue(26.69186, metrics.UnitPercent))
	assert.Equal(t, "3100", FormatValue(3100.4, metrics.UnitShares))
	assert.Equal(t, "n/a", FormatValue(math.Inf(1), metrics.UnitRatio))
}

func TestMarkdown(t *testing.T) {
	out := Markdown(sampleTable(t), metrics.UnitCurrency)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| date | TotalRevenues | GrowthRatio |", lines[0])
	assert.Equal(t, "| 3Q22 | $21,454.00 | 26.69% |", lines[2])
	assert.Equal(t, "| 2Q22 | $16,934.00 | n/a |", lines[3])
}

func TestMarkdownEscapesRatioNames(t *testing.T) {
	tbl := metrics.NewTable(metrics.PeriodKeyYear, []string{"2022"})
	require.NoError(t, tbl.Set("RatioA/B", []float64{0.5}))
	out := Markdown(tbl, metrics.UnitRatio)
	assert.Contains(t, out, "| Year | RatioA/B |")
	assert.Contains(t, out, "0.5000")
}

func TestHTML(t *testing.T) {
	out, err := HTML(sampleTable(t), metrics.UnitCurrency)
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "TotalRevenues</th>")
	assert.Contains(t, out, "$21,454.00")
}
