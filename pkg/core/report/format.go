// Package report renders metric tables for people: Markdown for terminals and
// HTML fragments for the dashboard.
package report

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"tmts_oracle/pkg/core/metrics"
)

// Currency used for currency-unit metrics.
var Currency = money.USD

const missing = "n/a"

// FormatValue renders one value according to the metric unit.
func FormatValue(v float64, unit string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	d := decimal.NewFromFloat(v)
	switch unit {
	case metrics.UnitCurrency:
		return formatMoney(d)
	case metrics.UnitPercent:
		return d.Round(2).StringFixed(2) + "%"
	case metrics.UnitShares:
		return d.Round(0).String()
	default:
		return d.Round(4).StringFixed(4)
	}
}

// formatMoney converts to minor units before handing over to go-money.
func formatMoney(amount decimal.Decimal) string {
	cur := money.GetCurrency(Currency)
	if cur == nil {
		return amount.StringFixed(2)
	}
	factor := decimal.New(1, int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), Currency).Display()
}

// unitFor picks the unit of a series: derived ratio and growth columns are not
// in the metric's own unit.
func unitFor(series, unit string) string {
	switch {
	case strings.HasPrefix(series, "Ratio"), series == metrics.QuickRatioSeries,
		series == metrics.ROICProjectedSeries, series == metrics.WACCSeries,
		series == metrics.CostOfEquitySeries, series == metrics.CostOfDebtSeries,
		series == metrics.LeveredBetaSeries:
		return metrics.UnitRatio
	case series == metrics.GrowthSeries, series == metrics.RateSeries, series == metrics.RateTTMSeries:
		return metrics.UnitPercent
	}
	if unit == metrics.UnitRatio || unit == metrics.UnitPercent {
		// Raw inputs of a ratio metric are statement amounts.
		return metrics.UnitCurrency
	}
	return unit
}
