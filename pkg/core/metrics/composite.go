package metrics

import (
	"fmt"
	"math"
)

// Composite series names.
const (
	InvestedCapitalSeries = "InvestedCapital"
	NOPATSeries           = "NOPAT"
	FcFSeries             = "FcF"
	QuickRatioSeries      = "QuickRatio"
	TotalDebtSeries       = "TotalDebt"
)

// YearlyStockDivisor turns a sum of four quarterly balance-sheet snapshots into
// an approximate yearly average.
const YearlyStockDivisor = 4

// ====================================================================
// Field naming
// ====================================================================

// InputName returns the column holding field after reshaping to ts.
func InputName(field string, ts Timescale) string {
	if ts == TTM {
		return TTMPrefix + field
	}
	return field
}

func inputs(t *Table, fields []string, ts Timescale) ([][]float64, error) {
	out := make([][]float64, len(fields))
	for i, f := range fields {
		v, err := t.MustGet(InputName(f, ts))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// AverageStocks divides balance-sheet stock fields by four when ts is YoY.
// Other timescales are left untouched.
func AverageStocks(t *Table, ts Timescale, fields ...string) error {
	if ts != YoY {
		return nil
	}
	for _, f := range fields {
		if err := Scale(t, f, 1.0/YearlyStockDivisor); err != nil {
			return err
		}
	}
	return nil
}

// ====================================================================
// Sums
// ====================================================================

// AddSum inserts out = sum(fields) at the front of the table and returns the
// series name. Under TTM the TTM inputs are summed and the output is prefixed.
func AddSum(t *Table, out string, fields []string, ts Timescale) (string, error) {
	cols, err := inputs(t, fields, ts)
	if err != nil {
		return "", err
	}
	sum := make([]float64, t.Len())
	for _, c := range cols {
		for i, v := range c {
			sum[i] += v
		}
	}
	name := InputName(out, ts)
	if len(t.order) == 0 {
		return name, t.Set(name, sum)
	}
	return name, t.insertBefore(t.order[0], name, sum)
}

// ====================================================================
// Invested capital
// ====================================================================

// InvestedCapitalFields names the balance-sheet lines used by AddInvestedCapital.
type InvestedCapitalFields struct {
	TotalAssets             string
	AccountsPayable         string
	AccruedLiabilities      string
	Cash                    string
	TotalCurrentAssets      string
	TotalCurrentLiabilities string
}

// InvestedCapitalFieldsFrom maps an ordered field list onto the roles
// TA, AP, accrued, cash, TCA, TCL.
func InvestedCapitalFieldsFrom(fields []string) (InvestedCapitalFields, error) {
	if len(fields) != 6 {
		return InvestedCapitalFields{}, fmt.Errorf("invested capital needs 6 fields, got %d: %w", len(fields), ErrInvalidArgument)
	}
	return InvestedCapitalFields{
		TotalAssets:             fields[0],
		AccountsPayable:         fields[1],
		AccruedLiabilities:      fields[2],
		Cash:                    fields[3],
		TotalCurrentAssets:      fields[4],
		TotalCurrentLiabilities: fields[5],
	}, nil
}

func (f InvestedCapitalFields) list() []string {
	return []string{f.TotalAssets, f.AccountsPayable, f.AccruedLiabilities, f.Cash, f.TotalCurrentAssets, f.TotalCurrentLiabilities}
}

// InvestedCapital computes TA - AP - accrued - cash - max(0, TCL - TCA + cash).
func InvestedCapital(ta, ap, accrued, cash, tca, tcl float64) float64 {
	excess := math.Max(0, tcl-tca+cash)
	return ta - ap - accrued - cash - excess
}

// AddInvestedCapital inserts InvestedCapital at the front of the table.
// YoY inputs are averaged first; TTM uses the TTM-prefixed inputs.
func AddInvestedCapital(t *Table, f InvestedCapitalFields, ts Timescale) error {
	if err := AverageStocks(t, ts, f.list()...); err != nil {
		return err
	}
	cols, err := inputs(t, f.list(), ts)
	if err != nil {
		return err
	}
	ic := make([]float64, t.Len())
	for i := range ic {
		ic[i] = InvestedCapital(cols[0][i], cols[1][i], cols[2][i], cols[3][i], cols[4][i], cols[5][i])
	}
	if len(t.order) == 0 {
		return t.Set(InvestedCapitalSeries, ic)
	}
	return t.insertBefore(t.order[0], InvestedCapitalSeries, ic)
}

// ====================================================================
// NOPAT
// ====================================================================

// NOPAT is operating income after the effective tax rate.
func NOPAT(operatingIncome, incomeBeforeTaxes, provision float64) float64 {
	return operatingIncome * (1 - provision/incomeBeforeTaxes)
}

// NOPATTable derives a table holding only NOPAT from operating income,
// pre-tax income and tax provision (in that field order).
func NOPATTable(t *Table, fields []string, ts Timescale) (*Table, error) {
	if len(fields) != 3 {
		return nil, fmt.Errorf("NOPAT needs 3 fields, got %d: %w", len(fields), ErrInvalidArgument)
	}
	cols, err := inputs(t, fields, ts)
	if err != nil {
		return nil, err
	}
	v := make([]float64, t.Len())
	for i := range v {
		v[i] = NOPAT(cols[0][i], cols[1][i], cols[2][i])
	}
	out := NewTable(t.PeriodKey, t.Periods)
	return out, out.Set(NOPATSeries, v)
}

// ====================================================================
// Liquidity
// ====================================================================

// AddQuickRatio inserts QuickRatio = (TCA - inventory) / TCL at the front.
func AddQuickRatio(t *Table, fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("quick ratio needs 3 fields, got %d: %w", len(fields), ErrInvalidArgument)
	}
	cols, err := inputs(t, fields, QoQ)
	if err != nil {
		return err
	}
	q := make([]float64, t.Len())
	for i := range q {
		q[i] = (cols[0][i] - cols[1][i]) / cols[2][i]
	}
	if len(t.order) == 0 {
		return t.Set(QuickRatioSeries, q)
	}
	return t.insertBefore(t.order[0], QuickRatioSeries, q)
}
