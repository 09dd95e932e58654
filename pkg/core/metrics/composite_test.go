package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var icFields = InvestedCapitalFields{
	TotalAssets:             "TotalAssets",
	AccountsPayable:         "AccountsPayable",
	AccruedLiabilities:      "AccruedLiabilitiesAndOther",
	Cash:                    "CashAndCashEquivalents",
	TotalCurrentAssets:      "TotalCurrentAssets",
	TotalCurrentLiabilities: "TotalCurrentLiabilities",
}

func TestInvestedCapitalFormula(t *testing.T) {
	// Excess current liabilities: 40 - 50 + 20 = 10.
	assert.Equal(t, 55.0, InvestedCapital(100, 10, 5, 20, 50, 40))
	// Negative excess is floored at zero.
	assert.Equal(t, 65.0, InvestedCapital(100, 10, 5, 20, 50, 20))
}

func balanceSheet(t *testing.T, periods []string) *Table {
	t.Helper()
	tbl := NewTable(PeriodKeyDate, periods)
	n := len(periods)
	fill := func(v float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	require.NoError(t, tbl.Set("TotalAssets", fill(1500)))
	require.NoError(t, tbl.Set("AccountsPayable", fill(200)))
	require.NoError(t, tbl.Set("AccruedLiabilitiesAndOther", fill(100)))
	require.NoError(t, tbl.Set("CashAndCashEquivalents", fill(200)))
	require.NoError(t, tbl.Set("TotalCurrentAssets", fill(600)))
	require.NoError(t, tbl.Set("TotalCurrentLiabilities", fill(300)))
	return tbl
}

func TestAddInvestedCapitalQoQ(t *testing.T) {
	tbl := balanceSheet(t, []string{"2Q22", "1Q22"})
	require.NoError(t, AddInvestedCapital(tbl, icFields, QoQ))
	assert.Equal(t, InvestedCapitalSeries, tbl.Names()[0])
	ic, _ := tbl.Get(InvestedCapitalSeries)
	assert.Equal(t, []float64{1000, 1000}, ic)
}

func TestAddInvestedCapitalYoYAveragesStocks(t *testing.T) {
	quarters := []string{"4Q21", "3Q21", "2Q21", "1Q21"}
	yearly, err := Reshape(balanceSheet(t, quarters), YoY)
	require.NoError(t, err)
	require.NoError(t, AddInvestedCapital(yearly, icFields, YoY))

	ic, _ := yearly.Get(InvestedCapitalSeries)
	assert.Equal(t, []float64{1000}, ic)
	ta, _ := yearly.Get("TotalAssets")
	assert.Equal(t, []float64{1500}, ta)
}

func TestAddInvestedCapitalTTMUsesTrailingInputs(t *testing.T) {
	quarters := []string{"4Q21", "3Q21", "2Q21", "1Q21", "4Q20"}
	ttm, err := Reshape(balanceSheet(t, quarters), TTM)
	require.NoError(t, err)
	require.NoError(t, AddInvestedCapital(ttm, icFields, TTM))

	ic, _ := ttm.Get(InvestedCapitalSeries)
	assert.InDelta(t, 1000.0, ic[0], 1e-9)
	assert.InDelta(t, 1000.0, ic[1], 1e-9)
}

func TestNOPAT(t *testing.T) {
	assert.Equal(t, 75.0, NOPAT(100, 80, 20))

	tbl := NewTable(PeriodKeyDate, []string{"2Q22"})
	require.NoError(t, tbl.Set("IncomeFromOperations", []float64{100}))
	require.NoError(t, tbl.Set("IncomeBeforeIncomeTaxes", []float64{80}))
	require.NoError(t, tbl.Set("ProvisionForIncomeTaxes", []float64{20}))
	out, err := NOPATTable(tbl, []string{"IncomeFromOperations", "IncomeBeforeIncomeTaxes", "ProvisionForIncomeTaxes"}, QoQ)
	require.NoError(t, err)
	assert.Equal(t, []string{NOPATSeries}, out.Names())

	_, err = NOPATTable(tbl, []string{"IncomeFromOperations"}, QoQ)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAddQuickRatio(t *testing.T) {
	tbl := NewTable(PeriodKeyDate, []string{"2Q22"})
	require.NoError(t, tbl.Set("TotalCurrentAssets", []float64{50}))
	require.NoError(t, tbl.Set("Inventory", []float64{10}))
	require.NoError(t, tbl.Set("TotalCurrentLiabilities", []float64{20}))
	require.NoError(t, AddQuickRatio(tbl, []string{"TotalCurrentAssets", "Inventory", "TotalCurrentLiabilities"}))
	q, _ := tbl.Get(QuickRatioSeries)
	assert.Equal(t, []float64{2}, q)
}

func TestAddSumNamesTTMOutput(t *testing.T) {
	tbl := NewTable(PeriodKeyDate, []string{"2Q22", "1Q22"})
	require.NoError(t, tbl.Set("NetCashOperatingActivities", []float64{80, 60}))
	require.NoError(t, tbl.Set("Capex", []float64{-30, -20}))

	name, err := AddSum(tbl.Clone(), FcFSeries, []string{"NetCashOperatingActivities", "Capex"}, QoQ)
	require.NoError(t, err)
	assert.Equal(t, "FcF", name)

	ttm, err := Reshape(tbl, TTM)
	require.NoError(t, err)
	name, err = AddSum(ttm, FcFSeries, []string{"NetCashOperatingActivities", "Capex"}, TTM)
	require.NoError(t, err)
	assert.Equal(t, "TTMFcF", name)
	v, _ := ttm.Get(name)
	assert.InDelta(t, (80.0+60-30-20)/4, v[0], 1e-9)
}

func TestInvestedCapitalWorkedExample(t *testing.T) {
	// 1000 - 100 - 50 - 200 - max(0, 300-400+200)
	assert.Equal(t, 550.0, InvestedCapital(1000, 100, 50, 200, 400, 300))
}
