package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateWACC(t *testing.T) {
	res := CalculateWACC(WACCInput{
		UnleveredBeta:     1.0,
		RiskFreeRate:      0.04,
		MarketRiskPremium: 0.05,
		PreTaxCostOfDebt:  0.06,
		TaxRate:           0.2,
		DebtToEquityRatio: 0.5,
	})

	if math.Abs(res.LeveredBeta-1.4) > 0.0001 {
		t.Errorf("Expected levered beta 1.4, got %f", res.LeveredBeta)
	}
	if math.Abs(res.CostOfEquity-0.11) > 0.0001 {
		t.Errorf("Expected cost of equity 0.11, got %f", res.CostOfEquity)
	}
	if math.Abs(res.CostOfDebt-0.048) > 0.0001 {
		t.Errorf("Expected after-tax cost of debt 0.048, got %f", res.CostOfDebt)
	}
	if math.Abs(res.WACC-0.089333) > 0.0001 {
		t.Errorf("Expected WACC 0.0893, got %f", res.WACC)
	}
}

func TestWACCTableFallsBackToTargetLeverage(t *testing.T) {
	tbl := NewTable(PeriodKeyDate, []string{"2Q22", "1Q22"})
	require.NoError(t, tbl.Set("LongTermDebt", []float64{50, 50}))
	require.NoError(t, tbl.Set("TotalStockholdersEquity", []float64{100, -10}))
	require.NoError(t, tbl.Set("IncomeBeforeIncomeTaxes", []float64{100, 100}))
	require.NoError(t, tbl.Set("ProvisionForIncomeTaxes", []float64{20, 20}))

	a := WACCAssumptions{UnleveredBeta: 1, RiskFreeRate: 0.04, MarketRiskPremium: 0.05, PreTaxCostOfDebt: 0.06}
	out, err := WACCTable(tbl, a, []string{"LongTermDebt"}, "TotalStockholdersEquity",
		[]string{"IncomeBeforeIncomeTaxes", "ProvisionForIncomeTaxes"}, QoQ)
	require.NoError(t, err)

	wacc, _ := out.Get(WACCSeries)
	if math.Abs(wacc[0]-0.089333) > 0.0001 {
		t.Errorf("Expected WACC 0.0893, got %f", wacc[0])
	}
	// Negative equity: zero target leverage leaves the unlevered cost of equity.
	if math.Abs(wacc[1]-0.09) > 0.0001 {
		t.Errorf("Expected WACC 0.09, got %f", wacc[1])
	}
}
