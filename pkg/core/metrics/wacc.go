package metrics

import "fmt"

// WACC series names.
const (
	WACCSeries         = "WACC"
	CostOfEquitySeries = "CostOfEquity"
	CostOfDebtSeries   = "CostOfDebt"
	LeveredBetaSeries  = "LeveredBeta"
)

// WACCAssumptions are the market inputs a catalog must declare before WACC can be computed.
type WACCAssumptions struct {
	UnleveredBeta     float64 `yaml:"unlevered_beta" json:"unlevered_beta"`
	RiskFreeRate      float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
	MarketRiskPremium float64 `yaml:"market_risk_premium" json:"market_risk_premium"`
	PreTaxCostOfDebt  float64 `yaml:"pre_tax_cost_of_debt" json:"pre_tax_cost_of_debt"`
	// TargetDebtToEquity is used for periods whose book equity is not positive.
	TargetDebtToEquity float64 `yaml:"target_debt_to_equity" json:"target_debt_to_equity"`
}

// WACCInput parameters for one period.
type WACCInput struct {
	UnleveredBeta     float64
	RiskFreeRate      float64
	MarketRiskPremium float64
	PreTaxCostOfDebt  float64
	TaxRate           float64
	DebtToEquityRatio float64
}

// WACCResult holds the calculated rates
type WACCResult struct {
	LeveredBeta  float64
	CostOfEquity float64
	CostOfDebt   float64 // After-tax
	WACC         float64
	WeightDebt   float64
	WeightEquity float64
}

// CalculateWACC computes the Weighted Average Cost of Capital using CAPM and the Hamada equation.
func CalculateWACC(input WACCInput) WACCResult {
	// BetaL = BetaU * (1 + (1-t)*(D/E))
	leveredBeta := input.UnleveredBeta * (1 + (1-input.TaxRate)*input.DebtToEquityRatio)

	// Ke = Rf + BetaL * ERP
	ke := input.RiskFreeRate + leveredBeta*input.MarketRiskPremium

	// Kd = PreTaxKd * (1 - t)
	kd := input.PreTaxCostOfDebt * (1 - input.TaxRate)

	// D = xE, V = E(1+x)
	wd := input.DebtToEquityRatio / (1 + input.DebtToEquityRatio)
	we := 1.0 / (1 + input.DebtToEquityRatio)

	return WACCResult{
		LeveredBeta:  leveredBeta,
		CostOfEquity: ke,
		CostOfDebt:   kd,
		WACC:         ke*we + kd*wd,
		WeightDebt:   wd,
		WeightEquity: we,
	}
}

// WACCTable computes WACC for every period from book debt, book equity and the
// effective tax rate. debt holds one or more debt lines; taxes holds pre-tax income
// and the provision for income taxes.
func WACCTable(t *Table, a WACCAssumptions, debtFields []string, equityField string, taxFields []string, ts Timescale) (*Table, error) {
	if len(taxFields) != 2 {
		return nil, fmt.Errorf("WACC needs pre-tax income and tax provision fields: %w", ErrInvalidArgument)
	}
	debtCols, err := inputs(t, debtFields, ts)
	if err != nil {
		return nil, err
	}
	eqCols, err := inputs(t, []string{equityField}, ts)
	if err != nil {
		return nil, err
	}
	taxCols, err := inputs(t, taxFields, ts)
	if err != nil {
		return nil, err
	}

	n := t.Len()
	wacc := make([]float64, n)
	ke := make([]float64, n)
	kd := make([]float64, n)
	beta := make([]float64, n)
	for i := 0; i < n; i++ {
		debt := 0.0
		for _, c := range debtCols {
			debt += c[i]
		}
		de := a.TargetDebtToEquity
		if equity := eqCols[0][i]; equity > 0 {
			de = debt / equity
		}
		res := CalculateWACC(WACCInput{
			UnleveredBeta:     a.UnleveredBeta,
			RiskFreeRate:      a.RiskFreeRate,
			MarketRiskPremium: a.MarketRiskPremium,
			PreTaxCostOfDebt:  a.PreTaxCostOfDebt,
			TaxRate:           taxCols[1][i] / taxCols[0][i],
			DebtToEquityRatio: de,
		})
		wacc[i], ke[i], kd[i], beta[i] = res.WACC, res.CostOfEquity, res.CostOfDebt, res.LeveredBeta
	}

	out := NewTable(t.PeriodKey, t.Periods)
	for _, s := range []struct {
		name string
		v    []float64
	}{{WACCSeries, wacc}, {CostOfEquitySeries, ke}, {CostOfDebtSeries, kd}, {LeveredBetaSeries, beta}} {
		if err := out.Set(s.name, s.v); err != nil {
			return nil, err
		}
	}
	return out, nil
}
