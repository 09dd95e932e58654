package metrics

import (
	"fmt"
	"math"
)

// Projection defaults.
const (
	DefaultHorizon    = 40
	DefaultROICCap    = 0.40
	DefaultSeedWindow = 4
)

// Projected series names.
const (
	FcFProjectedSeries             = "FcFProjected"
	InvestedCapitalProjectedSeries = "InvestedCapitalProjected"
	ROICProjectedSeries            = "FcFROICProjected"
)

// Seed is the starting level and quarterly growth rate (percent) of a projected quantity.
type Seed struct {
	Start float64
	Rate  float64
}

// SeedFromRate reads a rate table: Rate is the newest RateTTM and Start is the
// mean of the newest window values of the base series.
func SeedFromRate(t *Table, base string, window int) (Seed, error) {
	if t.Len() == 0 {
		return Seed{}, fmt.Errorf("seed %s from empty series: %w", base, ErrInvalidArgument)
	}
	rate, err := t.MustGet(RateTTMSeries)
	if err != nil {
		return Seed{}, err
	}
	values, err := t.MustGet(base)
	if err != nil {
		return Seed{}, err
	}
	return Seed{Start: Mean(values, window), Rate: rate[0]}, nil
}

// Compound returns start * (1 + rate/100)^i.
func (s Seed) Compound(i int) float64 {
	return s.Start * math.Pow(1+s.Rate/100, float64(i))
}

// ProjectFcF compounds invested capital and ROIC for every label and multiplies
// them into projected free cash flow. ROIC is capped at roicCap.
func ProjectFcF(investedCapital, roic Seed, labels []Quarter, roicCap float64) (*Table, error) {
	periods := make([]string, len(labels))
	for i, q := range labels {
		periods[i] = q.String()
	}
	fcf := make([]float64, len(labels))
	ic := make([]float64, len(labels))
	r := make([]float64, len(labels))
	for i := range labels {
		ic[i] = investedCapital.Compound(i)
		r[i] = math.Min(roic.Compound(i), roicCap)
		fcf[i] = ic[i] * r[i]
	}

	out := NewTable(PeriodKeyQuarter, periods)
	if err := out.Set(FcFProjectedSeries, fcf); err != nil {
		return nil, err
	}
	if err := out.Set(InvestedCapitalProjectedSeries, ic); err != nil {
		return nil, err
	}
	if err := out.Set(ROICProjectedSeries, r); err != nil {
		return nil, err
	}
	return out, nil
}
