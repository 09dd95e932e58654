package metrics

import (
	"math"
)

// Series names added by the growth and rate calculators.
const (
	GrowthSeries  = "GrowthRatio"
	RateSeries    = "Rate"
	RateTTMSeries = "RateTTM"
)

// Growth returns the period-over-period percent change against the absolute
// prior value. Series are newest first, so g[i] compares v[i] with v[i+1].
// The oldest element has no prior period and is NaN.
func Growth(values []float64) []float64 {
	return change(values, true)
}

// RateOfChange is Growth without the absolute value in the denominator.
func RateOfChange(values []float64) []float64 {
	return change(values, false)
}

func change(values []float64, absolute bool) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i+1 >= len(values) {
			out[i] = math.NaN()
			continue
		}
		prev := values[i+1]
		if absolute {
			prev = math.Abs(prev)
		}
		out[i] = (values[i] - values[i+1]) / prev * 100
	}
	return out
}

// AddGrowth appends GrowthRatio computed from the named series.
func AddGrowth(t *Table, name string) error {
	v, err := t.MustGet(name)
	if err != nil {
		return err
	}
	return t.Set(GrowthSeries, Growth(v))
}

// AddRate appends Rate and a trailing-window RateTTM for the named series.
// RateTTM is placed first, matching how rate tables are read by the projector.
func AddRate(t *Table, name string) error {
	v, err := t.MustGet(name)
	if err != nil {
		return err
	}
	rate := RateOfChange(v)
	if err := t.Set(RateSeries, rate); err != nil {
		return err
	}
	first := t.order[0]
	return t.insertBefore(first, RateTTMSeries, Rolling(rate, TTMWindow))
}

// Mean averages the first n values, or all of them when fewer exist.
func Mean(values []float64, n int) float64 {
	if n > len(values) {
		n = len(values)
	}
	if n <= 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values[:n] {
		sum += v
	}
	return sum / float64(n)
}
