package metrics

import (
	"fmt"

	"github.com/phuslu/log"
)

// RatioName returns the series name used for num/den.
func RatioName(num, den string) string {
	return "Ratio" + num + "/" + den
}

// Divide divides elementwise. Zero denominators follow IEEE rules (±Inf or NaN).
func Divide(num, den []float64) ([]float64, error) {
	if len(num) != len(den) {
		return nil, fmt.Errorf("ratio of %d and %d values: %w", len(num), len(den), ErrInvalidArgument)
	}
	out := make([]float64, len(num))
	for i := range num {
		out[i] = num[i] / den[i]
	}
	return out, nil
}

// AddRatio appends Ratio<num>/<den> to the table and returns its name.
func AddRatio(t *Table, num, den string) (string, error) {
	n, err := t.MustGet(num)
	if err != nil {
		return "", err
	}
	d, err := t.MustGet(den)
	if err != nil {
		return "", err
	}
	r, err := Divide(n, d)
	if err != nil {
		return "", err
	}
	name := RatioName(num, den)
	return name, t.Set(name, r)
}

// Scale multiplies a series in place by factor.
func Scale(t *Table, name string, factor float64) error {
	v, err := t.MustGet(name)
	if err != nil {
		return err
	}
	scaled := make([]float64, len(v))
	for i := range v {
		scaled[i] = v[i] * factor
	}
	return t.Set(name, scaled)
}

// Merge joins two tables on their period labels, keeping a's period order.
// Periods present in only one table are dropped and logged at debug level.
// Both tables must use the same period key and must not share a series name.
// When either table is empty the result is empty; two non-empty tables without
// a common period are an error.
func Merge(a, b *Table) (*Table, error) {
	if a.PeriodKey != b.PeriodKey {
		return nil, fmt.Errorf("merge %s table with %s table: %w", a.PeriodKey, b.PeriodKey, ErrInvalidArgument)
	}
	for _, n := range b.order {
		if a.Has(n) {
			return nil, fmt.Errorf("merge: series %q present on both sides: %w", n, ErrInvalidArgument)
		}
	}

	bIndex := make(map[string]int, len(b.Periods))
	for i, p := range b.Periods {
		if _, dup := bIndex[p]; !dup {
			bIndex[p] = i
		}
	}
	var rowsA, rowsB []int
	var periods []string
	for i, p := range a.Periods {
		if j, ok := bIndex[p]; ok {
			rowsA = append(rowsA, i)
			rowsB = append(rowsB, j)
			periods = append(periods, p)
		}
	}
	if len(periods) == 0 && a.Len() > 0 && b.Len() > 0 {
		return nil, fmt.Errorf("merge: no common periods: %w", ErrInvalidArgument)
	}
	if dropped := unmatched(a.Periods, b.Periods, periods); len(dropped) > 0 {
		log.Debug().Strs("dropped", dropped).Int("kept", len(periods)).Msg("merge dropped unaligned periods")
	}

	out := NewTable(a.PeriodKey, periods)
	pick := func(src []float64, rows []int) []float64 {
		v := make([]float64, len(rows))
		for i, r := range rows {
			v[i] = src[r]
		}
		return v
	}
	for _, n := range a.order {
		if err := out.Set(n, pick(a.series[n], rowsA)); err != nil {
			return nil, err
		}
	}
	for _, n := range b.order {
		if err := out.Set(n, pick(b.series[n], rowsB)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// unmatched lists labels of a and b that are not in kept, a's first.
func unmatched(a, b, kept []string) []string {
	in := make(map[string]bool, len(kept))
	for _, p := range kept {
		in[p] = true
	}
	var out []string
	for _, labels := range [][]string{a, b} {
		for _, p := range labels {
			if !in[p] {
				out = append(out, p)
				in[p] = true
			}
		}
	}
	return out
}
