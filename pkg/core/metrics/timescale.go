package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Timescale selects how quarterly series are aggregated.
type Timescale string

const (
	QoQ Timescale = "QoQ"
	YoY Timescale = "YoY"
	TTM Timescale = "TTM"
)

// TTMWindow is the number of quarters in a trailing-twelve-month window.
const TTMWindow = 4

// TTMPrefix is prepended to the name of every rolled series.
const TTMPrefix = "TTM"

// AllTimescales lists the supported timescales.
var AllTimescales = []Timescale{QoQ, YoY, TTM}

// ParseTimescale accepts qoq, yoy and ttm in any case.
func ParseTimescale(s string) (Timescale, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "QOQ":
		return QoQ, nil
	case "YOY":
		return YoY, nil
	case "TTM":
		return TTM, nil
	}
	return "", fmt.Errorf("unsupported timescale %q: %w", s, ErrInvalidArgument)
}

// Record is one document of a statement collection.
type Record map[string]any

// TableFromRecords unpacks records into one column per field.
// periodField supplies the period labels; every record must carry every field.
func TableFromRecords(records []Record, periodField string, fields []string) (*Table, error) {
	labels := make([]string, len(records))
	for i, r := range records {
		v, ok := r[periodField]
		if !ok {
			return nil, fmt.Errorf("record %d missing period field %q: %w", i, periodField, ErrInvalidArgument)
		}
		labels[i] = fmt.Sprint(v)
	}

	t := NewTable(PeriodKeyDate, labels)
	for _, f := range fields {
		if f == periodField {
			continue
		}
		raw := make([]any, len(records))
		for i, r := range records {
			v, ok := r[f]
			if !ok {
				return nil, fmt.Errorf("record %d (%s) missing field %q: %w", i, labels[i], f, ErrInvalidArgument)
			}
			raw[i] = v
		}
		if nums, ok := numericColumn(raw); ok {
			if err := t.Set(f, nums); err != nil {
				return nil, err
			}
			continue
		}
		text := make([]string, len(raw))
		for i, v := range raw {
			text[i] = fmt.Sprint(v)
		}
		if err := t.SetText(f, text); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func numericColumn(raw []any) ([]float64, bool) {
	out := make([]float64, len(raw))
	for i, v := range raw {
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return math.NaN(), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Reshape aggregates a quarterly table to the requested timescale.
func Reshape(t *Table, ts Timescale) (*Table, error) {
	switch ts {
	case QoQ:
		return t.Clone(), nil
	case YoY:
		return yearly(t)
	case TTM:
		return trailing(t)
	}
	return nil, fmt.Errorf("unsupported timescale %q: %w", ts, ErrInvalidArgument)
}

// yearly sums every numeric series per calendar year, newest year first.
// Text columns have no meaningful sum and are dropped.
func yearly(t *Table) (*Table, error) {
	index := make(map[int][]int)
	var years []int
	for i, label := range t.Periods {
		y, err := YearOf(label)
		if err != nil {
			return nil, err
		}
		if _, seen := index[y]; !seen {
			years = append(years, y)
		}
		index[y] = append(index[y], i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	labels := make([]string, len(years))
	for i, y := range years {
		labels[i] = strconv.Itoa(y)
	}
	out := NewTable(PeriodKeyYear, labels)
	for _, name := range t.order {
		src := t.series[name]
		sums := make([]float64, len(years))
		for i, y := range years {
			for _, row := range index[y] {
				if !math.IsNaN(src[row]) {
					sums[i] += src[row]
				}
			}
		}
		if err := out.Set(name, sums); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// trailing adds a TTM-prefixed rolling series ahead of each numeric series.
func trailing(t *Table) (*Table, error) {
	out := t.Clone()
	for _, name := range t.order {
		if err := out.insertBefore(name, TTMPrefix+name, Rolling(t.series[name], TTMWindow)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Rolling returns out[i] = sum(values[i:i+n]) / n.
// Series are newest first, so window i covers period i and the n-1 periods before it.
// Windows that run past the oldest period are truncated but still divided by n.
func Rolling(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	if n <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for i := range values {
		end := i + n
		if end > len(values) {
			end = len(values)
		}
		var sum float64
		for _, v := range values[i:end] {
			sum += v
		}
		out[i] = sum / float64(n)
	}
	return out
}
