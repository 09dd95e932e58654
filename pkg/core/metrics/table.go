package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Period keys used by the presentation layer.
const (
	PeriodKeyDate    = "date"
	PeriodKeyYear    = "Year"
	PeriodKeyQuarter = "Quarter"
)

// Table is a period-indexed set of named numeric series.
// Every series has exactly len(Periods) values.
type Table struct {
	PeriodKey string
	Periods   []string

	order  []string
	series map[string][]float64
	text   map[string][]string
}

// NewTable creates an empty table over the given period labels.
func NewTable(periodKey string, periods []string) *Table {
	p := make([]string, len(periods))
	copy(p, periods)
	return &Table{
		PeriodKey: periodKey,
		Periods:   p,
		series:    make(map[string][]float64),
		text:      make(map[string][]string),
	}
}

// Len returns the number of periods.
func (t *Table) Len() int { return len(t.Periods) }

// Names returns the numeric series names in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Has reports whether a numeric series exists.
func (t *Table) Has(name string) bool {
	_, ok := t.series[name]
	return ok
}

// Get returns a numeric series. The slice is shared with the table.
func (t *Table) Get(name string) ([]float64, bool) {
	v, ok := t.series[name]
	return v, ok
}

// MustGet returns a numeric series or an ErrInvalidArgument error naming it.
func (t *Table) MustGet(name string) ([]float64, error) {
	v, ok := t.series[name]
	if !ok {
		return nil, fmt.Errorf("series %q not present: %w", name, ErrInvalidArgument)
	}
	return v, nil
}

// Set adds or replaces a numeric series.
func (t *Table) Set(name string, values []float64) error {
	if len(values) != len(t.Periods) {
		return fmt.Errorf("series %q has %d values for %d periods: %w", name, len(values), len(t.Periods), ErrInvalidArgument)
	}
	if _, exists := t.series[name]; !exists {
		t.order = append(t.order, name)
	}
	t.series[name] = values
	return nil
}

// insertBefore adds a new series directly ahead of an existing one.
func (t *Table) insertBefore(anchor, name string, values []float64) error {
	if t.Has(name) || anchor == name {
		return t.Set(name, values)
	}
	if err := t.Set(name, values); err != nil {
		return err
	}
	// Set appended the name; move it in front of anchor.
	t.order = t.order[:len(t.order)-1]
	for i, n := range t.order {
		if n == anchor {
			t.order = append(t.order[:i], append([]string{name}, t.order[i:]...)...)
			return nil
		}
	}
	t.order = append(t.order, name)
	return nil
}

// SetText adds a non-numeric column. Text columns are carried through QoQ only.
func (t *Table) SetText(name string, values []string) error {
	if len(values) != len(t.Periods) {
		return fmt.Errorf("text column %q has %d values for %d periods: %w", name, len(values), len(t.Periods), ErrInvalidArgument)
	}
	t.text[name] = values
	return nil
}

// Text returns a non-numeric column.
func (t *Table) Text(name string) ([]string, bool) {
	v, ok := t.text[name]
	return v, ok
}

// TextNames returns the text column names.
func (t *Table) TextNames() []string {
	out := make([]string, 0, len(t.text))
	for n := range t.text {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Select returns a new table holding only the named series, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	out := NewTable(t.PeriodKey, t.Periods)
	for _, n := range names {
		v, err := t.MustGet(n)
		if err != nil {
			return nil, err
		}
		if err := out.Set(n, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := NewTable(t.PeriodKey, t.Periods)
	for _, n := range t.order {
		v := make([]float64, len(t.series[n]))
		copy(v, t.series[n])
		out.order = append(out.order, n)
		out.series[n] = v
	}
	for n, v := range t.text {
		c := make([]string, len(v))
		copy(c, v)
		out.text[n] = c
	}
	return out
}

// MarshalJSON encodes the table as {"<PeriodKey>": [...], "<series>": [...]} in series order.
// NaN and infinities are encoded as null.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	key, _ := json.Marshal(t.PeriodKey)
	buf.Write(key)
	buf.WriteByte(':')
	periods, err := json.Marshal(t.Periods)
	if err != nil {
		return nil, err
	}
	if t.Periods == nil {
		periods = []byte("[]")
	}
	buf.Write(periods)

	for _, name := range t.order {
		buf.WriteByte(',')
		k, _ := json.Marshal(name)
		buf.Write(k)
		buf.WriteString(":[")
		for i, v := range t.series[name] {
			if i > 0 {
				buf.WriteByte(',')
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				buf.WriteString("null")
				continue
			}
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SortNewestFirst reorders rows so quarter labels run newest first.
// Tables whose labels are not all quarters are left unchanged and false is returned.
func (t *Table) SortNewestFirst() bool {
	qs := make([]Quarter, len(t.Periods))
	for i, p := range t.Periods {
		q, err := ParseQuarter(p)
		if err != nil {
			return false
		}
		qs[i] = q
	}
	idx := make([]int, len(qs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return qs[idx[b]].Before(qs[idx[a]]) })

	periods := make([]string, len(idx))
	for i, r := range idx {
		periods[i] = t.Periods[r]
	}
	t.Periods = periods
	for n, v := range t.series {
		s := make([]float64, len(idx))
		for i, r := range idx {
			s[i] = v[r]
		}
		t.series[n] = s
	}
	for n, v := range t.text {
		s := make([]string, len(idx))
		for i, r := range idx {
			s[i] = v[r]
		}
		t.text[n] = s
	}
	return true
}
