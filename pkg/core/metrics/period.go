package metrics

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Quarter is a fiscal quarter such as 3Q22.
type Quarter struct {
	Year int
	Q    int
}

var (
	shortLabel   = regexp.MustCompile(`^([1-4])Q(\d{2}|\d{4})$`)
	prefixLabel  = regexp.MustCompile(`^Q([1-4])[\s\-_/]*(\d{2}|\d{4})$`)
	yearFirst    = regexp.MustCompile(`^(\d{4})[\s\-_/]*Q([1-4])$`)
	yoyYearLabel = regexp.MustCompile(`^[1-4]Q\d{2}$`)
)

// ParseQuarter reads 3Q22, 3Q2022, Q3 2022, Q3-22, 2022Q3 and 2022-Q3.
func ParseQuarter(label string) (Quarter, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	var q, y string
	switch {
	case shortLabel.MatchString(s):
		m := shortLabel.FindStringSubmatch(s)
		q, y = m[1], m[2]
	case prefixLabel.MatchString(s):
		m := prefixLabel.FindStringSubmatch(s)
		q, y = m[1], m[2]
	case yearFirst.MatchString(s):
		m := yearFirst.FindStringSubmatch(s)
		y, q = m[1], m[2]
	default:
		return Quarter{}, fmt.Errorf("period label %q: %w", label, ErrParse)
	}
	qi, _ := strconv.Atoi(q)
	yi, _ := strconv.Atoi(y)
	if len(y) == 2 {
		yi += 2000
	}
	return Quarter{Year: yi, Q: qi}, nil
}

// String renders the short form, e.g. 3Q22.
func (q Quarter) String() string {
	return fmt.Sprintf("%dQ%02d", q.Q, q.Year%100)
}

// Next returns the following quarter.
func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Year: q.Year + 1, Q: 1}
	}
	return Quarter{Year: q.Year, Q: q.Q + 1}
}

// Before reports whether q is chronologically earlier than o.
func (q Quarter) Before(o Quarter) bool {
	if q.Year != o.Year {
		return q.Year < o.Year
	}
	return q.Q < o.Q
}

// QuarterSequence returns n consecutive quarters starting at anchor.
func QuarterSequence(anchor Quarter, n int) []Quarter {
	if n <= 0 {
		return nil
	}
	out := make([]Quarter, n)
	cur := anchor
	for i := range out {
		out[i] = cur
		cur = cur.Next()
	}
	return out
}

// LatestQuarter returns the chronologically latest parseable label.
func LatestQuarter(labels []string) (Quarter, error) {
	var latest Quarter
	found := false
	for _, l := range labels {
		q, err := ParseQuarter(l)
		if err != nil {
			continue
		}
		if !found || latest.Before(q) {
			latest = q
			found = true
		}
	}
	if !found {
		return Quarter{}, fmt.Errorf("no quarter label among %d periods: %w", len(labels), ErrInvalidArgument)
	}
	return latest, nil
}

// SortQuartersDesc sorts quarters newest first.
func SortQuartersDesc(qs []Quarter) {
	sort.Slice(qs, func(i, j int) bool { return qs[j].Before(qs[i]) })
}

// YearOf extracts the calendar year used for YoY grouping.
// Only the NQYY form is accepted; the century is assumed to be 2000.
func YearOf(label string) (int, error) {
	if !yoyYearLabel.MatchString(label) {
		return 0, fmt.Errorf("cannot extract year from %q: %w", label, ErrParse)
	}
	y, _ := strconv.Atoi("20" + label[2:])
	return y, nil
}
