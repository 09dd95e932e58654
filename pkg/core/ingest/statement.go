// Package ingest imports quarterly statement tables from HTML into statement records.
package ingest

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"tmts_oracle/pkg/core/metrics"
)

// =============================================================================
// STATEMENT TABLE IMPORT - HTML quarterly tables to records
// =============================================================================

// DefaultAliases maps common line-item captions to catalog field names.
// Captions are matched after normalization (lower case, punctuation removed).
var DefaultAliases = map[string]string{
	"total revenues":         "TotalRevenues",
	"total gross profit":     "GrossProfit",
	"gross profit":           "GrossProfit",
	"income from operations": "IncomeFromOperations",
	"net income attributable to common stockholders": "NetIncome",
	"net income":      "NetIncome",
	"adjusted ebitda": "AdjustedEBITDA",
	"net cash provided by operating activities":                                 "NetCashOperatingActivities",
	"capital expenditures":                                                      "Capex",
	"purchases of property and equipment excluding finance leases net of sales": "Capex",
	"total current assets":                                                      "TotalCurrentAssets",
	"inventory":                                                                 "Inventory",
	"total current liabilities":                                                 "TotalCurrentLiabilities",
	"total stockholders equity":                                                 "TotalStockholdersEquity",
	"total assets":                                                              "TotalAssets",
	"accounts payable":                                                          "AccountsPayable",
	"accrued liabilities and other":                                             "AccruedLiabilitiesAndOther",
	"cash and cash equivalents":                                                 "CashAndCashEquivalents",
	"income before income taxes":                                                "IncomeBeforeIncomeTaxes",
	"provision for income taxes":                                                "ProvisionForIncomeTaxes",
	"weighted average shares diluted":                                           "WeightedAverageSharesDiluted",
	"weighted average shares basic":                                             "WeightedAverageSharesBasic",
}

// Options controls how rows are named and which table is read.
type Options struct {
	// Aliases overrides DefaultAliases for matching captions.
	Aliases map[string]string
	// TableIndex selects among tables with a quarter header row; 0 is the first.
	TableIndex int
	// Scale multiplies every value, e.g. 1000 for tables in thousands.
	Scale float64
	// PeriodField is the record key for the quarter label; empty means "date".
	PeriodField string
}

// Result is one imported table.
type Result struct {
	BatchID string
	Periods []string
	Fields  []string
	Records []metrics.Record
}

var nonWord = regexp.MustCompile(`[^a-z0-9 ]+`)

func normalizeCaption(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// FieldName resolves a caption to a field name through aliases, falling back
// to CamelCase of its words.
func FieldName(caption string, aliases map[string]string) string {
	key := normalizeCaption(caption)
	if f, ok := aliases[key]; ok {
		return f
	}
	if f, ok := DefaultAliases[key]; ok {
		return f
	}
	var b strings.Builder
	for _, w := range strings.Fields(key) {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// ParseAmount reads statement numbers: "21,454", "(1,803)", "$ 3.2", "—".
// Dashes and blanks are reported as missing (ok=false).
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", ",", "", " ", "", " ", "", "%", "").Replace(s)
	if s == "" || s == "-" || s == "—" || s == "–" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

func cells(row *goquery.Selection) []string {
	var out []string
	row.Find("td, th").Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}

// headerColumns returns column index -> quarter for a row of period labels.
func headerColumns(row []string) map[int]metrics.Quarter {
	cols := make(map[int]metrics.Quarter)
	for i, c := range row {
		if q, err := metrics.ParseQuarter(c); err == nil {
			cols[i] = q
		}
	}
	return cols
}

// ParseStatement reads the selected quarterly table from an HTML document and
// returns one record per quarter, newest first. Cells without a number are
// stored as null.
func ParseStatement(r io.Reader, opts Options) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	if opts.Scale == 0 {
		opts.Scale = 1
	}

	var (
		result  *Result
		matched int
	)
	doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
		var header map[int]metrics.Quarter
		var rows [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			row := cells(tr)
			if header == nil {
				if h := headerColumns(row); len(h) > 0 {
					header = h
				}
				return
			}
			rows = append(rows, row)
		})
		if header == nil {
			return true
		}
		if matched != opts.TableIndex {
			matched++
			return true
		}
		result = buildResult(header, rows, opts)
		log.Info().Int("table", i).Int("periods", len(result.Periods)).Int("fields", len(result.Fields)).
			Str("batch", result.BatchID).Msg("statement table parsed")
		return false
	})
	if result == nil {
		return nil, fmt.Errorf("no quarterly table at index %d: %w", opts.TableIndex, metrics.ErrInvalidArgument)
	}
	return result, nil
}

func buildResult(header map[int]metrics.Quarter, rows [][]string, opts Options) *Result {
	// Quarters in the column order they appear in.
	cols := make([]int, 0, len(header))
	for c := range header {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	quarters := make([]metrics.Quarter, len(cols))
	for i, c := range cols {
		quarters[i] = header[c]
	}

	// Records are emitted newest first whatever the column order.
	order := make([]int, len(quarters))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return quarters[order[b]].Before(quarters[order[a]]) })

	periodField := opts.PeriodField
	if periodField == "" {
		periodField = metrics.PeriodKeyDate
	}
	res := &Result{BatchID: uuid.NewString()}
	records := make([]metrics.Record, len(order))
	for i, k := range order {
		label := quarters[k].String()
		res.Periods = append(res.Periods, label)
		records[i] = metrics.Record{periodField: label}
	}

	seen := make(map[string]bool)
	for _, row := range rows {
		if len(row) < 2 || row[0] == "" {
			continue
		}
		values, ok := valueCells(row[1:])
		if !ok {
			continue
		}
		field := FieldName(row[0], opts.Aliases)
		if seen[field] {
			continue
		}
		seen[field] = true
		res.Fields = append(res.Fields, field)
		for i, k := range order {
			if k >= len(values) {
				records[i][field] = nil
				continue
			}
			v, ok := ParseAmount(values[k])
			if !ok {
				records[i][field] = nil
				continue
			}
			records[i][field] = v * opts.Scale
		}
	}
	res.Records = records
	return res
}

// valueCells drops layout cells (blank, lone currency or percent signs) and
// reports whether any remaining cell holds a number.
func valueCells(row []string) ([]string, bool) {
	var out []string
	numeric := false
	for _, c := range row {
		switch strings.TrimSpace(c) {
		case "", "$", "%", ")":
			continue
		}
		if _, ok := ParseAmount(c); ok {
			numeric = true
		}
		out = append(out, c)
	}
	return out, numeric
}
