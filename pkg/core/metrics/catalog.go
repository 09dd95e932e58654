package metrics

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"
)

// Kind selects the formula a catalog entry is computed with.
type Kind string

const (
	KindSeries          Kind = "series"
	KindSum             Kind = "sum"
	KindRatio           Kind = "ratio"
	KindQuickRatio      Kind = "quick_ratio"
	KindDebtRatio       Kind = "debt_ratio"
	KindGrowth          Kind = "growth"
	KindInvestedCapital Kind = "invested_capital"
	KindNOPAT           Kind = "nopat"
	KindROIC            Kind = "roic"
	KindWACC            Kind = "wacc"
	KindRate            Kind = "rate"
	KindProjection      Kind = "projection"
	KindUnimplemented   Kind = "unimplemented"
)

// kindShape is the source and input layout a kind needs.
type kindShape struct {
	// sourced kinds read at least one source.
	sourced bool
	// fields, when set, is the exact field count of the single source.
	fields int
	inputs int
}

var kindShapes = map[Kind]kindShape{
	KindSeries:          {sourced: true},
	KindSum:             {sourced: true},
	KindRatio:           {sourced: true},
	KindQuickRatio:      {sourced: true, fields: 3},
	KindDebtRatio:       {},
	KindGrowth:          {inputs: 1},
	KindInvestedCapital: {sourced: true, fields: 6},
	KindNOPAT:           {sourced: true, fields: 3},
	KindROIC:            {inputs: 2},
	KindWACC:            {},
	KindRate:            {inputs: 1},
	KindProjection:      {inputs: 2},
	KindUnimplemented:   {},
}

// Units reported with a metric.
const (
	UnitCurrency = "currency"
	UnitRatio    = "ratio"
	UnitPercent  = "percent"
	UnitShares   = "shares"
)

// Source is a set of fields read from one collection.
type Source struct {
	Collection string   `yaml:"collection" json:"collection"`
	Fields     []string `yaml:"fields" json:"fields"`
}

// MetricSpec declares one named derivation.
type MetricSpec struct {
	Name        string   `yaml:"name" json:"name"`
	Kind        Kind     `yaml:"kind" json:"kind"`
	Group       string   `yaml:"group,omitempty" json:"group,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Sources     []Source `yaml:"sources,omitempty" json:"sources,omitempty"`
	// Inputs names other catalog entries this one is derived from.
	Inputs           []string    `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Output           string      `yaml:"output,omitempty" json:"output,omitempty"`
	Timescales       []Timescale `yaml:"timescales" json:"timescales"`
	DefaultTimescale Timescale   `yaml:"default_timescale" json:"default_timescale"`
	Unit             string      `yaml:"unit,omitempty" json:"unit,omitempty"`
	// AverageStock divides balance-sheet stock fields by four under YoY.
	AverageStock bool `yaml:"average_stock,omitempty" json:"average_stock,omitempty"`
}

// Allows reports whether ts is permitted for this metric.
func (m MetricSpec) Allows(ts Timescale) bool {
	for _, t := range m.Timescales {
		if t == ts {
			return true
		}
	}
	return false
}

// Catalog is the fixed set of metrics for one company.
type Catalog struct {
	Company     string           `yaml:"company" json:"company"`
	PeriodField string           `yaml:"period_field" json:"period_field"`
	WACC        *WACCAssumptions `yaml:"wacc,omitempty" json:"wacc,omitempty"`
	Metrics     []MetricSpec     `yaml:"metrics" json:"metrics"`

	index map[string]int
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate normalizes timescales and checks names, kinds and input references.
func (c *Catalog) Validate() error {
	if c.PeriodField == "" {
		c.PeriodField = "date"
	}
	c.index = make(map[string]int, len(c.Metrics))
	for i := range c.Metrics {
		m := &c.Metrics[i]
		if m.Name == "" {
			return fmt.Errorf("catalog entry %d has no name: %w", i, ErrInvalidArgument)
		}
		if _, dup := c.index[m.Name]; dup {
			return fmt.Errorf("duplicate metric %q: %w", m.Name, ErrInvalidArgument)
		}
		if err := m.checkShape(); err != nil {
			return err
		}
		if len(m.Timescales) == 0 {
			m.Timescales = []Timescale{QoQ}
		}
		for j, ts := range m.Timescales {
			norm, err := ParseTimescale(string(ts))
			if err != nil {
				return fmt.Errorf("metric %q: %w", m.Name, err)
			}
			m.Timescales[j] = norm
		}
		if m.DefaultTimescale == "" {
			m.DefaultTimescale = m.Timescales[0]
		}
		norm, err := ParseTimescale(string(m.DefaultTimescale))
		if err != nil {
			return fmt.Errorf("metric %q: %w", m.Name, err)
		}
		m.DefaultTimescale = norm
		if !m.Allows(norm) {
			return fmt.Errorf("metric %q default timescale %s not allowed: %w", m.Name, norm, ErrInvalidArgument)
		}
		c.index[m.Name] = i
	}
	for _, m := range c.Metrics {
		for _, in := range m.Inputs {
			if _, ok := c.index[in]; !ok {
				return fmt.Errorf("metric %q references unknown input %q: %w", m.Name, in, ErrInvalidArgument)
			}
		}
	}
	return nil
}

// checkShape verifies the entry declares what its kind reads.
func (m MetricSpec) checkShape() error {
	shape, ok := kindShapes[m.Kind]
	if !ok {
		return fmt.Errorf("metric %q has unknown kind %q: %w", m.Name, m.Kind, ErrInvalidArgument)
	}
	for j, s := range m.Sources {
		if s.Collection == "" || len(s.Fields) == 0 {
			return fmt.Errorf("metric %q source %d needs a collection and fields: %w", m.Name, j, ErrInvalidArgument)
		}
	}
	if shape.sourced && len(m.Sources) == 0 {
		return fmt.Errorf("metric %q of kind %s declares no sources: %w", m.Name, m.Kind, ErrInvalidArgument)
	}
	if shape.fields > 0 && (len(m.Sources) != 1 || len(m.Sources[0].Fields) != shape.fields) {
		return fmt.Errorf("metric %q of kind %s needs one source with %d fields: %w", m.Name, m.Kind, shape.fields, ErrInvalidArgument)
	}
	if len(m.Inputs) < shape.inputs {
		return fmt.Errorf("metric %q of kind %s needs %d inputs: %w", m.Name, m.Kind, shape.inputs, ErrInvalidArgument)
	}
	return nil
}

// Lookup returns the entry for name. It never modifies the catalog, so a
// validated catalog can be shared between goroutines.
func (c *Catalog) Lookup(name string) (MetricSpec, error) {
	if c.index != nil {
		if i, ok := c.index[name]; ok {
			return c.Metrics[i], nil
		}
		return MetricSpec{}, fmt.Errorf("metric %q: %w", name, ErrUnknownMetric)
	}
	for _, m := range c.Metrics {
		if m.Name == name {
			return m, nil
		}
	}
	return MetricSpec{}, fmt.Errorf("metric %q: %w", name, ErrUnknownMetric)
}

// Names returns all metric names sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.Metrics))
	for _, m := range c.Metrics {
		out = append(out, m.Name)
	}
	sort.Strings(out)
	return out
}

// ====================================================================
// Built-in catalog
// ====================================================================

var (
	allScales  = []Timescale{QoQ, YoY, TTM}
	quarterly  = []Timescale{QoQ}
	rateScales = []Timescale{QoQ, TTM}
)

func src(collection string, fields ...string) Source {
	return Source{Collection: collection, Fields: fields}
}

func scales(ts []Timescale) []Timescale {
	out := make([]Timescale, len(ts))
	copy(out, ts)
	return out
}

// DefaultCatalog returns the built-in catalog for Tesla's quarterly filings.
// Debt lines and WACC assumptions are not declared, so debt ratios and WACC
// report ErrNotImplemented until a catalog file supplies them.
func DefaultCatalog() *Catalog {
	const (
		ops  = "statement_operations"
		gaap = "gaap_non_gaap"
		cf   = "cash_flow"
		bs   = "balance_sheet"
	)
	fundamental := func(name, collection, field string) MetricSpec {
		return MetricSpec{Name: name, Kind: KindSeries, Group: "fundamentals", Sources: []Source{src(collection, field)},
			Timescales: scales(allScales), DefaultTimescale: QoQ, Unit: UnitCurrency}
	}
	margin := func(name string, sources ...Source) MetricSpec {
		return MetricSpec{Name: name, Kind: KindRatio, Group: "margins", Sources: sources,
			Timescales: scales(allScales), DefaultTimescale: QoQ, Unit: UnitRatio}
	}
	growth := func(name, base string) MetricSpec {
		return MetricSpec{Name: name, Kind: KindGrowth, Group: "growth", Inputs: []string{base},
			Timescales: scales(allScales), DefaultTimescale: QoQ, Unit: UnitPercent}
	}
	liquidity := func(name string, kind Kind, sources ...Source) MetricSpec {
		return MetricSpec{Name: name, Kind: kind, Group: "liquidity", Sources: sources,
			Timescales: scales(quarterly), DefaultTimescale: QoQ, Unit: UnitRatio}
	}
	performance := func(m MetricSpec) MetricSpec {
		m.Group = "performance"
		m.Timescales = scales(allScales)
		m.DefaultTimescale = YoY
		return m
	}

	c := &Catalog{
		Company:     "Tesla",
		PeriodField: "date",
		Metrics: []MetricSpec{
			fundamental("revenue", ops, "TotalRevenues"),
			fundamental("gross_profit", ops, "GrossProfit"),
			fundamental("income_from_operations", ops, "IncomeFromOperations"),
			fundamental("net_income", ops, "NetIncome"),
			fundamental("adjusted_ebitda", gaap, "AdjustedEBITDA"),
			{Name: "fcf", Kind: KindSum, Group: "fundamentals", Output: FcFSeries,
				Sources:    []Source{src(cf, "NetCashOperatingActivities", "Capex")},
				Timescales: scales(allScales), DefaultTimescale: QoQ, Unit: UnitCurrency},

			margin("gross_profit_margin", src(ops, "GrossProfit", "TotalRevenues")),
			margin("income_from_operations_margin", src(ops, "IncomeFromOperations", "TotalRevenues")),
			margin("net_income_margin", src(ops, "NetIncome", "TotalRevenues")),
			margin("adjusted_ebitda_margin", src(gaap, "AdjustedEBITDA"), src(ops, "TotalRevenues")),

			liquidity("current_ratio", KindRatio, src(bs, "TotalCurrentAssets", "TotalCurrentLiabilities")),
			liquidity("quick_ratio", KindQuickRatio, src(bs, "TotalCurrentAssets", "Inventory", "TotalCurrentLiabilities")),
			liquidity("debt_to_equity", KindDebtRatio),
			liquidity("debt_to_assets", KindDebtRatio),
			liquidity("equity_ratio", KindRatio, src(bs, "TotalStockholdersEquity", "TotalAssets")),

			growth("revenue_growth", "revenue"),
			growth("gross_profit_growth", "gross_profit"),
			growth("income_from_operations_growth", "income_from_operations"),
			growth("net_income_growth", "net_income"),
			growth("adjusted_ebitda_growth", "adjusted_ebitda"),
			growth("fcf_growth", "fcf"),

			performance(MetricSpec{Name: "invested_capital", Kind: KindInvestedCapital, Unit: UnitCurrency,
				Sources: []Source{src(bs, "TotalAssets", "AccountsPayable", "AccruedLiabilitiesAndOther",
					"CashAndCashEquivalents", "TotalCurrentAssets", "TotalCurrentLiabilities")}}),
			performance(MetricSpec{Name: "total_assets", Kind: KindSeries, Unit: UnitCurrency, AverageStock: true,
				Sources: []Source{src(bs, "TotalAssets")}}),
			performance(MetricSpec{Name: "return_on_assets", Kind: KindRatio, Unit: UnitRatio, AverageStock: true,
				Sources: []Source{src(ops, "NetIncome"), src(bs, "TotalAssets")}}),
			performance(MetricSpec{Name: "return_on_equity", Kind: KindRatio, Unit: UnitRatio, AverageStock: true,
				Sources: []Source{src(ops, "NetIncome"), src(bs, "TotalStockholdersEquity")}}),
			performance(MetricSpec{Name: "nopat", Kind: KindNOPAT, Unit: UnitCurrency,
				Sources: []Source{src(ops, "IncomeFromOperations", "IncomeBeforeIncomeTaxes", "ProvisionForIncomeTaxes")}}),
			performance(MetricSpec{Name: "fcf_roic", Kind: KindROIC, Unit: UnitRatio, Inputs: []string{"fcf", "invested_capital"}}),
			performance(MetricSpec{Name: "nopat_roic", Kind: KindROIC, Unit: UnitRatio, Inputs: []string{"nopat", "invested_capital"}}),
			performance(MetricSpec{Name: "wacc", Kind: KindWACC, Unit: UnitRatio}),

			{Name: "outstanding_shares", Kind: KindSeries, Group: "equity",
				Sources:    []Source{src(ops, "WeightedAverageSharesDiluted", "WeightedAverageSharesBasic")},
				Timescales: scales(quarterly), DefaultTimescale: QoQ, Unit: UnitShares},
			{Name: "investor_table", Kind: KindUnimplemented, Group: "equity", Timescales: scales(quarterly), DefaultTimescale: QoQ},
			{Name: "investor_classification", Kind: KindUnimplemented, Group: "equity", Timescales: scales(quarterly), DefaultTimescale: QoQ},

			{Name: "rate_fcf_roic", Kind: KindRate, Group: "forecast", Inputs: []string{"fcf_roic"},
				Timescales: scales(rateScales), DefaultTimescale: QoQ, Unit: UnitPercent},
			{Name: "rate_invested_capital", Kind: KindRate, Group: "forecast", Inputs: []string{"invested_capital"},
				Timescales: scales(rateScales), DefaultTimescale: QoQ, Unit: UnitPercent},
			{Name: "projected_fcf", Kind: KindProjection, Group: "forecast", Inputs: []string{"rate_invested_capital", "rate_fcf_roic"},
				Timescales: scales(rateScales), DefaultTimescale: QoQ, Unit: UnitCurrency},
		},
	}
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
}
