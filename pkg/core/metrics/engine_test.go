package metrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySource serves fixed records per collection.
type memorySource struct {
	collections map[string][]Record
	calls       int
	sawDeadline bool
}

func (m *memorySource) Fetch(ctx context.Context, collection string, fields []string) ([]Record, error) {
	m.calls++
	if _, ok := ctx.Deadline(); ok {
		m.sawDeadline = true
	}
	records, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collection)
	}
	out := make([]Record, len(records))
	for i, r := range records {
		sub := Record{}
		for _, f := range fields {
			if v, ok := r[f]; ok {
				sub[f] = v
			}
		}
		out[i] = sub
	}
	return out, nil
}

var fixtureQuarters = []string{"3Q22", "2Q22", "1Q22", "4Q21", "3Q21", "2Q21"}

func fixtureSource() *memorySource {
	ops := make([]Record, len(fixtureQuarters))
	bs := make([]Record, len(fixtureQuarters))
	cf := make([]Record, len(fixtureQuarters))
	gaap := make([]Record, len(fixtureQuarters))
	for i, q := range fixtureQuarters {
		ops[i] = Record{
			"date": q, "TotalRevenues": 200.0, "GrossProfit": 50.0, "IncomeFromOperations": 100.0,
			"NetIncome": 10.0, "IncomeBeforeIncomeTaxes": 80.0, "ProvisionForIncomeTaxes": 20.0,
			"WeightedAverageSharesDiluted": 3500.0, "WeightedAverageSharesBasic": 3100.0,
		}
		bs[i] = Record{
			"date": q, "TotalAssets": 1500.0, "AccountsPayable": 200.0, "AccruedLiabilitiesAndOther": 100.0,
			"CashAndCashEquivalents": 200.0, "TotalCurrentAssets": 600.0, "TotalCurrentLiabilities": 300.0,
			"Inventory": 100.0, "TotalStockholdersEquity": 100.0,
		}
		cf[i] = Record{"date": q, "NetCashOperatingActivities": 80.0, "Capex": -30.0}
		gaap[i] = Record{"date": q, "AdjustedEBITDA": 40.0}
	}
	return &memorySource{collections: map[string][]Record{
		"statement_operations": ops,
		"balance_sheet":        bs,
		"cash_flow":            cf,
		"gaap_non_gaap":        gaap,
	}}
}

func newEngine(t *testing.T, src DataSource, cat *Catalog, cfg EngineConfig) *Engine {
	t.Helper()
	e, err := NewEngine(src, cat, cfg)
	require.NoError(t, err)
	return e
}

func newFixtureEngine(t *testing.T, src DataSource) *Engine {
	return newEngine(t, src, DefaultCatalog(), EngineConfig{})
}

func TestEngineComputeFundamental(t *testing.T) {
	src := fixtureSource()
	e := newFixtureEngine(t, src)

	tbl, err := e.Compute(context.Background(), "revenue", "")
	require.NoError(t, err)
	assert.Equal(t, fixtureQuarters, tbl.Periods)
	rev, _ := tbl.Get("TotalRevenues")
	assert.Equal(t, 200.0, rev[0])
	assert.True(t, src.sawDeadline, "fetch should run under a deadline")
}

func TestEngineMarginUnderTTM(t *testing.T) {
	e := newFixtureEngine(t, fixtureSource())
	tbl, err := e.Compute(context.Background(), "gross_profit_margin", TTM)
	require.NoError(t, err)
	r, ok := tbl.Get("RatioTTMGrossProfit/TTMTotalRevenues")
	require.True(t, ok)
	assert.InDelta(t, 0.25, r[0], 1e-9)
}

func TestEngineAdjustedEBITDAMarginJoinsCollections(t *testing.T) {
	e := newFixtureEngine(t, fixtureSource())
	tbl, err := e.Compute(context.Background(), "adjusted_ebitda_margin", QoQ)
	require.NoError(t, err)
	r, ok := tbl.Get("RatioAdjustedEBITDA/TotalRevenues")
	require.True(t, ok)
	assert.InDelta(t, 0.2, r[0], 1e-9)
}

func TestEngineReturnOnEquityYoYAveragesEquity(t *testing.T) {
	e := newFixtureEngine(t, fixtureSource())

	tbl, err := e.Compute(context.Background(), "return_on_equity", YoY)
	require.NoError(t, err)
	assert.Equal(t, []string{"2022", "2021"}, tbl.Periods)
	roe, _ := tbl.Get("RatioNetIncome/TotalStockholdersEquity")
	// 3 quarters of net income 10 over (3 * 100) / 4 of equity.
	assert.InDelta(t, 30.0/75.0, roe[0], 1e-9)

	q, err := e.Compute(context.Background(), "return_on_equity", QoQ)
	require.NoError(t, err)
	roe, _ = q.Get("RatioNetIncome/TotalStockholdersEquity")
	assert.InDelta(t, 0.1, roe[0], 1e-9)
}

func TestEngineROIC(t *testing.T) {
	e := newFixtureEngine(t, fixtureSource())

	fcf, err := e.Compute(context.Background(), "fcf_roic", QoQ)
	require.NoError(t, err)
	r, ok := fcf.Get("RatioFcF/InvestedCapital")
	require.True(t, ok)
	assert.InDelta(t, 0.05, r[0], 1e-9)

	nopat, err := e.Compute(context.Background(), "nopat_roic", QoQ)
	require.NoError(t, err)
	r, ok = nopat.Get("RatioNOPAT/InvestedCapital")
	require.True(t, ok)
	assert.InDelta(t, 0.075, r[0], 1e-9)

	ttm, err := e.Compute(context.Background(), "fcf_roic", TTM)
	require.NoError(t, err)
	r, ok = ttm.Get("RatioTTMFcF/InvestedCapital")
	require.True(t, ok)
	assert.InDelta(t, 0.05, r[0], 1e-9)
}

func TestEngineGrowth(t *testing.T) {
	e := newFixtureEngine(t, fixtureSource())
	tbl, err := e.Compute(context.Background(), "fcf_growth", QoQ)
	require.NoError(t, err)
	g, _ := tbl.Get(GrowthSeries)
	assert.Equal(t, 0.0, g[0])
	assert.True(t, math.IsNaN(g[len(g)-1]))
}

func TestEngineQuickRatio(t *testing.T) {
	e := newFixtureEngine(t, fixtureSource())
	tbl, err := e.Compute(context.Background(), "quick_ratio", "")
	require.NoError(t, err)
	q, _ := tbl.Get(QuickRatioSeries)
	assert.InDelta(t, 500.0/300.0, q[0], 1e-9)

	_, err = e.Compute(context.Background(), "current_ratio", YoY)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEngineProjection(t *testing.T) {
	e := newFixtureEngine(t, fixtureSource())
	tbl, err := e.Project(context.Background(), QoQ)
	require.NoError(t, err)

	require.Equal(t, DefaultHorizon, tbl.Len())
	assert.Equal(t, PeriodKeyQuarter, tbl.PeriodKey)
	assert.Equal(t, "4Q22", tbl.Periods[0])
	assert.Equal(t, "3Q32", tbl.Periods[DefaultHorizon-1])
	fcf, _ := tbl.Get(FcFProjectedSeries)
	for i, v := range fcf {
		assert.InDelta(t, 50.0, v, 1e-9, "quarter %d", i)
	}
}

func TestEngineProjectionAnchor(t *testing.T) {
	e := newEngine(t, fixtureSource(), nil, EngineConfig{Projection: ProjectionConfig{Anchor: "1Q24", Horizon: 4}})
	tbl, err := e.Compute(context.Background(), "projected_fcf", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1Q24", "2Q24", "3Q24", "4Q24"}, tbl.Periods)
}

func TestEngineProjectionEmptySource(t *testing.T) {
	src := &memorySource{collections: map[string][]Record{
		"statement_operations": {}, "balance_sheet": {}, "cash_flow": {}, "gaap_non_gaap": {},
	}}
	_, err := newFixtureEngine(t, src).Project(context.Background(), QoQ)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEngineErrors(t *testing.T) {
	e := newFixtureEngine(t, fixtureSource())
	ctx := context.Background()

	_, err := e.Compute(ctx, "price_to_book", QoQ)
	assert.ErrorIs(t, err, ErrUnknownMetric)

	for _, name := range []string{"debt_to_equity", "debt_to_assets", "wacc", "investor_table", "investor_classification"} {
		_, err := e.Compute(ctx, name, "")
		assert.ErrorIs(t, err, ErrNotImplemented, name)
	}

	broken := fixtureSource()
	broken.collections["cash_flow"] = []Record{{"date": "3Q22", "Capex": -1.0}}
	_, err = newFixtureEngine(t, broken).Compute(ctx, "fcf", QoQ)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	failing := &memorySource{collections: map[string][]Record{}}
	_, err = newFixtureEngine(t, failing).Compute(ctx, "revenue", QoQ)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidArgument))
}

func TestEngineWACCWithDeclaredDebt(t *testing.T) {
	cat := DefaultCatalog()
	cat.WACC = &WACCAssumptions{UnleveredBeta: 1, RiskFreeRate: 0.04, MarketRiskPremium: 0.05, PreTaxCostOfDebt: 0.06}
	for i := range cat.Metrics {
		switch cat.Metrics[i].Name {
		case "wacc":
			cat.Metrics[i].Sources = []Source{
				{Collection: "balance_sheet", Fields: []string{"LongTermDebt", "TotalStockholdersEquity"}},
				{Collection: "statement_operations", Fields: []string{"IncomeBeforeIncomeTaxes", "ProvisionForIncomeTaxes"}},
			}
		case "debt_to_equity":
			cat.Metrics[i].Sources = []Source{
				{Collection: "balance_sheet", Fields: []string{"LongTermDebt", "TotalStockholdersEquity"}},
			}
		}
	}
	src := fixtureSource()
	for _, r := range src.collections["balance_sheet"] {
		r["LongTermDebt"] = 50.0
	}
	e := newEngine(t, src, cat, EngineConfig{})

	tbl, err := e.Compute(context.Background(), "wacc", QoQ)
	require.NoError(t, err)
	w, _ := tbl.Get(WACCSeries)
	// D/E 0.5 and a 25% effective tax rate: Ke 0.10875, Kd 0.045.
	assert.InDelta(t, 0.0875, w[0], 1e-6)

	de, err := e.Compute(context.Background(), "debt_to_equity", QoQ)
	require.NoError(t, err)
	r, ok := de.Get("RatioTotalDebt/TotalStockholdersEquity")
	require.True(t, ok)
	assert.InDelta(t, 0.5, r[0], 1e-9)
}

type blockingSource struct{}

func (blockingSource) Fetch(ctx context.Context, _ string, _ []string) ([]Record, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEngineFetchTimeout(t *testing.T) {
	e := newEngine(t, blockingSource{}, nil, EngineConfig{FetchTimeout: 10 * time.Millisecond})
	_, err := e.Compute(context.Background(), "revenue", QoQ)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewEngineRejectsMalformedCatalog(t *testing.T) {
	cat := &Catalog{Metrics: []MetricSpec{{
		Name: "revenue", Kind: KindSeries,
		Sources: []Source{{Collection: "statement_operations"}},
	}}}
	_, err := NewEngine(fixtureSource(), cat, EngineConfig{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEngineSeriesWithoutFields(t *testing.T) {
	e := newFixtureEngine(t, fixtureSource())
	_, err := e.series(context.Background(), MetricSpec{Name: "revenue", Kind: KindSeries,
		Sources: []Source{{Collection: "statement_operations"}}}, QoQ)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// fixedSource serves records without recording calls, for concurrent use.
type fixedSource map[string][]Record

func (f fixedSource) Fetch(_ context.Context, collection string, _ []string) ([]Record, error) {
	return f[collection], nil
}

func TestEngineValidatesHandBuiltCatalogOnce(t *testing.T) {
	cat := &Catalog{Company: "Acme", Metrics: []MetricSpec{{
		Name: "revenue", Kind: KindSeries, Timescales: []Timescale{"qoq", "yoy"},
		Sources: []Source{{Collection: "statement_operations", Fields: []string{"TotalRevenues"}}},
	}}}
	e := newEngine(t, fixedSource(fixtureSource().collections), cat, EngineConfig{})
	m, err := e.Catalog().Lookup("revenue")
	require.NoError(t, err)
	assert.Equal(t, []Timescale{QoQ, YoY}, m.Timescales)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Compute(context.Background(), "revenue", YoY)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
