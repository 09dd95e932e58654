package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"
)

// DataSource supplies raw statement records. Records come back in storage
// order, newest period first by convention.
type DataSource interface {
	Fetch(ctx context.Context, collection string, fields []string) ([]Record, error)
}

// DefaultFetchTimeout bounds a single DataSource call.
const DefaultFetchTimeout = 10 * time.Second

// maxDepth bounds how deeply catalog entries may derive from one another.
const maxDepth = 8

// ProjectionConfig tunes the free-cash-flow projector.
type ProjectionConfig struct {
	// Anchor is the first projected quarter, e.g. 4Q22. Empty means the quarter
	// after the newest reported period.
	Anchor     string
	Horizon    int
	ROICCap    float64
	SeedWindow int
}

// EngineConfig holds engine tunables.
type EngineConfig struct {
	FetchTimeout time.Duration
	Projection   ProjectionConfig
}

// Engine computes catalog metrics on demand. It keeps no per-request state and
// is safe for concurrent use.
type Engine struct {
	source  DataSource
	catalog *Catalog
	cfg     EngineConfig
}

// NewEngine creates an engine over source. A nil catalog selects DefaultCatalog.
// The catalog is validated here and must not be modified afterwards.
func NewEngine(source DataSource, catalog *Catalog, cfg EngineConfig) (*Engine, error) {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Projection.Horizon <= 0 {
		cfg.Projection.Horizon = DefaultHorizon
	}
	if cfg.Projection.ROICCap <= 0 {
		cfg.Projection.ROICCap = DefaultROICCap
	}
	if cfg.Projection.SeedWindow <= 0 {
		cfg.Projection.SeedWindow = DefaultSeedWindow
	}
	return &Engine{source: source, catalog: catalog, cfg: cfg}, nil
}

// Catalog returns the catalog the engine computes from.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Compute derives the named metric. An empty timescale selects the metric's default.
func (e *Engine) Compute(ctx context.Context, name string, ts Timescale) (*Table, error) {
	spec, err := e.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	if ts == "" {
		ts = spec.DefaultTimescale
	}
	start := time.Now()
	res, err := e.compute(ctx, spec, ts, 0)
	if err != nil {
		log.Warn().Str("metric", name).Str("timescale", string(ts)).Err(err).Msg("metric computation failed")
		return nil, err
	}
	log.Debug().Str("metric", name).Str("timescale", string(ts)).Int("periods", res.table.Len()).
		Dur("elapsed", time.Since(start)).Msg("metric computed")
	return res.table, nil
}

// Project runs the free-cash-flow projection entry of the catalog.
func (e *Engine) Project(ctx context.Context, ts Timescale) (*Table, error) {
	for _, m := range e.catalog.Metrics {
		if m.Kind == KindProjection {
			return e.Compute(ctx, m.Name, ts)
		}
	}
	return nil, fmt.Errorf("catalog has no projection entry: %w", ErrUnknownMetric)
}

type result struct {
	table   *Table
	primary string
	// base is the series a rate table was derived from.
	base string
}

func (e *Engine) compute(ctx context.Context, spec MetricSpec, ts Timescale, depth int) (result, error) {
	if depth > maxDepth {
		return result{}, fmt.Errorf("metric %q: input chain deeper than %d: %w", spec.Name, maxDepth, ErrInvalidArgument)
	}
	if !spec.Allows(ts) {
		return result{}, fmt.Errorf("metric %q does not support timescale %q: %w", spec.Name, ts, ErrInvalidArgument)
	}

	switch spec.Kind {
	case KindSeries:
		return e.series(ctx, spec, ts)
	case KindSum:
		t, err := e.fetchOne(ctx, spec, ts)
		if err != nil {
			return result{}, err
		}
		name, err := AddSum(t, spec.Output, spec.Sources[0].Fields, ts)
		return result{table: t, primary: name}, err
	case KindRatio:
		return e.ratio(ctx, spec, ts)
	case KindQuickRatio:
		if ts != QoQ {
			return result{}, fmt.Errorf("quick ratio is quarterly only: %w", ErrInvalidArgument)
		}
		t, err := e.fetchOne(ctx, spec, ts)
		if err != nil {
			return result{}, err
		}
		return result{table: t, primary: QuickRatioSeries}, AddQuickRatio(t, spec.Sources[0].Fields)
	case KindDebtRatio:
		return e.debtRatio(ctx, spec, ts)
	case KindGrowth:
		base, err := e.input(ctx, spec, 0, ts, depth)
		if err != nil {
			return result{}, err
		}
		t := base.table.Clone()
		return result{table: t, primary: GrowthSeries}, AddGrowth(t, base.primary)
	case KindInvestedCapital:
		t, err := e.fetchOne(ctx, spec, ts)
		if err != nil {
			return result{}, err
		}
		fields, err := InvestedCapitalFieldsFrom(spec.Sources[0].Fields)
		if err != nil {
			return result{}, err
		}
		return result{table: t, primary: InvestedCapitalSeries}, AddInvestedCapital(t, fields, ts)
	case KindNOPAT:
		t, err := e.fetchOne(ctx, spec, ts)
		if err != nil {
			return result{}, err
		}
		out, err := NOPATTable(t, spec.Sources[0].Fields, ts)
		return result{table: out, primary: NOPATSeries}, err
	case KindROIC:
		return e.roic(ctx, spec, ts, depth)
	case KindWACC:
		return e.wacc(ctx, spec, ts)
	case KindRate:
		base, err := e.input(ctx, spec, 0, ts, depth)
		if err != nil {
			return result{}, err
		}
		t, err := base.table.Select(base.primary)
		if err != nil {
			return result{}, err
		}
		return result{table: t, primary: RateTTMSeries, base: base.primary}, AddRate(t, base.primary)
	case KindProjection:
		return e.project(ctx, spec, ts, depth)
	case KindUnimplemented:
		return result{}, fmt.Errorf("metric %q: %w", spec.Name, ErrNotImplemented)
	}
	return result{}, fmt.Errorf("metric %q has unknown kind %q: %w", spec.Name, spec.Kind, ErrInvalidArgument)
}

// ====================================================================
// Fetching
// ====================================================================

func (e *Engine) fetch(ctx context.Context, s Source, ts Timescale) (*Table, error) {
	fields := make([]string, 0, len(s.Fields)+1)
	fields = append(fields, s.Fields...)
	fields = append(fields, e.catalog.PeriodField)

	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()
	records, err := e.source.Fetch(fctx, s.Collection, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.Collection, err)
	}
	t, err := TableFromRecords(records, e.catalog.PeriodField, s.Fields)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", s.Collection, err)
	}
	t.SortNewestFirst()
	return Reshape(t, ts)
}

func (e *Engine) fetchOne(ctx context.Context, spec MetricSpec, ts Timescale) (*Table, error) {
	if len(spec.Sources) != 1 {
		return nil, fmt.Errorf("metric %q needs exactly one source, has %d: %w", spec.Name, len(spec.Sources), ErrInvalidArgument)
	}
	return e.fetch(ctx, spec.Sources[0], ts)
}

func (e *Engine) input(ctx context.Context, spec MetricSpec, i int, ts Timescale, depth int) (result, error) {
	if i >= len(spec.Inputs) {
		return result{}, fmt.Errorf("metric %q is missing input %d: %w", spec.Name, i, ErrInvalidArgument)
	}
	in, err := e.catalog.Lookup(spec.Inputs[i])
	if err != nil {
		return result{}, err
	}
	return e.compute(ctx, in, ts, depth+1)
}

// ====================================================================
// Formulas
// ====================================================================

func (e *Engine) series(ctx context.Context, spec MetricSpec, ts Timescale) (result, error) {
	if len(spec.Sources) != 1 || len(spec.Sources[0].Fields) == 0 {
		return result{}, fmt.Errorf("metric %q needs one source with fields: %w", spec.Name, ErrInvalidArgument)
	}
	fields := spec.Sources[0].Fields
	t, err := e.fetch(ctx, spec.Sources[0], ts)
	if err != nil {
		return result{}, err
	}
	if spec.AverageStock {
		if err := AverageStocks(t, ts, fields...); err != nil {
			return result{}, err
		}
	}
	return result{table: t, primary: InputName(fields[0], ts)}, nil
}

func (e *Engine) ratio(ctx context.Context, spec MetricSpec, ts Timescale) (result, error) {
	var (
		t        *Table
		num, den string
	)
	switch {
	case len(spec.Sources) == 1 && len(spec.Sources[0].Fields) == 2:
		var err error
		if t, err = e.fetch(ctx, spec.Sources[0], ts); err != nil {
			return result{}, err
		}
		num, den = spec.Sources[0].Fields[0], spec.Sources[0].Fields[1]
		if spec.AverageStock {
			if err := AverageStocks(t, ts, den); err != nil {
				return result{}, err
			}
		}
	case len(spec.Sources) == 2 && len(spec.Sources[0].Fields) == 1 && len(spec.Sources[1].Fields) == 1:
		a, err := e.fetch(ctx, spec.Sources[0], ts)
		if err != nil {
			return result{}, err
		}
		b, err := e.fetch(ctx, spec.Sources[1], ts)
		if err != nil {
			return result{}, err
		}
		num, den = spec.Sources[0].Fields[0], spec.Sources[1].Fields[0]
		if spec.AverageStock {
			if err := AverageStocks(b, ts, den); err != nil {
				return result{}, err
			}
		}
		if t, err = Merge(a, b); err != nil {
			return result{}, fmt.Errorf("metric %q: %w", spec.Name, err)
		}
	default:
		return result{}, fmt.Errorf("metric %q: ratio needs a numerator and a denominator field: %w", spec.Name, ErrInvalidArgument)
	}
	name, err := AddRatio(t, InputName(num, ts), InputName(den, ts))
	return result{table: t, primary: name}, err
}

func (e *Engine) debtRatio(ctx context.Context, spec MetricSpec, ts Timescale) (result, error) {
	if len(spec.Sources) == 0 {
		return result{}, fmt.Errorf("metric %q declares no debt fields: %w", spec.Name, ErrNotImplemented)
	}
	fields := spec.Sources[0].Fields
	if len(fields) < 2 {
		return result{}, fmt.Errorf("metric %q needs debt fields and a denominator: %w", spec.Name, ErrInvalidArgument)
	}
	t, err := e.fetchOne(ctx, spec, ts)
	if err != nil {
		return result{}, err
	}
	debt, err := AddSum(t, TotalDebtSeries, fields[:len(fields)-1], ts)
	if err != nil {
		return result{}, err
	}
	name, err := AddRatio(t, debt, InputName(fields[len(fields)-1], ts))
	return result{table: t, primary: name}, err
}

func (e *Engine) roic(ctx context.Context, spec MetricSpec, ts Timescale, depth int) (result, error) {
	num, err := e.input(ctx, spec, 0, ts, depth)
	if err != nil {
		return result{}, err
	}
	den, err := e.input(ctx, spec, 1, ts, depth)
	if err != nil {
		return result{}, err
	}
	numerator, err := num.table.Select(num.primary)
	if err != nil {
		return result{}, err
	}
	t, err := Merge(numerator, den.table)
	if err != nil {
		return result{}, fmt.Errorf("metric %q: %w", spec.Name, err)
	}
	name, err := AddRatio(t, num.primary, den.primary)
	return result{table: t, primary: name}, err
}

func (e *Engine) wacc(ctx context.Context, spec MetricSpec, ts Timescale) (result, error) {
	if e.catalog.WACC == nil || len(spec.Sources) < 2 {
		return result{}, fmt.Errorf("metric %q needs market assumptions and debt fields: %w", spec.Name, ErrNotImplemented)
	}
	capital, taxes := spec.Sources[0], spec.Sources[1]
	if len(capital.Fields) < 2 {
		return result{}, fmt.Errorf("metric %q needs debt fields and an equity field: %w", spec.Name, ErrInvalidArgument)
	}
	a, err := e.fetch(ctx, capital, ts)
	if err != nil {
		return result{}, err
	}
	b, err := e.fetch(ctx, taxes, ts)
	if err != nil {
		return result{}, err
	}
	t, err := Merge(a, b)
	if err != nil {
		return result{}, fmt.Errorf("metric %q: %w", spec.Name, err)
	}
	n := len(capital.Fields)
	out, err := WACCTable(t, *e.catalog.WACC, capital.Fields[:n-1], capital.Fields[n-1], taxes.Fields, ts)
	return result{table: out, primary: WACCSeries}, err
}

func (e *Engine) project(ctx context.Context, spec MetricSpec, ts Timescale, depth int) (result, error) {
	icRate, err := e.input(ctx, spec, 0, ts, depth)
	if err != nil {
		return result{}, err
	}
	roicRate, err := e.input(ctx, spec, 1, ts, depth)
	if err != nil {
		return result{}, err
	}
	p := e.cfg.Projection
	ic, err := SeedFromRate(icRate.table, icRate.base, p.SeedWindow)
	if err != nil {
		return result{}, err
	}
	roic, err := SeedFromRate(roicRate.table, roicRate.base, p.SeedWindow)
	if err != nil {
		return result{}, err
	}

	var anchor Quarter
	if p.Anchor != "" {
		if anchor, err = ParseQuarter(p.Anchor); err != nil {
			return result{}, fmt.Errorf("projection anchor: %w", err)
		}
	} else {
		latest, err := LatestQuarter(roicRate.table.Periods)
		if err != nil {
			return result{}, err
		}
		anchor = latest.Next()
	}

	log.Info().Str("anchor", anchor.String()).Int("horizon", p.Horizon).
		Float64("ic_start", ic.Start).Float64("ic_rate", ic.Rate).
		Float64("roic_start", roic.Start).Float64("roic_rate", roic.Rate).
		Msg("projecting free cash flow")

	t, err := ProjectFcF(ic, roic, QuarterSequence(anchor, p.Horizon), p.ROICCap)
	return result{table: t, primary: FcFProjectedSeries}, err
}
