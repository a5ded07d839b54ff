// Package valuation estimates the sale value of a small or medium enterprise.
//
// A request flows through sector resolution, bucket classification,
// independent valuation methods, aggregation into a range with a confidence
// score, and a rule-based narrative. Every step is a pure function of its
// inputs; an Engine holds only read-only configuration and is safe for
// concurrent use.
package valuation

import (
	"github.com/rs/zerolog"

	"github.com/seenimoa/smevalue/pkg/models"
)

// Engine computes valuation reports.
type Engine struct {
	catalog *Catalog
	methods []Method
	params  Params
	log     zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithParams replaces the default parameters.
func WithParams(p Params) Option {
	return func(e *Engine) { e.params = p }
}

// WithMethods replaces the method set. Methods run in the given order and
// appear in that order in the report breakdown.
func WithMethods(methods ...Method) Option {
	return func(e *Engine) { e.methods = append([]Method(nil), methods...) }
}

// WithLogger sets the logger used for per-calculation debug events.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log.With().Str("component", "valuation").Logger() }
}

// NewEngine builds an engine. A nil catalog uses the builtin one.
func NewEngine(catalog *Catalog, opts ...Option) (*Engine, error) {
	if catalog == nil {
		catalog = BuiltinCatalog()
	}
	e := &Engine{
		catalog: catalog,
		methods: DefaultMethods(),
		params:  DefaultParams(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.params.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Catalog returns the sector catalog the engine resolves against.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Params returns the engine parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Calculate values one business. Inputs are assumed shape-validated; absent
// optional fields are handled by the documented policies. It returns
// *InsufficientDataError when no method can produce an estimate.
func (e *Engine) Calculate(in models.BusinessInputs) (*models.ValuationReport, error) {
	profile, usedDefault := e.catalog.Resolve(in.SectorCode)
	buckets := ClassifyInputs(in, profile, e.params)

	var (
		results []models.ValuationMethodResult
		skipped []models.SkippedMethod
	)
	for _, m := range e.methods {
		res, reason, ok := m.Estimate(in, profile, buckets, e.params)
		if !ok {
			skipped = append(skipped, models.SkippedMethod{Method: m.Name(), Reason: reason})
			continue
		}
		results = append(results, res)
	}

	if len(results) == 0 {
		e.log.Debug().
			Str("sector", profile.Code).
			Int("skipped", len(skipped)).
			Msg("valuation: no method produced an estimate")
		return nil, &InsufficientDataError{Skipped: skipped}
	}

	rng, err := Aggregate(AggregateInput{
		Results:           results,
		Completeness:      Completeness(in),
		UsedDefaultSector: usedDefault,
	}, e.params)
	if err != nil {
		return nil, err
	}

	strengths, weaknesses := Factors(in, profile, e.params)
	opportunities, recommendations := MatchRules(Dimensions(in, buckets))

	report := &models.ValuationReport{
		SectorCode:        profile.Code,
		SectorName:        profile.Name,
		UsedDefaultSector: usedDefault,
		Buckets:           buckets,
		Range:             rng,
		MethodBreakdown:   results,
		SkippedMethods:    skipped,
		StrengthFactors:   strengths,
		WeaknessFactors:   weaknesses,
		Opportunities:     opportunities,
		Recommendations:   recommendations,
	}

	e.log.Debug().
		Str("sector", profile.Code).
		Bool("default_sector", usedDefault).
		Int("methods", len(results)).
		Float64("typical", rng.Typical).
		Float64("confidence", rng.Confidence).
		Msg("valuation: computed")

	return report, nil
}

// trackedInputs is the number of inputs counted by Completeness.
const trackedInputs = 8

// Completeness returns the fraction of tracked inputs that were reported.
func Completeness(in models.BusinessInputs) float64 {
	n := 0
	if in.AnnualRevenue > 0 {
		n++
	}
	if in.Profit != nil || in.ProfitMargin != nil {
		n++
	}
	if in.GrowthRate != nil {
		n++
	}
	if in.RecurringRevenuePct != nil {
		n++
	}
	if in.CustomerConcentration != nil {
		n++
	}
	if in.YearEstablished > 0 {
		n++
	}
	if in.EmployeeCount > 0 {
		n++
	}
	if len(in.KeyAssets) > 0 {
		n++
	}
	return float64(n) / trackedInputs
}
