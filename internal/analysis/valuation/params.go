package valuation

import (
	"fmt"
	"strings"
)

// Params holds the tunable constants of the engine. The zero value is not
// usable; start from DefaultParams.
type Params struct {
	// Classification.
	SmallRevenueBelow float64 // global size breakpoint (currency)
	LargeRevenueAbove float64
	GrowthTolerance   float64 // percentage points either side of the benchmark
	MarginTolerance   float64

	// Reliability.
	MissingDataPenalty float64 // weight multiplier per defaulted bucket

	// Range spread.
	BaseSpread         float64
	DispersionWeight   float64
	SingleMethodSpread float64
	MinSpread          float64
	MaxSpread          float64

	// Confidence.
	MaxDispersion            float64 // cv beyond this no longer lowers agreement
	SingleMethodFactor       float64
	FallbackConfidenceFactor float64 // applied when the default sector profile is used

	// Narrative.
	NarrativeMargin float64 // percentage points ahead/behind a benchmark to mention it
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		SmallRevenueBelow: 1_000_000,
		LargeRevenueAbove: 10_000_000,
		GrowthTolerance:   5,
		MarginTolerance:   5,

		MissingDataPenalty: 0.5,

		BaseSpread:         0.15,
		DispersionWeight:   0.5,
		SingleMethodSpread: 0.05,
		MinSpread:          0.10,
		MaxSpread:          0.40,

		MaxDispersion:            0.4,
		SingleMethodFactor:       0.8,
		FallbackConfidenceFactor: 0.6,

		NarrativeMargin: 3,
	}
}

// Validate checks that the parameters keep the range and confidence bounded.
func (p Params) Validate() error {
	var errs []string

	if p.SmallRevenueBelow <= 0 {
		errs = append(errs, "small_revenue_below must be > 0")
	}
	if p.LargeRevenueAbove < p.SmallRevenueBelow {
		errs = append(errs, "large_revenue_above must be >= small_revenue_below")
	}
	if p.GrowthTolerance < 0 || p.MarginTolerance < 0 {
		errs = append(errs, "tolerances must be >= 0")
	}
	if p.MissingDataPenalty <= 0 || p.MissingDataPenalty > 1 {
		errs = append(errs, "missing_data_penalty must be in (0, 1]")
	}
	if p.MinSpread < 0 || p.MaxSpread >= 1 || p.MinSpread > p.MaxSpread {
		errs = append(errs, "spread bounds must satisfy 0 <= min_spread <= max_spread < 1")
	}
	if p.BaseSpread < 0 || p.DispersionWeight < 0 || p.SingleMethodSpread < 0 {
		errs = append(errs, "spread terms must be >= 0")
	}
	if p.MaxDispersion <= 0 || p.MaxDispersion >= 1 {
		errs = append(errs, "max_dispersion must be in (0, 1)")
	}
	if p.SingleMethodFactor <= 0 || p.SingleMethodFactor > 1 {
		errs = append(errs, "single_method_factor must be in (0, 1]")
	}
	// The fallback factor must not exceed the agreement floor, otherwise an
	// unknown sector could score above a known one.
	if p.FallbackConfidenceFactor <= 0 || p.FallbackConfidenceFactor > 1-p.MaxDispersion+1e-9 {
		errs = append(errs, "fallback_confidence_factor must be in (0, 1 - max_dispersion]")
	}
	if p.NarrativeMargin < 0 {
		errs = append(errs, "narrative_margin must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("valuation: invalid params: %s", strings.Join(errs, "; "))
	}
	return nil
}
