package valuation

import (
	"math"

	"github.com/seenimoa/smevalue/pkg/models"
)

// Method identifiers.
const (
	MethodRevenueMultiple  = "revenue_multiple"
	MethodEarningsMultiple = "earnings_multiple"
)

// Method is one independent valuation technique. Estimate must be a pure
// function of its arguments. When the method cannot run it returns ok=false
// and a human-readable reason.
type Method interface {
	Name() string
	Estimate(in models.BusinessInputs, profile models.SectorProfile, b models.Buckets, p Params) (res models.ValuationMethodResult, reason string, ok bool)
}

// DefaultMethods returns the built-in methods in report order.
func DefaultMethods() []Method {
	return []Method{RevenueMultiple{}, EarningsMultiple{}}
}

// RevenueMultiple values the business at revenue × sector revenue multiple.
type RevenueMultiple struct{}

// Name implements Method.
func (RevenueMultiple) Name() string { return MethodRevenueMultiple }

// Estimate implements Method. Skipped when revenue was not reported.
func (m RevenueMultiple) Estimate(in models.BusinessInputs, profile models.SectorProfile, b models.Buckets, p Params) (models.ValuationMethodResult, string, bool) {
	if in.AnnualRevenue <= 0 {
		return models.ValuationMethodResult{}, "annual revenue not reported", false
	}
	return applyMultiple(m.Name(), in.AnnualRevenue, profile.BaseMultiple.Revenue, profile, b, p), "", true
}

// EarningsMultiple values the business at profit × sector EBITDA multiple.
type EarningsMultiple struct{}

// Name implements Method.
func (EarningsMultiple) Name() string { return MethodEarningsMultiple }

// Estimate implements Method. Skipped when profit is absent or not positive;
// a loss-making business is valid input but this method has no meaning for it.
func (m EarningsMultiple) Estimate(in models.BusinessInputs, profile models.SectorProfile, b models.Buckets, p Params) (models.ValuationMethodResult, string, bool) {
	profit, ok := in.EffectiveProfit()
	switch {
	case !ok:
		return models.ValuationMethodResult{}, "profit not reported", false
	case profit == 0:
		return models.ValuationMethodResult{}, "profit is zero", false
	case profit < 0:
		return models.ValuationMethodResult{}, "business is loss-making", false
	}
	return applyMultiple(m.Name(), profit, profile.BaseMultiple.EBITDA, profile, b, p), "", true
}

// Adjustments returns the three multipliers shared by every method, so
// method outputs stay comparable before blending.
func Adjustments(profile models.SectorProfile, b models.Buckets) []models.AppliedAdjustment {
	adj := profile.AdjustmentFactors
	return []models.AppliedAdjustment{
		{Name: models.DimensionSize, Bucket: string(b.Size), Factor: factorOr(adj.Size, b.Size)},
		{Name: models.DimensionGrowth, Bucket: string(b.Growth), Factor: factorOr(adj.Growth, b.Growth)},
		{Name: models.DimensionProfitability, Bucket: string(b.Profitability), Factor: factorOr(adj.Profitability, b.Profitability)},
	}
}

// ReliabilityWeight starts at 1 and is multiplied by the missing-data penalty
// once per defaulted bucket.
func ReliabilityWeight(b models.Buckets, p Params) float64 {
	return math.Pow(p.MissingDataPenalty, float64(len(b.Defaulted)))
}

func applyMultiple(name string, base, multiple float64, profile models.SectorProfile, b models.Buckets, p Params) models.ValuationMethodResult {
	adjustments := Adjustments(profile, b)
	applied := multiple
	for _, a := range adjustments {
		applied *= a.Factor
	}
	return models.ValuationMethodResult{
		Method:            name,
		Estimate:          base * applied,
		AppliedMultiplier: applied,
		ReliabilityWeight: ReliabilityWeight(b, p),
		Adjustments:       adjustments,
	}
}

// factorOr looks up a bucket multiplier. Validated catalogs are closed, so
// the neutral fallback only guards hand-built profiles.
func factorOr[K comparable](table map[K]float64, k K) float64 {
	if f, ok := table[k]; ok {
		return f
	}
	return 1.0
}
