package valuation

import (
	"math"

	"github.com/seenimoa/smevalue/pkg/models"
)

// AggregateInput carries what the aggregator needs besides method results.
type AggregateInput struct {
	Results []models.ValuationMethodResult
	// Completeness is the fraction (0-1) of tracked inputs that were reported.
	Completeness float64
	// UsedDefaultSector is true when the fallback profile was used.
	UsedDefaultSector bool
}

// Aggregate blends method results into a range and confidence score.
// It never returns NaN; with no results it returns InsufficientDataError.
func Aggregate(in AggregateInput, p Params) (models.ValuationRange, error) {
	if len(in.Results) == 0 {
		return models.ValuationRange{}, &InsufficientDataError{}
	}

	typical := weightedMean(in.Results)
	cv := dispersion(in.Results)

	spread := p.BaseSpread + p.DispersionWeight*cv
	if len(in.Results) == 1 {
		spread += p.SingleMethodSpread
	}
	spread = clamp(spread, p.MinSpread, p.MaxSpread)

	return models.ValuationRange{
		Minimum:    typical * (1 - spread),
		Typical:    typical,
		Maximum:    typical * (1 + spread),
		Confidence: confidence(in, cv, p),
		Spread:     spread,
	}, nil
}

// weightedMean averages estimates by reliability weight, falling back to an
// unweighted mean when every weight is zero.
func weightedMean(results []models.ValuationMethodResult) float64 {
	var sum, wsum float64
	for _, r := range results {
		sum += r.Estimate * r.ReliabilityWeight
		wsum += r.ReliabilityWeight
	}
	if wsum > 0 {
		return sum / wsum
	}

	sum = 0
	for _, r := range results {
		sum += r.Estimate
	}
	return sum / float64(len(results))
}

// dispersion is the population coefficient of variation of the estimates.
// Undefined cases (fewer than two estimates, non-positive mean) yield 0.
func dispersion(results []models.ValuationMethodResult) float64 {
	if len(results) < 2 {
		return 0
	}

	var mean float64
	for _, r := range results {
		mean += r.Estimate
	}
	mean /= float64(len(results))
	if mean <= 0 {
		return 0
	}

	var variance float64
	for _, r := range results {
		d := r.Estimate - mean
		variance += d * d
	}
	variance /= float64(len(results))

	return math.Sqrt(variance) / mean
}

// confidence combines data completeness, method reliability, agreement
// between methods, method coverage and sector fit into a 0-100 score.
func confidence(in AggregateInput, cv float64, p Params) float64 {
	dataScore := 0.5 + 0.5*clamp(in.Completeness, 0, 1)

	var wsum float64
	for _, r := range in.Results {
		wsum += clamp(r.ReliabilityWeight, 0, 1)
	}
	reliabilityScore := 0.4 + 0.6*(wsum/float64(len(in.Results)))

	agreement := 1 - clamp(cv, 0, p.MaxDispersion)

	coverage := 1.0
	if len(in.Results) == 1 {
		coverage = p.SingleMethodFactor
	}

	sectorFactor := 1.0
	if in.UsedDefaultSector {
		sectorFactor = p.FallbackConfidenceFactor
	}

	score := 100 * dataScore * reliabilityScore * agreement * coverage * sectorFactor
	return math.Round(clamp(score, 0, 100)*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
