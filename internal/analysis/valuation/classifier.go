package valuation

import "github.com/seenimoa/smevalue/pkg/models"

// Classify maps raw metrics into size, growth and profitability buckets.
// A nil growth or margin (or zero revenue) yields the middle bucket and is
// recorded in Buckets.Defaulted so methods can lower their reliability.
func Classify(revenue float64, growth, margin *float64, profile models.SectorProfile, p Params) models.Buckets {
	b := models.Buckets{}

	smallBelow, largeAbove := p.SmallRevenueBelow, p.LargeRevenueAbove
	if t := profile.SizeThresholds; t != nil {
		smallBelow, largeAbove = t.SmallBelow, t.LargeAbove
	}

	switch {
	case revenue <= 0:
		b.Size = models.SizeMedium
		b.Defaulted = append(b.Defaulted, models.DimensionSize)
	case revenue < smallBelow:
		b.Size = models.SizeSmall
	case revenue > largeAbove:
		b.Size = models.SizeLarge
	default:
		b.Size = models.SizeMedium
	}

	if growth == nil {
		b.Growth = models.GrowthModerate
		b.Defaulted = append(b.Defaulted, models.DimensionGrowth)
	} else {
		switch band(*growth, profile.Benchmarks.GrowthRatePct, p.GrowthTolerance) {
		case -1:
			b.Growth = models.GrowthLow
		case 1:
			b.Growth = models.GrowthHigh
		default:
			b.Growth = models.GrowthModerate
		}
	}

	if margin == nil {
		b.Profitability = models.ProfitabilityAverage
		b.Defaulted = append(b.Defaulted, models.DimensionProfitability)
	} else {
		switch band(*margin, profile.Benchmarks.ProfitMarginPct, p.MarginTolerance) {
		case -1:
			b.Profitability = models.ProfitabilityLow
		case 1:
			b.Profitability = models.ProfitabilityHigh
		default:
			b.Profitability = models.ProfitabilityAverage
		}
	}

	return b
}

// ClassifyInputs classifies a request. Profitability is banded only on a
// reported margin, so with profit held fixed no bucket moves down as
// revenue rises. A reported profit of zero or less is low at any revenue;
// any other profit-only request keeps the average bucket, marked defaulted.
func ClassifyInputs(in models.BusinessInputs, profile models.SectorProfile, p Params) models.Buckets {
	b := Classify(in.AnnualRevenue, in.GrowthRate, in.ProfitMargin, profile, p)
	if in.ProfitMargin == nil && in.Profit != nil && *in.Profit <= 0 {
		b.Profitability = models.ProfitabilityLow
		b.Defaulted = without(b.Defaulted, models.DimensionProfitability)
	}
	return b
}

func without(dims []string, dim string) []string {
	out := dims[:0]
	for _, d := range dims {
		if d != dim {
			out = append(out, d)
		}
	}
	return out
}

// band returns -1 below benchmark-tolerance, 1 above benchmark+tolerance, else 0.
func band(value, benchmark, tolerance float64) int {
	switch {
	case value < benchmark-tolerance:
		return -1
	case value > benchmark+tolerance:
		return 1
	default:
		return 0
	}
}
