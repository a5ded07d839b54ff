package valuation

import (
	"fmt"
	"strings"

	"github.com/seenimoa/smevalue/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Strengths & weaknesses
// ════════════════════════════════════════════════════════════════════

// BenchmarkRule compares one input metric with a sector benchmark. Higher is
// better for every benchmark rule.
type BenchmarkRule struct {
	Metric        string
	Value         func(in models.BusinessInputs) (float64, bool)
	Benchmark     func(profile models.SectorProfile) float64
	StrengthLabel string
	WeaknessLabel string
	Detail        string // fmt with (value, benchmark)
}

// ThresholdRule checks one input metric against fixed thresholds.
type ThresholdRule struct {
	Metric         string
	Value          func(in models.BusinessInputs) (float64, bool)
	HigherIsBetter bool
	StrengthAt     float64 // strength when value reaches this (>= or <=)
	WeaknessAt     float64 // weakness when value is past this (< or >=)
	NoWeakness     bool
	StrengthLabel  string
	WeaknessLabel  string
	Detail         string // fmt with (value)
}

var benchmarkRules = []BenchmarkRule{
	{
		Metric:        "profit_margin",
		Value:         func(in models.BusinessInputs) (float64, bool) { return in.EffectiveMargin() },
		Benchmark:     func(p models.SectorProfile) float64 { return p.Benchmarks.ProfitMarginPct },
		StrengthLabel: "Above-average profitability",
		WeaknessLabel: "Below-average profitability",
		Detail:        "Profit margin of %.1f%% against a sector benchmark of %.1f%%",
	},
	{
		Metric:        "growth_rate",
		Value:         func(in models.BusinessInputs) (float64, bool) { return deref(in.GrowthRate) },
		Benchmark:     func(p models.SectorProfile) float64 { return p.Benchmarks.GrowthRatePct },
		StrengthLabel: "Strong revenue growth",
		WeaknessLabel: "Slow revenue growth",
		Detail:        "Revenue growth of %.1f%% against a sector benchmark of %.1f%%",
	},
	{
		Metric:        "recurring_revenue",
		Value:         func(in models.BusinessInputs) (float64, bool) { return deref(in.RecurringRevenuePct) },
		Benchmark:     func(p models.SectorProfile) float64 { return p.Benchmarks.CustomerRetentionPct },
		StrengthLabel: "Predictable recurring revenue",
		WeaknessLabel: "Limited recurring revenue",
		Detail:        "%.0f%% of revenue is recurring against typical sector retention of %.0f%%",
	},
}

var thresholdRules = []ThresholdRule{
	{
		Metric:         "customer_concentration",
		Value:          func(in models.BusinessInputs) (float64, bool) { return deref(in.CustomerConcentration) },
		HigherIsBetter: false,
		StrengthAt:     10,
		WeaknessAt:     30,
		StrengthLabel:  "Diversified customer base",
		WeaknessLabel:  "Customer concentration risk",
		Detail:         "Largest customer accounts for %.0f%% of revenue",
	},
	{
		Metric:         "trading_history",
		Value:          tradingYears,
		HigherIsBetter: true,
		StrengthAt:     10,
		WeaknessAt:     3,
		StrengthLabel:  "Established trading history",
		WeaknessLabel:  "Short trading history",
		Detail:         "%.0f years of trading",
	},
	{
		Metric: "key_assets",
		Value: func(in models.BusinessInputs) (float64, bool) {
			return float64(len(in.KeyAssets)), len(in.KeyAssets) > 0
		},
		HigherIsBetter: true,
		StrengthAt:     1,
		NoWeakness:     true,
		StrengthLabel:  "Identifiable key assets",
		Detail:         "%.0f key asset(s) listed that a buyer can value separately",
	},
}

// BenchmarkRules returns the benchmark comparison table.
func BenchmarkRules() []BenchmarkRule {
	return append([]BenchmarkRule(nil), benchmarkRules...)
}

// ThresholdRules returns the fixed-threshold table.
func ThresholdRules() []ThresholdRule {
	return append([]ThresholdRule(nil), thresholdRules...)
}

// Factors derives strengths and weaknesses. A metric inside the
// ±NarrativeMargin band, or not reported, produces nothing.
func Factors(in models.BusinessInputs, profile models.SectorProfile, p Params) (strengths, weaknesses []models.NarrativeFactor) {
	strengths = []models.NarrativeFactor{}
	weaknesses = []models.NarrativeFactor{}

	for _, r := range benchmarkRules {
		v, ok := r.Value(in)
		if !ok {
			continue
		}
		bm := r.Benchmark(profile)
		switch {
		case v > bm+p.NarrativeMargin:
			strengths = append(strengths, models.NarrativeFactor{Label: r.StrengthLabel, Detail: fmt.Sprintf(r.Detail, v, bm)})
		case v < bm-p.NarrativeMargin:
			weaknesses = append(weaknesses, models.NarrativeFactor{Label: r.WeaknessLabel, Detail: fmt.Sprintf(r.Detail, v, bm)})
		}
	}

	for _, r := range thresholdRules {
		v, ok := r.Value(in)
		if !ok {
			continue
		}
		var strong, weak bool
		if r.HigherIsBetter {
			strong = v >= r.StrengthAt
			weak = v < r.WeaknessAt
		} else {
			strong = v <= r.StrengthAt
			weak = v >= r.WeaknessAt
		}
		switch {
		case strong:
			strengths = append(strengths, models.NarrativeFactor{Label: r.StrengthLabel, Detail: fmt.Sprintf(r.Detail, v)})
		case weak && !r.NoWeakness:
			weaknesses = append(weaknesses, models.NarrativeFactor{Label: r.WeaknessLabel, Detail: fmt.Sprintf(r.Detail, v)})
		}
	}

	return strengths, weaknesses
}

// ════════════════════════════════════════════════════════════════════
// Opportunities & recommendations
// ════════════════════════════════════════════════════════════════════

// Narrative dimensions a rule can condition on.
const (
	DimSize          = "size"
	DimGrowth        = "growth"
	DimProfitability = "profitability"
	DimRecurring     = "recurring"
	DimConcentration = "concentration"
	DimGrowthData    = "growth_data"
	DimProfitData    = "profit_data"
	DimAssets        = "assets"
	DimExit          = "exit"
)

// Dimension values not taken from the classifier buckets.
const (
	LevelLow      = "low"
	LevelModerate = "moderate"
	LevelHigh     = "high"
	LevelUnknown  = "unknown"

	DataReported = "reported"
	DataMissing  = "missing"
	DataLoss     = "loss"

	AssetsListed = "listed"
	AssetsNone   = "none"

	ExitRetirement = "retirement"
	ExitRelocation = "relocation"
	ExitNewVenture = "new_venture"
	ExitHealth     = "health"
	ExitOther      = "other"
	ExitUnknown    = "unknown"
)

// RuleKind says which list a matching rule contributes to.
type RuleKind string

const (
	KindOpportunity    RuleKind = "opportunity"
	KindRecommendation RuleKind = "recommendation"
)

// NarrativeRule emits Message when every condition in When matches.
// A rule with no conditions always matches.
type NarrativeRule struct {
	Kind    RuleKind
	When    map[string]string
	Message string
}

var narrativeRules = []NarrativeRule{
	// Opportunities.
	{KindOpportunity, map[string]string{DimGrowth: string(models.GrowthHigh)},
		"Above-benchmark growth supports structuring part of the price as an earn-out tied to future performance."},
	{KindOpportunity, map[string]string{DimRecurring: LevelHigh},
		"A high share of recurring revenue appeals to financial buyers and supports a higher multiple."},
	{KindOpportunity, map[string]string{DimProfitability: string(models.ProfitabilityHigh), DimSize: string(models.SizeSmall)},
		"Strong margins at small scale make the business an attractive bolt-on for trade buyers."},
	{KindOpportunity, map[string]string{DimSize: string(models.SizeLarge)},
		"Scale brings private equity and larger strategic acquirers into the buyer pool."},
	{KindOpportunity, map[string]string{DimAssets: AssetsListed},
		"Key assets can be offered as security, helping buyers raise acquisition finance."},
	{KindOpportunity, map[string]string{DimConcentration: LevelLow},
		"A well-diversified customer base lowers buyer risk and widens the buyer pool."},
	{KindOpportunity, map[string]string{DimExit: ExitRetirement},
		"A planned retirement allows a structured handover period, which buyers value."},

	// Recommendations.
	{KindRecommendation, map[string]string{DimGrowth: string(models.GrowthHigh), DimRecurring: LevelLow},
		"Formalise recurring contracts or subscriptions to turn growth into predictable revenue."},
	{KindRecommendation, map[string]string{DimProfitability: string(models.ProfitabilityLow)},
		"Review pricing and the cost base to bring margins closer to the sector benchmark before marketing the business."},
	{KindRecommendation, map[string]string{DimProfitData: DataLoss},
		"Return the business to profit or prepare a turnaround plan; loss-making businesses are valued on revenue alone."},
	{KindRecommendation, map[string]string{DimGrowth: string(models.GrowthLow)},
		"Prepare a credible growth plan; buyers discount businesses with flat or declining revenue."},
	{KindRecommendation, map[string]string{DimConcentration: LevelHigh},
		"Reduce dependence on the largest customer, or secure a long-term contract with them, before going to market."},
	{KindRecommendation, map[string]string{DimGrowthData: DataMissing},
		"Provide at least two years of revenue history so growth can be evidenced."},
	{KindRecommendation, map[string]string{DimProfitData: DataMissing},
		"Provide profit figures so an earnings-based valuation can be included."},
	{KindRecommendation, map[string]string{DimRecurring: LevelUnknown},
		"Report the share of recurring revenue; it is a key driver of buyer appetite."},
	{KindRecommendation, map[string]string{DimExit: ExitRetirement},
		"Document processes and key relationships so the business can run without the owner."},
	{KindRecommendation, map[string]string{DimExit: ExitHealth},
		"Appoint a manager or deputy early so the sale does not depend on the owner's availability."},
	{KindRecommendation, nil,
		"Prepare three years of accounts and an organised data room before approaching buyers."},
}

// NarrativeRules returns the opportunity/recommendation table in evaluation order.
func NarrativeRules() []NarrativeRule {
	return append([]NarrativeRule(nil), narrativeRules...)
}

// Matches reports whether every condition of the rule holds in dims.
func (r NarrativeRule) Matches(dims map[string]string) bool {
	for k, v := range r.When {
		if dims[k] != v {
			return false
		}
	}
	return true
}

// MatchRules evaluates the rule table against dims. Output follows table
// order with duplicates removed.
func MatchRules(dims map[string]string) (opportunities, recommendations []string) {
	opportunities = []string{}
	recommendations = []string{}
	seen := make(map[string]bool)

	for _, r := range narrativeRules {
		if !r.Matches(dims) || seen[r.Message] {
			continue
		}
		seen[r.Message] = true
		switch r.Kind {
		case KindOpportunity:
			opportunities = append(opportunities, r.Message)
		case KindRecommendation:
			recommendations = append(recommendations, r.Message)
		}
	}
	return opportunities, recommendations
}

// Dimensions derives the rule dimensions for a request.
func Dimensions(in models.BusinessInputs, b models.Buckets) map[string]string {
	dims := map[string]string{
		DimSize:          string(b.Size),
		DimGrowth:        string(b.Growth),
		DimProfitability: string(b.Profitability),
		DimRecurring:     level(in.RecurringRevenuePct, 20, 60),
		DimConcentration: level(in.CustomerConcentration, 15, 30),
		DimGrowthData:    DataReported,
		DimProfitData:    DataReported,
		DimAssets:        AssetsNone,
		DimExit:          NormalizeExitReason(in.ExitReason),
	}

	if b.IsDefaulted(models.DimensionGrowth) {
		dims[DimGrowthData] = DataMissing
	}
	if profit, ok := in.EffectiveProfit(); !ok {
		dims[DimProfitData] = DataMissing
	} else if profit < 0 {
		dims[DimProfitData] = DataLoss
	}
	if len(in.KeyAssets) > 0 {
		dims[DimAssets] = AssetsListed
	}
	return dims
}

// NormalizeExitReason maps free text onto a small set of exit categories.
func NormalizeExitReason(reason string) string {
	r := strings.ToLower(strings.TrimSpace(reason))
	switch {
	case r == "":
		return ExitUnknown
	case strings.Contains(r, "retire"):
		return ExitRetirement
	case strings.Contains(r, "relocat"), strings.Contains(r, "moving"), strings.Contains(r, "emigrat"):
		return ExitRelocation
	case strings.Contains(r, "health"), strings.Contains(r, "illness"):
		return ExitHealth
	case strings.Contains(r, "venture"), strings.Contains(r, "new business"), strings.Contains(r, "opportunit"):
		return ExitNewVenture
	default:
		return ExitOther
	}
}

// level buckets an optional percentage: < lowBelow low, >= highFrom high.
func level(v *float64, lowBelow, highFrom float64) string {
	if v == nil {
		return LevelUnknown
	}
	switch {
	case *v < lowBelow:
		return LevelLow
	case *v >= highFrom:
		return LevelHigh
	default:
		return LevelModerate
	}
}

func tradingYears(in models.BusinessInputs) (float64, bool) {
	if in.YearEstablished <= 0 || in.AsOfYear <= 0 || in.AsOfYear < in.YearEstablished {
		return 0, false
	}
	return float64(in.AsOfYear - in.YearEstablished), true
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
