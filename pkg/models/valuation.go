package models

import "encoding/json"

// SizeBucket classifies a business by annual revenue.
type SizeBucket string

const (
	SizeSmall  SizeBucket = "small"
	SizeMedium SizeBucket = "medium"
	SizeLarge  SizeBucket = "large"
)

// GrowthBucket classifies revenue growth relative to the sector benchmark.
type GrowthBucket string

const (
	GrowthLow      GrowthBucket = "low"
	GrowthModerate GrowthBucket = "moderate"
	GrowthHigh     GrowthBucket = "high"
)

// ProfitabilityBucket classifies profit margin relative to the sector benchmark.
type ProfitabilityBucket string

const (
	ProfitabilityLow     ProfitabilityBucket = "low"
	ProfitabilityAverage ProfitabilityBucket = "average"
	ProfitabilityHigh    ProfitabilityBucket = "high"
)

// Bucket dimensions, used as adjustment names and in Buckets.Defaulted.
const (
	DimensionSize          = "size"
	DimensionGrowth        = "growth"
	DimensionProfitability = "profitability"
)

// AllSizeBuckets returns every size bucket the classifier can produce.
func AllSizeBuckets() []SizeBucket {
	return []SizeBucket{SizeSmall, SizeMedium, SizeLarge}
}

// AllGrowthBuckets returns every growth bucket the classifier can produce.
func AllGrowthBuckets() []GrowthBucket {
	return []GrowthBucket{GrowthLow, GrowthModerate, GrowthHigh}
}

// AllProfitabilityBuckets returns every profitability bucket the classifier can produce.
func AllProfitabilityBuckets() []ProfitabilityBucket {
	return []ProfitabilityBucket{ProfitabilityLow, ProfitabilityAverage, ProfitabilityHigh}
}

// BusinessInputs is the validated record the valuation engine works on.
// Pointer fields are optional; a nil pointer means "not reported".
type BusinessInputs struct {
	SectorCode            string   `json:"sector_code" yaml:"sector_code"`
	AnnualRevenue         float64  `json:"annual_revenue" yaml:"annual_revenue"` // 0 = not reported
	Profit                *float64 `json:"profit,omitempty" yaml:"profit,omitempty"`
	ProfitMargin          *float64 `json:"profit_margin,omitempty" yaml:"profit_margin,omitempty"` // percent
	YearEstablished       int      `json:"year_established,omitempty" yaml:"year_established,omitempty"`
	EmployeeCount         int      `json:"employee_count,omitempty" yaml:"employee_count,omitempty"`
	GrowthRate            *float64 `json:"growth_rate,omitempty" yaml:"growth_rate,omitempty"`                       // percent YoY
	CustomerConcentration *float64 `json:"customer_concentration,omitempty" yaml:"customer_concentration,omitempty"` // % of revenue from largest customer
	RecurringRevenuePct   *float64 `json:"recurring_revenue_pct,omitempty" yaml:"recurring_revenue_pct,omitempty"`
	KeyAssets             []string `json:"key_assets,omitempty" yaml:"key_assets,omitempty"`
	ExitReason            string   `json:"exit_reason,omitempty" yaml:"exit_reason,omitempty"`
	AsOfYear              int      `json:"as_of_year,omitempty" yaml:"as_of_year,omitempty"` // supplied by the caller
}

// EffectiveProfit returns the reported profit, or derives it from revenue
// and margin when only the margin was reported.
func (in BusinessInputs) EffectiveProfit() (float64, bool) {
	if in.Profit != nil {
		return *in.Profit, true
	}
	if in.ProfitMargin != nil && in.AnnualRevenue > 0 {
		return in.AnnualRevenue * *in.ProfitMargin / 100, true
	}
	return 0, false
}

// EffectiveMargin returns the reported margin (percent), or derives it from
// profit and revenue when only the profit was reported.
func (in BusinessInputs) EffectiveMargin() (float64, bool) {
	if in.ProfitMargin != nil {
		return *in.ProfitMargin, true
	}
	if in.Profit != nil && in.AnnualRevenue > 0 {
		return *in.Profit / in.AnnualRevenue * 100, true
	}
	return 0, false
}

// Float returns a pointer to v, for filling optional fields.
func Float(v float64) *float64 {
	return &v
}

// BaseMultiple holds a sector's headline valuation multiples.
type BaseMultiple struct {
	Revenue float64 `json:"revenue" yaml:"revenue"`
	EBITDA  float64 `json:"ebitda" yaml:"ebitda"`
}

// AdjustmentFactors holds the three closed bucket → multiplier tables.
type AdjustmentFactors struct {
	Size          map[SizeBucket]float64          `json:"size" yaml:"size"`
	Growth        map[GrowthBucket]float64        `json:"growth" yaml:"growth"`
	Profitability map[ProfitabilityBucket]float64 `json:"profitability" yaml:"profitability"`
}

// Benchmarks are the sector averages the narrative compares against.
type Benchmarks struct {
	ProfitMarginPct      float64 `json:"profit_margin_pct" yaml:"profit_margin_pct"`
	GrowthRatePct        float64 `json:"growth_rate_pct" yaml:"growth_rate_pct"`
	CustomerRetentionPct float64 `json:"customer_retention_pct" yaml:"customer_retention_pct"`
}

// SizeThresholds overrides the global revenue breakpoints for one sector.
type SizeThresholds struct {
	SmallBelow float64 `json:"small_below" yaml:"small_below"`
	LargeAbove float64 `json:"large_above" yaml:"large_above"`
}

// SectorProfile is one entry of the sector catalog.
type SectorProfile struct {
	Code              string            `json:"code" yaml:"code"`
	Name              string            `json:"name" yaml:"name"`
	Category          string            `json:"category" yaml:"category"`
	BaseMultiple      BaseMultiple      `json:"base_multiple" yaml:"base_multiple"`
	AdjustmentFactors AdjustmentFactors `json:"adjustment_factors" yaml:"adjustment_factors"`
	Benchmarks        Benchmarks        `json:"benchmarks" yaml:"benchmarks"`
	SizeThresholds    *SizeThresholds   `json:"size_thresholds,omitempty" yaml:"size_thresholds,omitempty"`
}

// Buckets is the classifier output for one request.
type Buckets struct {
	Size          SizeBucket          `json:"size"`
	Growth        GrowthBucket        `json:"growth"`
	Profitability ProfitabilityBucket `json:"profitability"`
	// Defaulted lists the dimensions filled by a missing-data default.
	Defaulted []string `json:"defaulted,omitempty"`
}

// IsDefaulted reports whether the dimension was filled by a default.
func (b Buckets) IsDefaulted(dimension string) bool {
	for _, d := range b.Defaulted {
		if d == dimension {
			return true
		}
	}
	return false
}

// AppliedAdjustment records one multiplier applied by a method.
type AppliedAdjustment struct {
	Name   string  `json:"name"`
	Bucket string  `json:"bucket"`
	Factor float64 `json:"factor"`
}

// ValuationMethodResult is the output of one valuation method.
type ValuationMethodResult struct {
	Method            string              `json:"method"`
	Estimate          float64             `json:"estimate"`
	AppliedMultiplier float64             `json:"applied_multiplier"` // base multiple × adjustments
	ReliabilityWeight float64             `json:"reliability_weight"` // 0-1
	Adjustments       []AppliedAdjustment `json:"adjustments"`
}

// SkippedMethod records a method that produced no estimate and why.
type SkippedMethod struct {
	Method string `json:"method"`
	Reason string `json:"reason"`
}

// ValuationRange is the blended result. Minimum <= Typical <= Maximum.
type ValuationRange struct {
	Minimum    float64 `json:"minimum"`
	Typical    float64 `json:"typical"`
	Maximum    float64 `json:"maximum"`
	Confidence float64 `json:"confidence"` // 0-100
	Spread     float64 `json:"spread"`
}

// NarrativeFactor is a labelled strength or weakness.
type NarrativeFactor struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

// ValuationReport is the full engine output for one request.
type ValuationReport struct {
	SectorCode        string                  `json:"sector_code"`
	SectorName        string                  `json:"sector_name"`
	UsedDefaultSector bool                    `json:"used_default_sector"`
	Buckets           Buckets                 `json:"buckets"`
	Range             ValuationRange          `json:"range"`
	MethodBreakdown   []ValuationMethodResult `json:"method_breakdown"`
	SkippedMethods    []SkippedMethod         `json:"skipped_methods,omitempty"`
	StrengthFactors   []NarrativeFactor       `json:"strength_factors"`
	WeaknessFactors   []NarrativeFactor       `json:"weakness_factors"`
	Opportunities     []string                `json:"opportunities"`
	Recommendations   []string                `json:"recommendations"`
}

// ToMap converts the report to a plain key-value document for storage or
// transport. Uses a JSON round trip so nested values become maps and slices.
func (r *ValuationReport) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return result, nil
}
