package valuation

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/smevalue/pkg/models"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(nil, opts...)
	require.NoError(t, err)
	return e
}

func methodNames(r *models.ValuationReport) []string {
	out := make([]string, 0, len(r.MethodBreakdown))
	for _, m := range r.MethodBreakdown {
		out = append(out, m.Method)
	}
	return out
}

func TestCalculateTechnologyScenario(t *testing.T) {
	e := newTestEngine(t)
	report, err := e.Calculate(models.BusinessInputs{
		SectorCode:    "technology",
		AnnualRevenue: 1_000_000,
		Profit:        models.Float(200_000),
	})
	require.NoError(t, err)

	assert.Equal(t, "technology", report.SectorCode)
	assert.False(t, report.UsedDefaultSector)
	assert.Equal(t, []string{MethodRevenueMultiple, MethodEarningsMultiple}, methodNames(report))
	assert.Empty(t, report.SkippedMethods)

	rev := report.MethodBreakdown[0].Estimate
	earn := report.MethodBreakdown[1].Estimate
	assert.InDelta(t, 1_500_000, rev, 1e-6)
	assert.InDelta(t, 1_600_000, earn, 1e-6)
	assert.GreaterOrEqual(t, report.Range.Typical, rev)
	assert.LessOrEqual(t, report.Range.Typical, earn)

	assert.Contains(t, labels(report.StrengthFactors), "Above-average profitability")
	assert.Contains(t, report.Recommendations, dataRoomAdvice)
}

func TestCalculateZeroProfitScenario(t *testing.T) {
	e := newTestEngine(t)
	single, err := e.Calculate(models.BusinessInputs{
		AnnualRevenue: 500_000,
		Profit:        models.Float(0),
	})
	require.NoError(t, err)

	require.Len(t, single.MethodBreakdown, 1)
	assert.Equal(t, MethodRevenueMultiple, single.MethodBreakdown[0].Method)
	require.Len(t, single.SkippedMethods, 1)
	assert.Equal(t, models.SkippedMethod{Method: MethodEarningsMultiple, Reason: "profit is zero"}, single.SkippedMethods[0])
	assert.Equal(t, single.MethodBreakdown[0].Estimate, single.Range.Typical)

	// Same revenue with a reported margin whose earnings estimate matches
	// the revenue one, so profitability is not defaulted on either side.
	both, err := e.Calculate(models.BusinessInputs{
		AnnualRevenue: 500_000,
		ProfitMargin:  models.Float(100 / 7.0),
	})
	require.NoError(t, err)
	require.Len(t, both.MethodBreakdown, 2)
	assert.Less(t, single.Range.Confidence, both.Range.Confidence)
	assert.Greater(t, single.Range.Spread, both.Range.Spread)
}

func TestCalculateUnknownSectorFallback(t *testing.T) {
	e := newTestEngine(t)
	cases := []models.BusinessInputs{
		{AnnualRevenue: 1_000_000, Profit: models.Float(200_000)},
		{AnnualRevenue: 3_000_000, Profit: models.Float(90_000), GrowthRate: models.Float(40)},
		{AnnualRevenue: 250_000},
		{AnnualRevenue: 12_000_000, ProfitMargin: models.Float(11), GrowthRate: models.Float(2), RecurringRevenuePct: models.Float(70)},
	}
	for _, sector := range []string{"technology", "retail", "software_saas", "hospitality"} {
		for _, in := range cases {
			known := in
			known.SectorCode = sector
			unknown := in
			unknown.SectorCode = "quantum-farming"

			kr, err := e.Calculate(known)
			require.NoError(t, err)
			ur, err := e.Calculate(unknown)
			require.NoError(t, err)

			assert.True(t, ur.UsedDefaultSector)
			assert.Equal(t, DefaultSectorCode, ur.SectorCode)
			assert.LessOrEqual(t, ur.Range.Confidence, kr.Range.Confidence, "sector %s revenue %.0f", sector, in.AnnualRevenue)
		}
	}

	ur, err := e.Calculate(models.BusinessInputs{SectorCode: "nope", AnnualRevenue: 1_000_000, Profit: models.Float(100_000)})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ur.MethodBreakdown[0].AppliedMultiplier, 1e-12)
	assert.InDelta(t, 7.0, ur.MethodBreakdown[1].AppliedMultiplier, 1e-12)
}

func TestCalculateMissingDataLowersConfidence(t *testing.T) {
	e := newTestEngine(t)
	full := models.BusinessInputs{
		SectorCode:    "retail",
		AnnualRevenue: 2_000_000,
		ProfitMargin:  models.Float(6),
		GrowthRate:    models.Float(5),
	}

	noGrowthOrMargin := full
	noGrowthOrMargin.ProfitMargin = nil
	noGrowthOrMargin.GrowthRate = nil

	noGrowth := full
	noGrowth.GrowthRate = nil

	fr, err := e.Calculate(full)
	require.NoError(t, err)
	for name, in := range map[string]models.BusinessInputs{"growth and margin": noGrowthOrMargin, "growth": noGrowth} {
		r, err := e.Calculate(in)
		require.NoError(t, err)
		assert.Less(t, r.Range.Confidence, fr.Range.Confidence, "missing %s", name)
		assert.True(t, r.Buckets.IsDefaulted(models.DimensionGrowth))
	}
}

func TestCalculateRangeOrdering(t *testing.T) {
	e := newTestEngine(t)
	revenues := []float64{1, 50_000, 999_999, 4_000_000, 80_000_000}
	margins := []*float64{nil, models.Float(-30), models.Float(0.5), models.Float(12), models.Float(60)}
	growths := []*float64{nil, models.Float(-50), models.Float(8), models.Float(300)}
	sectors := []string{"", "construction", "software_saas", "healthcare"}

	for _, sector := range sectors {
		for _, rev := range revenues {
			for _, m := range margins {
				for _, g := range growths {
					r, err := e.Calculate(models.BusinessInputs{SectorCode: sector, AnnualRevenue: rev, ProfitMargin: m, GrowthRate: g})
					require.NoError(t, err)
					rng := r.Range
					assert.LessOrEqual(t, rng.Minimum, rng.Typical)
					assert.LessOrEqual(t, rng.Typical, rng.Maximum)
					assert.GreaterOrEqual(t, rng.Confidence, 0.0)
					assert.LessOrEqual(t, rng.Confidence, 100.0)
					assert.GreaterOrEqual(t, rng.Spread, e.Params().MinSpread)
					assert.LessOrEqual(t, rng.Spread, e.Params().MaxSpread)
				}
			}
		}
	}
}

func TestCalculateMonotonicInRevenue(t *testing.T) {
	e := newTestEngine(t)
	revenues := []float64{50_000, 400_000, 999_999, 1_000_000, 5_000_000, 10_000_000, 10_000_001, 40_000_000}

	for _, sector := range []string{"manufacturing", "software_saas", "unknown"} {
		prev := 0.0
		for _, rev := range revenues {
			r, err := e.Calculate(models.BusinessInputs{
				SectorCode:    sector,
				AnnualRevenue: rev,
				ProfitMargin:  models.Float(12),
				GrowthRate:    models.Float(8),
			})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, r.Range.Typical, prev, "sector %s revenue %.0f", sector, rev)
			prev = r.Range.Typical
		}
	}
}

func TestCalculateMonotonicInRevenueWithProfitHeld(t *testing.T) {
	e := newTestEngine(t)
	revenues := []float64{200_000, 700_000, 760_000, 999_999, 1_000_000, 3_000_000, 10_000_001, 40_000_000}

	for _, sector := range []string{"technology", "manufacturing", "unknown"} {
		for _, profit := range []float64{-20_000, 0, 150_000} {
			prevTypical, prevRevenueEstimate := 0.0, 0.0
			for _, rev := range revenues {
				r, err := e.Calculate(models.BusinessInputs{
					SectorCode:    sector,
					AnnualRevenue: rev,
					Profit:        models.Float(profit),
					GrowthRate:    models.Float(15),
				})
				require.NoError(t, err)
				require.Equal(t, MethodRevenueMultiple, r.MethodBreakdown[0].Method)

				est := r.MethodBreakdown[0].Estimate
				assert.GreaterOrEqual(t, r.Range.Typical, prevTypical, "sector %s profit %.0f revenue %.0f", sector, profit, rev)
				assert.GreaterOrEqual(t, est, prevRevenueEstimate, "sector %s profit %.0f revenue %.0f", sector, profit, rev)
				prevTypical, prevRevenueEstimate = r.Range.Typical, est
			}
		}
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	e := newTestEngine(t)
	in := models.BusinessInputs{
		SectorCode:            "professional_services",
		AnnualRevenue:         750_000,
		Profit:                models.Float(140_000),
		GrowthRate:            models.Float(12),
		CustomerConcentration: models.Float(22),
		RecurringRevenuePct:   models.Float(65),
		YearEstablished:       2004,
		EmployeeCount:         9,
		KeyAssets:             []string{"client list", "brand"},
		ExitReason:            "retirement",
		AsOfYear:              2024,
	}

	first, err := e.Calculate(in)
	require.NoError(t, err)
	second, err := e.Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculateConcurrentUse(t *testing.T) {
	e := newTestEngine(t)
	in := models.BusinessInputs{SectorCode: "ecommerce", AnnualRevenue: 3_000_000, Profit: models.Float(240_000)}
	want, err := e.Calculate(in)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*models.ValuationReport, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = e.Calculate(in)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, want, r)
	}
}

func TestCalculateInsufficientData(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		name string
		in   models.BusinessInputs
	}{
		{"nothing reported", models.BusinessInputs{SectorCode: "retail"}},
		{"loss without revenue", models.BusinessInputs{Profit: models.Float(-10_000)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := e.Calculate(tt.in)
			assert.Nil(t, report)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInsufficientData))

			var ide *InsufficientDataError
			require.ErrorAs(t, err, &ide)
			assert.Len(t, ide.Skipped, 2)
			assert.Contains(t, err.Error(), "annual revenue not reported")
		})
	}
}

func TestCalculateLossMakingBusiness(t *testing.T) {
	e := newTestEngine(t)
	r, err := e.Calculate(models.BusinessInputs{SectorCode: "hospitality", AnnualRevenue: 800_000, Profit: models.Float(-40_000)})
	require.NoError(t, err)

	assert.Equal(t, []string{MethodRevenueMultiple}, methodNames(r))
	assert.Equal(t, "business is loss-making", r.SkippedMethods[0].Reason)
	assert.Equal(t, models.ProfitabilityLow, r.Buckets.Profitability)
	assert.Contains(t, labels(r.WeaknessFactors), "Below-average profitability")
}

type fixedMethod struct {
	name     string
	estimate float64
}

func (m fixedMethod) Name() string { return m.name }

func (m fixedMethod) Estimate(_ models.BusinessInputs, _ models.SectorProfile, b models.Buckets, p Params) (models.ValuationMethodResult, string, bool) {
	return models.ValuationMethodResult{Method: m.name, Estimate: m.estimate, AppliedMultiplier: 1, ReliabilityWeight: ReliabilityWeight(b, p)}, "", true
}

func TestEngineWithMethods(t *testing.T) {
	e := newTestEngine(t, WithMethods(fixedMethod{"asset_based", 300_000}, RevenueMultiple{}))
	r, err := e.Calculate(models.BusinessInputs{SectorCode: "retail", AnnualRevenue: 600_000})
	require.NoError(t, err)
	assert.Equal(t, []string{"asset_based", MethodRevenueMultiple}, methodNames(r))
}

func TestNewEngineRejectsInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.FallbackConfidenceFactor = 0.9
	_, err := NewEngine(nil, WithParams(p))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback_confidence_factor")

	p = DefaultParams()
	p.MinSpread = 0.5
	_, err = NewEngine(nil, WithParams(p))
	assert.Error(t, err)
}

func TestEngineLogsCalculation(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	e := newTestEngine(t, WithLogger(log))

	_, err := e.Calculate(models.BusinessInputs{AnnualRevenue: 100_000})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"component":"valuation"`)
	assert.Contains(t, buf.String(), "valuation: computed")
}

func TestCompleteness(t *testing.T) {
	assert.Equal(t, 0.0, Completeness(models.BusinessInputs{}))
	assert.Equal(t, 1.0, Completeness(models.BusinessInputs{
		AnnualRevenue:         1,
		ProfitMargin:          models.Float(1),
		GrowthRate:            models.Float(1),
		RecurringRevenuePct:   models.Float(1),
		CustomerConcentration: models.Float(1),
		YearEstablished:       2000,
		EmployeeCount:         3,
		KeyAssets:             []string{"van"},
	}))
	assert.Equal(t, 0.25, Completeness(models.BusinessInputs{AnnualRevenue: 1, Profit: models.Float(0)}))
}
