package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/smevalue/pkg/models"
)

func result(estimate, weight float64) models.ValuationMethodResult {
	return models.ValuationMethodResult{Method: "m", Estimate: estimate, ReliabilityWeight: weight}
}

func TestAggregateTwoAgreeingMethods(t *testing.T) {
	p := DefaultParams()
	rng, err := Aggregate(AggregateInput{
		Results:      []models.ValuationMethodResult{result(1_000_000, 1), result(1_000_000, 1)},
		Completeness: 1,
	}, p)
	require.NoError(t, err)

	assert.InDelta(t, 1_000_000, rng.Typical, 1e-6)
	assert.InDelta(t, 0.15, rng.Spread, 1e-12)
	assert.InDelta(t, 850_000, rng.Minimum, 1e-6)
	assert.InDelta(t, 1_150_000, rng.Maximum, 1e-6)
	assert.Equal(t, 100.0, rng.Confidence)
}

func TestAggregateWeightedMean(t *testing.T) {
	rng, err := Aggregate(AggregateInput{
		Results:      []models.ValuationMethodResult{result(1_000_000, 1), result(2_000_000, 0.25)},
		Completeness: 1,
	}, DefaultParams())
	require.NoError(t, err)
	assert.InDelta(t, 1_200_000, rng.Typical, 1e-6)
}

func TestAggregateZeroWeightsFallsBackToMean(t *testing.T) {
	rng, err := Aggregate(AggregateInput{
		Results: []models.ValuationMethodResult{result(100, 0), result(300, 0)},
	}, DefaultParams())
	require.NoError(t, err)
	assert.InDelta(t, 200, rng.Typical, 1e-9)
	assert.False(t, math.IsNaN(rng.Confidence))
}

func TestAggregateSingleMethod(t *testing.T) {
	p := DefaultParams()
	rng, err := Aggregate(AggregateInput{
		Results:      []models.ValuationMethodResult{result(500_000, 1)},
		Completeness: 1,
	}, p)
	require.NoError(t, err)

	assert.InDelta(t, 500_000, rng.Typical, 1e-9)
	assert.InDelta(t, 0.20, rng.Spread, 1e-12)
	assert.Equal(t, 80.0, rng.Confidence)
}

func TestAggregateSpreadIsClamped(t *testing.T) {
	rng, err := Aggregate(AggregateInput{
		Results:      []models.ValuationMethodResult{result(100_000, 1), result(10_000_000, 1)},
		Completeness: 1,
	}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 0.40, rng.Spread)
	assert.InDelta(t, 60.0, rng.Confidence, 1e-9, "agreement bottoms out at 1 - max dispersion")
}

func TestAggregateOrderingAndBounds(t *testing.T) {
	inputs := []AggregateInput{
		{Results: []models.ValuationMethodResult{result(1, 1)}},
		{Results: []models.ValuationMethodResult{result(1e9, 0.125), result(3e6, 1)}, Completeness: 0.5, UsedDefaultSector: true},
		{Results: []models.ValuationMethodResult{result(42_000, 0.5), result(41_000, 0.5)}, Completeness: 0.25},
	}
	for _, in := range inputs {
		rng, err := Aggregate(in, DefaultParams())
		require.NoError(t, err)
		assert.LessOrEqual(t, rng.Minimum, rng.Typical)
		assert.LessOrEqual(t, rng.Typical, rng.Maximum)
		assert.GreaterOrEqual(t, rng.Minimum, 0.0)
		assert.GreaterOrEqual(t, rng.Confidence, 0.0)
		assert.LessOrEqual(t, rng.Confidence, 100.0)
	}
}

func TestAggregateConfidencePenalties(t *testing.T) {
	p := DefaultParams()
	base := AggregateInput{
		Results:      []models.ValuationMethodResult{result(1_000_000, 1), result(1_100_000, 1)},
		Completeness: 1,
	}
	full, err := Aggregate(base, p)
	require.NoError(t, err)

	fallback := base
	fallback.UsedDefaultSector = true
	fb, err := Aggregate(fallback, p)
	require.NoError(t, err)
	assert.Less(t, fb.Confidence, full.Confidence)

	sparse := base
	sparse.Completeness = 0.5
	sp, err := Aggregate(sparse, p)
	require.NoError(t, err)
	assert.Less(t, sp.Confidence, full.Confidence)

	weak := AggregateInput{
		Results:      []models.ValuationMethodResult{result(1_000_000, 0.5), result(1_100_000, 0.5)},
		Completeness: 1,
	}
	wk, err := Aggregate(weak, p)
	require.NoError(t, err)
	assert.Less(t, wk.Confidence, full.Confidence)
}

func TestAggregateNoResults(t *testing.T) {
	_, err := Aggregate(AggregateInput{}, DefaultParams())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestDispersion(t *testing.T) {
	assert.Equal(t, 0.0, dispersion([]models.ValuationMethodResult{result(10, 1)}))
	assert.Equal(t, 0.0, dispersion([]models.ValuationMethodResult{result(5, 1), result(5, 1)}))
	assert.InDelta(t, 0.5, dispersion([]models.ValuationMethodResult{result(50, 1), result(150, 1)}), 1e-12)
}
