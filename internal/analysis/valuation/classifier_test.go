package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seenimoa/smevalue/pkg/models"
)

func TestClassifySize(t *testing.T) {
	p := DefaultParams()
	profile := DefaultProfile()

	tests := []struct {
		revenue float64
		want    models.SizeBucket
	}{
		{250_000, models.SizeSmall},
		{999_999, models.SizeSmall},
		{1_000_000, models.SizeMedium},
		{10_000_000, models.SizeMedium},
		{10_000_001, models.SizeLarge},
	}
	for _, tt := range tests {
		b := Classify(tt.revenue, models.Float(10), models.Float(10), profile, p)
		assert.Equal(t, tt.want, b.Size, "revenue %.0f", tt.revenue)
		assert.Empty(t, b.Defaulted)
	}
}

func TestClassifySectorThresholds(t *testing.T) {
	profile, _ := BuiltinCatalog().Resolve("software_saas")
	b := Classify(1_500_000, nil, nil, profile, DefaultParams())
	assert.Equal(t, models.SizeSmall, b.Size, "sector breakpoints override the global ones")

	b = Classify(15_000_000, nil, nil, profile, DefaultParams())
	assert.Equal(t, models.SizeMedium, b.Size)
}

func TestClassifyBenchmarkBands(t *testing.T) {
	p := DefaultParams()
	profile, _ := BuiltinCatalog().Resolve("technology") // margin 15, growth 15

	tests := []struct {
		name       string
		growth     float64
		margin     float64
		wantGrowth models.GrowthBucket
		wantProfit models.ProfitabilityBucket
	}{
		{"well below", 2, 4, models.GrowthLow, models.ProfitabilityLow},
		{"edge of band low", 10, 10, models.GrowthModerate, models.ProfitabilityAverage},
		{"at benchmark", 15, 15, models.GrowthModerate, models.ProfitabilityAverage},
		{"edge of band high", 20, 20, models.GrowthModerate, models.ProfitabilityAverage},
		{"above", 20.5, 25, models.GrowthHigh, models.ProfitabilityHigh},
		{"declining", -10, -5, models.GrowthLow, models.ProfitabilityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Classify(2_000_000, models.Float(tt.growth), models.Float(tt.margin), profile, p)
			assert.Equal(t, tt.wantGrowth, b.Growth)
			assert.Equal(t, tt.wantProfit, b.Profitability)
		})
	}
}

func TestClassifyDefaultsMissingData(t *testing.T) {
	b := Classify(0, nil, nil, DefaultProfile(), DefaultParams())
	assert.Equal(t, models.SizeMedium, b.Size)
	assert.Equal(t, models.GrowthModerate, b.Growth)
	assert.Equal(t, models.ProfitabilityAverage, b.Profitability)
	assert.ElementsMatch(t, []string{models.DimensionSize, models.DimensionGrowth, models.DimensionProfitability}, b.Defaulted)
	assert.True(t, b.IsDefaulted(models.DimensionGrowth))
}

func TestClassifyInputsProfitability(t *testing.T) {
	profile, _ := BuiltinCatalog().Resolve("technology")
	p := DefaultParams()

	tests := []struct {
		name      string
		in        models.BusinessInputs
		want      models.ProfitabilityBucket
		defaulted bool
	}{
		{"reported margin", models.BusinessInputs{AnnualRevenue: 1_000_000, ProfitMargin: models.Float(25)}, models.ProfitabilityHigh, false},
		{"profit only", models.BusinessInputs{AnnualRevenue: 1_000_000, Profit: models.Float(250_000)}, models.ProfitabilityAverage, true},
		{"margin wins over profit", models.BusinessInputs{AnnualRevenue: 1_000_000, Profit: models.Float(250_000), ProfitMargin: models.Float(2)}, models.ProfitabilityLow, false},
		{"loss", models.BusinessInputs{AnnualRevenue: 1_000_000, Profit: models.Float(-10_000)}, models.ProfitabilityLow, false},
		{"zero profit", models.BusinessInputs{AnnualRevenue: 1_000_000, Profit: models.Float(0)}, models.ProfitabilityLow, false},
		{"loss without revenue", models.BusinessInputs{Profit: models.Float(-10_000)}, models.ProfitabilityLow, false},
		{"nothing", models.BusinessInputs{AnnualRevenue: 1_000_000}, models.ProfitabilityAverage, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ClassifyInputs(tt.in, profile, p)
			assert.Equal(t, tt.want, b.Profitability)
			assert.Equal(t, tt.defaulted, b.IsDefaulted(models.DimensionProfitability))
			assert.True(t, b.IsDefaulted(models.DimensionGrowth))
		})
	}
}

func TestClassifyInputsProfitOnlyIgnoresRevenue(t *testing.T) {
	profile, _ := BuiltinCatalog().Resolve("technology")
	for _, rev := range []float64{300_000, 700_000, 760_000, 2_000_000} {
		b := ClassifyInputs(models.BusinessInputs{AnnualRevenue: rev, Profit: models.Float(150_000)}, profile, DefaultParams())
		assert.Equal(t, models.ProfitabilityAverage, b.Profitability, "revenue %.0f", rev)
	}
}

func TestClassifyIsPure(t *testing.T) {
	profile, _ := BuiltinCatalog().Resolve("retail")
	first := Classify(3_000_000, models.Float(2), nil, profile, DefaultParams())
	second := Classify(3_000_000, models.Float(2), nil, profile, DefaultParams())
	assert.Equal(t, first, second)
}
