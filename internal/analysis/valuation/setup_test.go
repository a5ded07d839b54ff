package valuation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/smevalue/internal/config"
)

func defaultValuationConfig() config.ValuationConfig {
	p := DefaultParams()
	return config.ValuationConfig{
		SmallRevenueBelow:        p.SmallRevenueBelow,
		LargeRevenueAbove:        p.LargeRevenueAbove,
		GrowthTolerance:          p.GrowthTolerance,
		MarginTolerance:          p.MarginTolerance,
		MissingDataPenalty:       p.MissingDataPenalty,
		BaseSpread:               p.BaseSpread,
		DispersionWeight:         p.DispersionWeight,
		SingleMethodSpread:       p.SingleMethodSpread,
		MinSpread:                p.MinSpread,
		MaxSpread:                p.MaxSpread,
		MaxDispersion:            p.MaxDispersion,
		SingleMethodFactor:       p.SingleMethodFactor,
		FallbackConfidenceFactor: p.FallbackConfidenceFactor,
		NarrativeMargin:          p.NarrativeMargin,
	}
}

func TestParamsFromConfigRoundTrip(t *testing.T) {
	assert.Equal(t, DefaultParams(), ParamsFromConfig(defaultValuationConfig()))
}

func TestNewEngineFromConfigBuiltin(t *testing.T) {
	e, err := NewEngineFromConfig(defaultValuationConfig(), zerolog.Nop())
	require.NoError(t, err)
	assert.Same(t, BuiltinCatalog(), e.Catalog())
}

func TestNewEngineFromConfigCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customCatalog), 0o644))

	cfg := defaultValuationConfig()
	cfg.CatalogFile = path
	e, err := NewEngineFromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, e.Catalog().Len())

	cfg.CatalogFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewEngineFromConfig(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewEngineFromConfigInvalidParams(t *testing.T) {
	cfg := defaultValuationConfig()
	cfg.MissingDataPenalty = 0
	_, err := NewEngineFromConfig(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_data_penalty")
}
