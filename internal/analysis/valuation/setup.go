package valuation

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/seenimoa/smevalue/internal/config"
)

// ParamsFromConfig maps the valuation config section onto engine parameters.
func ParamsFromConfig(cfg config.ValuationConfig) Params {
	return Params{
		SmallRevenueBelow:        cfg.SmallRevenueBelow,
		LargeRevenueAbove:        cfg.LargeRevenueAbove,
		GrowthTolerance:          cfg.GrowthTolerance,
		MarginTolerance:          cfg.MarginTolerance,
		MissingDataPenalty:       cfg.MissingDataPenalty,
		BaseSpread:               cfg.BaseSpread,
		DispersionWeight:         cfg.DispersionWeight,
		SingleMethodSpread:       cfg.SingleMethodSpread,
		MinSpread:                cfg.MinSpread,
		MaxSpread:                cfg.MaxSpread,
		MaxDispersion:            cfg.MaxDispersion,
		SingleMethodFactor:       cfg.SingleMethodFactor,
		FallbackConfidenceFactor: cfg.FallbackConfidenceFactor,
		NarrativeMargin:          cfg.NarrativeMargin,
	}
}

// NewEngineFromConfig builds an engine from configuration, loading the
// sector catalog file when one is configured.
func NewEngineFromConfig(cfg config.ValuationConfig, log zerolog.Logger) (*Engine, error) {
	catalog := BuiltinCatalog()
	if cfg.CatalogFile != "" {
		c, err := LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		catalog = c
		log.Info().Str("path", cfg.CatalogFile).Int("sectors", c.Len()).Msg("loaded sector catalog")
	}

	e, err := NewEngine(catalog, WithParams(ParamsFromConfig(cfg)), WithLogger(log))
	if err != nil {
		return nil, eris.Wrap(err, "configure valuation engine")
	}
	return e, nil
}
