package valuation

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/smevalue/pkg/models"
)

//go:embed sectors.yaml
var builtinSectors []byte

// DefaultSectorCode is the code reported when no catalog sector matched.
const DefaultSectorCode = "default"

// Adjustment multipliers must stay inside this band.
const (
	minAdjustment = 0.5
	maxAdjustment = 1.5
)

var defaultProfile = models.SectorProfile{
	Code:         DefaultSectorCode,
	Name:         "General Business",
	Category:     "General",
	BaseMultiple: models.BaseMultiple{Revenue: 1.0, EBITDA: 7.0},
	AdjustmentFactors: models.AdjustmentFactors{
		Size: map[models.SizeBucket]float64{
			models.SizeSmall: 1.0, models.SizeMedium: 1.0, models.SizeLarge: 1.0,
		},
		Growth: map[models.GrowthBucket]float64{
			models.GrowthLow: 1.0, models.GrowthModerate: 1.0, models.GrowthHigh: 1.0,
		},
		Profitability: map[models.ProfitabilityBucket]float64{
			models.ProfitabilityLow: 1.0, models.ProfitabilityAverage: 1.0, models.ProfitabilityHigh: 1.0,
		},
	},
	Benchmarks: models.Benchmarks{
		ProfitMarginPct:      10,
		GrowthRatePct:        10,
		CustomerRetentionPct: 75,
	},
}

// DefaultProfile returns the profile used for absent or unknown sectors.
func DefaultProfile() models.SectorProfile {
	return cloneProfile(defaultProfile)
}

// catalogFile is the on-disk schema of a sector table.
type catalogFile struct {
	Sectors []models.SectorProfile `yaml:"sectors"`
}

// Catalog maps sector codes to profiles. It is read-only after construction
// and safe for concurrent use.
type Catalog struct {
	profiles map[string]models.SectorProfile
	codes    []string
}

// NewCatalog validates the profiles and builds a catalog.
func NewCatalog(profiles []models.SectorProfile) (*Catalog, error) {
	c := &Catalog{profiles: make(map[string]models.SectorProfile, len(profiles))}

	for _, p := range profiles {
		p.Code = NormalizeSectorCode(p.Code)
		if p.Code == "" {
			return nil, fmt.Errorf("sector %q: code is required", p.Name)
		}
		if p.Code == DefaultSectorCode {
			return nil, fmt.Errorf("sector code %q is reserved", DefaultSectorCode)
		}
		if _, dup := c.profiles[p.Code]; dup {
			return nil, fmt.Errorf("sector %q: duplicate code", p.Code)
		}
		if err := ValidateProfile(p); err != nil {
			return nil, err
		}
		c.profiles[p.Code] = cloneProfile(p)
		c.codes = append(c.codes, p.Code)
	}

	sort.Strings(c.codes)
	return c, nil
}

// ParseCatalog parses a YAML sector table.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "parse sector catalog")
	}
	if len(f.Sectors) == 0 {
		return nil, eris.New("sector catalog has no sectors")
	}
	c, err := NewCatalog(f.Sectors)
	if err != nil {
		return nil, eris.Wrap(err, "invalid sector catalog")
	}
	return c, nil
}

// LoadCatalogFile reads a YAML sector table from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read sector catalog %s", path)
	}
	return ParseCatalog(data)
}

var (
	builtinOnce    sync.Once
	builtinCatalog *Catalog
)

// BuiltinCatalog returns the catalog compiled into the binary.
func BuiltinCatalog() *Catalog {
	builtinOnce.Do(func() {
		c, err := ParseCatalog(builtinSectors)
		if err != nil {
			panic(fmt.Sprintf("valuation: builtin sector catalog: %v", err))
		}
		builtinCatalog = c
	})
	return builtinCatalog
}

// Resolve returns the profile for code, or the default profile when the code
// is absent or unknown. The boolean is true when the default was used.
func (c *Catalog) Resolve(code string) (models.SectorProfile, bool) {
	if p, ok := c.Lookup(code); ok {
		return p, false
	}
	return DefaultProfile(), true
}

// Lookup returns the catalog profile for code without falling back.
func (c *Catalog) Lookup(code string) (models.SectorProfile, bool) {
	if c == nil {
		return models.SectorProfile{}, false
	}
	p, ok := c.profiles[NormalizeSectorCode(code)]
	if !ok {
		return models.SectorProfile{}, false
	}
	return cloneProfile(p), true
}

// Sectors returns all profiles sorted by code.
func (c *Catalog) Sectors() []models.SectorProfile {
	out := make([]models.SectorProfile, 0, len(c.codes))
	for _, code := range c.codes {
		out = append(out, cloneProfile(c.profiles[code]))
	}
	return out
}

// Len returns the number of sectors.
func (c *Catalog) Len() int {
	return len(c.codes)
}

// NormalizeSectorCode lower-cases a code and maps spaces, hyphens and
// ampersands to underscores: "Software-SaaS" → "software_saas".
func NormalizeSectorCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	code = strings.NewReplacer(" ", "_", "-", "_", "&", "_").Replace(code)
	for strings.Contains(code, "__") {
		code = strings.ReplaceAll(code, "__", "_")
	}
	return strings.Trim(code, "_")
}

// ValidateProfile checks the closed-table and range invariants of a profile.
func ValidateProfile(p models.SectorProfile) error {
	var errs []string

	if p.BaseMultiple.Revenue <= 0 {
		errs = append(errs, "base_multiple.revenue must be > 0")
	}
	if p.BaseMultiple.EBITDA <= 0 {
		errs = append(errs, "base_multiple.ebitda must be > 0")
	}

	adj := p.AdjustmentFactors
	if len(adj.Size) != len(models.AllSizeBuckets()) {
		errs = append(errs, fmt.Sprintf("size table must have exactly %d buckets", len(models.AllSizeBuckets())))
	}
	for _, b := range models.AllSizeBuckets() {
		errs = appendFactorErr(errs, "size", string(b), adj.Size[b], hasKey(adj.Size, b))
	}
	if len(adj.Growth) != len(models.AllGrowthBuckets()) {
		errs = append(errs, fmt.Sprintf("growth table must have exactly %d buckets", len(models.AllGrowthBuckets())))
	}
	for _, b := range models.AllGrowthBuckets() {
		errs = appendFactorErr(errs, "growth", string(b), adj.Growth[b], hasKey(adj.Growth, b))
	}
	if len(adj.Profitability) != len(models.AllProfitabilityBuckets()) {
		errs = append(errs, fmt.Sprintf("profitability table must have exactly %d buckets", len(models.AllProfitabilityBuckets())))
	}
	for _, b := range models.AllProfitabilityBuckets() {
		errs = appendFactorErr(errs, "profitability", string(b), adj.Profitability[b], hasKey(adj.Profitability, b))
	}

	// Revenue monotonicity depends on size multipliers never dropping.
	if adj.Size[models.SizeSmall] > adj.Size[models.SizeMedium] || adj.Size[models.SizeMedium] > adj.Size[models.SizeLarge] {
		errs = append(errs, "size multipliers must not decrease from small to large")
	}

	if p.Benchmarks.ProfitMarginPct < 0 || p.Benchmarks.CustomerRetentionPct < 0 || p.Benchmarks.CustomerRetentionPct > 100 {
		errs = append(errs, "benchmarks out of range")
	}

	if t := p.SizeThresholds; t != nil {
		if t.SmallBelow <= 0 || t.LargeAbove < t.SmallBelow {
			errs = append(errs, "size_thresholds must satisfy 0 < small_below <= large_above")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("sector %q: %s", p.Code, strings.Join(errs, "; "))
	}
	return nil
}

func hasKey[K comparable](m map[K]float64, k K) bool {
	_, ok := m[k]
	return ok
}

func appendFactorErr(errs []string, table, bucket string, factor float64, present bool) []string {
	if !present {
		return append(errs, fmt.Sprintf("%s table missing bucket %q", table, bucket))
	}
	if factor < minAdjustment || factor > maxAdjustment {
		return append(errs, fmt.Sprintf("%s.%s multiplier %.2f outside [%.1f, %.1f]", table, bucket, factor, minAdjustment, maxAdjustment))
	}
	return errs
}

func cloneProfile(p models.SectorProfile) models.SectorProfile {
	out := p
	out.AdjustmentFactors = models.AdjustmentFactors{
		Size:          make(map[models.SizeBucket]float64, len(p.AdjustmentFactors.Size)),
		Growth:        make(map[models.GrowthBucket]float64, len(p.AdjustmentFactors.Growth)),
		Profitability: make(map[models.ProfitabilityBucket]float64, len(p.AdjustmentFactors.Profitability)),
	}
	for k, v := range p.AdjustmentFactors.Size {
		out.AdjustmentFactors.Size[k] = v
	}
	for k, v := range p.AdjustmentFactors.Growth {
		out.AdjustmentFactors.Growth[k] = v
	}
	for k, v := range p.AdjustmentFactors.Profitability {
		out.AdjustmentFactors.Profitability[k] = v
	}
	if p.SizeThresholds != nil {
		t := *p.SizeThresholds
		out.SizeThresholds = &t
	}
	return out
}
