package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/seenimoa/smevalue/pkg/models"
	"github.com/seenimoa/smevalue/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Report Generator: Orchestrates chart + template rendering
// ════════════════════════════════════════════════════════════════════

// ReportFormat specifies the output format.
type ReportFormat string

const (
	FormatHTML     ReportFormat = "html"
	FormatMarkdown ReportFormat = "markdown"
	FormatText     ReportFormat = "text"
)

// ParseFormat maps a user-supplied format name to a ReportFormat.
func ParseFormat(s string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, markdown or html)", s)
	}
}

// ReportSection identifies a section to include/exclude.
type ReportSection string

const (
	SectionSummary         ReportSection = "summary"
	SectionProfile         ReportSection = "profile"
	SectionMethods         ReportSection = "methods"
	SectionFactors         ReportSection = "factors"
	SectionOpportunities   ReportSection = "opportunities"
	SectionRecommendations ReportSection = "recommendations"
)

// AllSections returns all report sections in display order.
func AllSections() []ReportSection {
	return []ReportSection{
		SectionSummary,
		SectionProfile,
		SectionMethods,
		SectionFactors,
		SectionOpportunities,
		SectionRecommendations,
	}
}

// ReportConfig controls report generation behaviour.
type ReportConfig struct {
	Sections    []ReportSection // sections to include (default: all)
	Title       string          // custom report title (optional)
	Author      string          // author name (optional, default: "smevalue")
	GeneratedAt time.Time       // report timestamp (default: now)
	ChartCfg    ChartConfig     // chart rendering config
}

// DefaultReportConfig returns sensible defaults.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Sections: AllSections(),
		Author:   "smevalue",
		ChartCfg: DefaultChartConfig(),
	}
}

// hasSection returns true if the section is included in the config.
func (rc ReportConfig) hasSection(s ReportSection) bool {
	for _, sec := range rc.Sections {
		if sec == s {
			return true
		}
	}
	return false
}

// ════════════════════════════════════════════════════════════════════
// Report Data: Flattened for rendering
// ════════════════════════════════════════════════════════════════════

// ReportData is the flattened model shared by every renderer.
type ReportData struct {
	// Header
	Title       string
	Author      string
	GeneratedAt string

	// Summary
	SectorName        string
	SectorCode        string
	UsedDefaultSector bool
	Minimum           string
	Typical           string
	Maximum           string
	Spread            string
	Confidence        float64
	ConfidenceLabel   string
	Buckets           []Row

	// Body
	Profile         []Row
	Methods         []MethodRow
	Skipped         []Row
	Strengths       []Row
	Weaknesses      []Row
	Opportunities   []string
	Recommendations []string

	// Section visibility
	ShowSummary         bool
	ShowProfile         bool
	ShowMethods         bool
	ShowFactors         bool
	ShowOpportunities   bool
	ShowRecommendations bool

	// HTML only
	GaugeSVG  template.HTML
	RangeSVG  template.HTML
	MethodSVG template.HTML
	BodyHTML  template.HTML
}

// Row is a label/value pair.
type Row struct {
	Label string
	Value string
}

// MethodRow is one line of the method breakdown table.
type MethodRow struct {
	Name        string
	Estimate    string
	Multiple    string
	Weight      string
	Adjustments string
}

// ════════════════════════════════════════════════════════════════════
// Generate Report
// ════════════════════════════════════════════════════════════════════

// Generate renders the report in the requested format.
func Generate(r *models.ValuationReport, in *models.BusinessInputs, format ReportFormat, cfg ReportConfig) (string, error) {
	switch format {
	case FormatHTML:
		return GenerateHTML(r, in, cfg)
	case FormatMarkdown:
		return GenerateMarkdown(r, in, cfg)
	case FormatText:
		return GenerateText(r, in, cfg)
	default:
		return "", fmt.Errorf("unsupported report format %q", format)
	}
}

// GenerateMarkdown generates a Markdown valuation report. Inputs are
// optional; without them the business profile section is omitted.
func GenerateMarkdown(r *models.ValuationReport, in *models.BusinessInputs, cfg ReportConfig) (string, error) {
	if r == nil {
		return "", fmt.Errorf("report is nil")
	}
	d := buildReportData(r, in, cfg)
	return "# " + mdEscape(d.Title) + "\n\n" + renderMarkdownBody(d), nil
}

// GenerateHTML generates a standalone HTML valuation report. The body is the
// Markdown report converted with goldmark; charts are inline SVG.
func GenerateHTML(r *models.ValuationReport, in *models.BusinessInputs, cfg ReportConfig) (string, error) {
	if r == nil {
		return "", fmt.Errorf("report is nil")
	}

	d := buildReportData(r, in, cfg)

	body, err := markdownToHTML(renderMarkdownBody(d))
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	d.BodyHTML = template.HTML(body)

	if d.ShowSummary {
		d.GaugeSVG = template.HTML(GaugeChart(r.Range.Confidence, "Confidence", 220))
		d.RangeSVG = template.HTML(RangeChart(r.Range.Minimum, r.Range.Typical, r.Range.Maximum,
			[3]string{d.Minimum, d.Typical, d.Maximum}, chartCfg(cfg)))
	}
	if d.ShowMethods && len(r.MethodBreakdown) > 0 {
		d.MethodSVG = template.HTML(methodChart(r, chartCfg(cfg)))
	}

	tmpl, err := template.New("report").Parse(ReportTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

// GenerateText generates a plain-text valuation report (terminal / CLI friendly).
func GenerateText(r *models.ValuationReport, in *models.BusinessInputs, cfg ReportConfig) (string, error) {
	if r == nil {
		return "", fmt.Errorf("report is nil")
	}

	d := buildReportData(r, in, cfg)
	return renderTextReport(d), nil
}

// markdownToHTML converts Markdown to HTML with GitHub-style tables. Raw
// HTML in the source is not passed through.
func markdownToHTML(src string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ════════════════════════════════════════════════════════════════════
// Internal: Build report data
// ════════════════════════════════════════════════════════════════════

func buildReportData(r *models.ValuationReport, in *models.BusinessInputs, cfg ReportConfig) ReportData {
	sections := cfg.Sections
	if len(sections) == 0 {
		sections = AllSections()
	}
	cfg.Sections = sections

	title := cfg.Title
	if title == "" {
		title = "Business Valuation Report: " + r.SectorName
	}
	author := cfg.Author
	if author == "" {
		author = "smevalue"
	}
	generated := cfg.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	d := ReportData{
		Title:             title,
		Author:            author,
		GeneratedAt:       utils.FormatDateTimeUK(generated),
		SectorName:        r.SectorName,
		SectorCode:        r.SectorCode,
		UsedDefaultSector: r.UsedDefaultSector,
		Minimum:           utils.FormatGBPCompact(r.Range.Minimum),
		Typical:           utils.FormatGBPCompact(r.Range.Typical),
		Maximum:           utils.FormatGBPCompact(r.Range.Maximum),
		Spread:            fmt.Sprintf("±%.0f%%", r.Range.Spread*100),
		Confidence:        r.Range.Confidence,
		ConfidenceLabel:   ConfidenceLabel(r.Range.Confidence),

		Opportunities:   r.Opportunities,
		Recommendations: r.Recommendations,

		ShowSummary:         cfg.hasSection(SectionSummary),
		ShowProfile:         cfg.hasSection(SectionProfile) && in != nil,
		ShowMethods:         cfg.hasSection(SectionMethods),
		ShowFactors:         cfg.hasSection(SectionFactors),
		ShowOpportunities:   cfg.hasSection(SectionOpportunities),
		ShowRecommendations: cfg.hasSection(SectionRecommendations),
	}

	d.Buckets = []Row{
		{"Size", bucketLabel(string(r.Buckets.Size), r.Buckets.IsDefaulted(models.DimensionSize))},
		{"Growth", bucketLabel(string(r.Buckets.Growth), r.Buckets.IsDefaulted(models.DimensionGrowth))},
		{"Profitability", bucketLabel(string(r.Buckets.Profitability), r.Buckets.IsDefaulted(models.DimensionProfitability))},
	}

	if in != nil {
		d.Profile = buildProfileRows(*in)
	}

	for _, m := range r.MethodBreakdown {
		adj := make([]string, 0, len(m.Adjustments))
		for _, a := range m.Adjustments {
			adj = append(adj, fmt.Sprintf("%s %s ×%.2f", a.Name, a.Bucket, a.Factor))
		}
		d.Methods = append(d.Methods, MethodRow{
			Name:        MethodLabel(m.Method),
			Estimate:    utils.FormatGBP(m.Estimate),
			Multiple:    utils.FormatMultiple(m.AppliedMultiplier),
			Weight:      fmt.Sprintf("%.2f", m.ReliabilityWeight),
			Adjustments: strings.Join(adj, ", "),
		})
	}
	for _, s := range r.SkippedMethods {
		d.Skipped = append(d.Skipped, Row{MethodLabel(s.Method), s.Reason})
	}
	for _, f := range r.StrengthFactors {
		d.Strengths = append(d.Strengths, Row{f.Label, f.Detail})
	}
	for _, f := range r.WeaknessFactors {
		d.Weaknesses = append(d.Weaknesses, Row{f.Label, f.Detail})
	}

	return d
}

func buildProfileRows(in models.BusinessInputs) []Row {
	rows := []Row{}
	if in.AnnualRevenue > 0 {
		rows = append(rows, Row{"Annual revenue", utils.FormatGBP(in.AnnualRevenue)})
	}
	if in.Profit != nil {
		rows = append(rows, Row{"Profit", utils.FormatGBP(*in.Profit)})
	}
	if m, ok := in.EffectiveMargin(); ok {
		rows = append(rows, Row{"Profit margin", fmt.Sprintf("%.1f%%", m)})
	}
	if in.GrowthRate != nil {
		rows = append(rows, Row{"Revenue growth", utils.FormatPct(*in.GrowthRate)})
	}
	if in.RecurringRevenuePct != nil {
		rows = append(rows, Row{"Recurring revenue", fmt.Sprintf("%.0f%%", *in.RecurringRevenuePct)})
	}
	if in.CustomerConcentration != nil {
		rows = append(rows, Row{"Largest customer", fmt.Sprintf("%.0f%% of revenue", *in.CustomerConcentration)})
	}
	if in.YearEstablished > 0 {
		rows = append(rows, Row{"Established", fmt.Sprintf("%d", in.YearEstablished)})
	}
	if in.EmployeeCount > 0 {
		rows = append(rows, Row{"Employees", fmt.Sprintf("%d", in.EmployeeCount)})
	}
	if len(in.KeyAssets) > 0 {
		rows = append(rows, Row{"Key assets", strings.Join(in.KeyAssets, ", ")})
	}
	if in.ExitReason != "" {
		rows = append(rows, Row{"Reason for sale", in.ExitReason})
	}
	return rows
}

func methodChart(r *models.ValuationReport, cfg ChartConfig) string {
	bars := make([]EstimateBar, 0, len(r.MethodBreakdown)+1)
	for _, m := range r.MethodBreakdown {
		bars = append(bars, EstimateBar{
			Label:      MethodLabel(m.Method),
			Value:      m.Estimate,
			ValueLabel: utils.FormatGBPCompact(m.Estimate),
		})
	}
	bars = append(bars, EstimateBar{
		Label:      "Typical (blended)",
		Value:      r.Range.Typical,
		ValueLabel: utils.FormatGBPCompact(r.Range.Typical),
		Highlight:  true,
	})
	cfg.Title = "Estimates by method"
	return EstimateChart(bars, r.Range.Minimum, r.Range.Maximum, cfg)
}

func chartCfg(cfg ReportConfig) ChartConfig {
	if cfg.ChartCfg.Width == 0 {
		return DefaultChartConfig()
	}
	return cfg.ChartCfg
}

// ConfidenceLabel describes a 0-100 confidence score in words.
func ConfidenceLabel(c float64) string {
	switch {
	case c >= 70:
		return "High"
	case c >= 45:
		return "Moderate"
	default:
		return "Low"
	}
}

var methodLabels = map[string]string{
	"revenue_multiple":  "Revenue multiple",
	"earnings_multiple": "Earnings (EBITDA) multiple",
}

// MethodLabel returns a display name for a method identifier.
func MethodLabel(method string) string {
	if l, ok := methodLabels[method]; ok {
		return l
	}
	s := strings.ReplaceAll(method, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func bucketLabel(bucket string, defaulted bool) string {
	if defaulted {
		return bucket + " (assumed, not reported)"
	}
	return bucket
}

// ════════════════════════════════════════════════════════════════════
// Markdown renderer
// ════════════════════════════════════════════════════════════════════

func renderMarkdownBody(d ReportData) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("_Generated %s by %s_\n\n", d.GeneratedAt, mdEscape(d.Author)))

	if d.ShowSummary {
		sb.WriteString("## Summary\n\n")
		sb.WriteString(fmt.Sprintf("**Indicative value: %s** (range %s to %s, %s)\n\n", d.Typical, d.Minimum, d.Maximum, d.Spread))
		sb.WriteString(fmt.Sprintf("Confidence: **%.1f / 100** (%s)\n\n", d.Confidence, d.ConfidenceLabel))
		sector := fmt.Sprintf("Sector: %s (`%s`)", mdEscape(d.SectorName), d.SectorCode)
		if d.UsedDefaultSector {
			sector += ". The sector was not recognised, so general business multiples were used"
		}
		sb.WriteString(sector + "\n\n")
		sb.WriteString("| Dimension | Classification |\n|---|---|\n")
		for _, b := range d.Buckets {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", b.Label, mdEscape(b.Value)))
		}
		sb.WriteString("\n")
	}

	if d.ShowProfile && len(d.Profile) > 0 {
		sb.WriteString("## Business profile\n\n| | |\n|---|---|\n")
		for _, p := range d.Profile {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", p.Label, mdEscape(p.Value)))
		}
		sb.WriteString("\n")
	}

	if d.ShowMethods {
		sb.WriteString("## Valuation methods\n\n")
		if len(d.Methods) > 0 {
			sb.WriteString("| Method | Estimate | Multiple | Weight | Adjustments |\n|---|---:|---:|---:|---|\n")
			for _, m := range d.Methods {
				sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
					mdEscape(m.Name), m.Estimate, m.Multiple, m.Weight, mdEscape(m.Adjustments)))
			}
			sb.WriteString("\n")
		}
		for _, s := range d.Skipped {
			sb.WriteString(fmt.Sprintf("- %s not used: %s\n", mdEscape(s.Label), mdEscape(s.Value)))
		}
		if len(d.Skipped) > 0 {
			sb.WriteString("\n")
		}
	}

	if d.ShowFactors {
		writeFactors := func(title string, rows []Row) {
			sb.WriteString("## " + title + "\n\n")
			if len(rows) == 0 {
				sb.WriteString("None identified.\n\n")
				return
			}
			for _, r := range rows {
				sb.WriteString(fmt.Sprintf("- **%s**: %s\n", mdEscape(r.Label), mdEscape(r.Value)))
			}
			sb.WriteString("\n")
		}
		writeFactors("Strengths", d.Strengths)
		writeFactors("Weaknesses", d.Weaknesses)
	}

	writeList := func(title string, show bool, items []string) {
		if !show || len(items) == 0 {
			return
		}
		sb.WriteString("## " + title + "\n\n")
		for _, it := range items {
			sb.WriteString("- " + mdEscape(it) + "\n")
		}
		sb.WriteString("\n")
	}
	writeList("Opportunities", d.ShowOpportunities, d.Opportunities)
	writeList("Recommendations", d.ShowRecommendations, d.Recommendations)

	sb.WriteString("---\n\n")
	sb.WriteString("_" + disclaimer + "_\n")
	return sb.String()
}

// mdEscape backslash-escapes characters that would change Markdown structure.
func mdEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '`', '*', '_', '[', ']', '|', '<', '>', '#':
			b.WriteByte('\\')
		case '\n', '\r':
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}

const disclaimer = "Indicative valuation only, based on sector multiples and the figures supplied. " +
	"Not financial advice. Consult a qualified adviser before agreeing a sale price."

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

func renderTextReport(d ReportData) string {
	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", d.Title))
	sb.WriteString(fmt.Sprintf("  Generated: %s | Author: %s\n", d.GeneratedAt, d.Author))
	sb.WriteString(line + "\n\n")

	if d.ShowSummary {
		sb.WriteString(fmt.Sprintf("  Sector: %s (%s)\n", d.SectorName, d.SectorCode))
		if d.UsedDefaultSector {
			sb.WriteString("  Sector not recognised; general business multiples used.\n")
		}
		sb.WriteString(thinLine + "\n")
		sb.WriteString("\n  ★ INDICATIVE VALUE\n")
		sb.WriteString(fmt.Sprintf("  %s  (range %s to %s, %s)\n", d.Typical, d.Minimum, d.Maximum, d.Spread))
		sb.WriteString(fmt.Sprintf("  Confidence: %.1f / 100 (%s)\n", d.Confidence, d.ConfidenceLabel))
		for _, b := range d.Buckets {
			sb.WriteString(fmt.Sprintf("    %-16s %s\n", b.Label, b.Value))
		}
		sb.WriteString(thinLine + "\n")
	}

	if d.ShowProfile && len(d.Profile) > 0 {
		sb.WriteString("\n  ■ BUSINESS PROFILE\n")
		for _, p := range d.Profile {
			sb.WriteString(fmt.Sprintf("    %-20s %s\n", p.Label, p.Value))
		}
		sb.WriteString(thinLine + "\n")
	}

	if d.ShowMethods {
		sb.WriteString("\n  ■ VALUATION METHODS\n")
		for _, m := range d.Methods {
			sb.WriteString(fmt.Sprintf("    %-28s %16s  at %s (weight %s)\n", m.Name, m.Estimate, m.Multiple, m.Weight))
			if m.Adjustments != "" {
				sb.WriteString(fmt.Sprintf("      %s\n", m.Adjustments))
			}
		}
		for _, s := range d.Skipped {
			sb.WriteString(fmt.Sprintf("    %-28s not used: %s\n", s.Label, s.Value))
		}
		sb.WriteString(thinLine + "\n")
	}

	if d.ShowFactors {
		writeRows := func(title, mark string, rows []Row) {
			sb.WriteString(fmt.Sprintf("\n  ■ %s\n", title))
			if len(rows) == 0 {
				sb.WriteString("    None identified.\n")
			}
			for _, r := range rows {
				sb.WriteString(fmt.Sprintf("    %s %s: %s\n", mark, r.Label, r.Value))
			}
		}
		writeRows("STRENGTHS", "+", d.Strengths)
		writeRows("WEAKNESSES", "-", d.Weaknesses)
		sb.WriteString(thinLine + "\n")
	}

	writeList := func(title string, show bool, items []string) {
		if !show || len(items) == 0 {
			return
		}
		sb.WriteString(fmt.Sprintf("\n  ■ %s\n", title))
		for _, it := range items {
			sb.WriteString(fmt.Sprintf("    • %s\n", it))
		}
		sb.WriteString(thinLine + "\n")
	}
	writeList("OPPORTUNITIES", d.ShowOpportunities, d.Opportunities)
	writeList("RECOMMENDATIONS", d.ShowRecommendations, d.Recommendations)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString("  Indicative valuation only. Not financial advice.\n")
	sb.WriteString("  Consult a qualified adviser before agreeing a sale price.\n")
	sb.WriteString(line + "\n")

	return sb.String()
}
