// Package report renders valuation reports as plain text, Markdown and HTML
// with inline SVG charts.
package report

import (
	"fmt"
	"math"
	"strings"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Generator
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 640)
	Height       int    // SVG height in pixels (default: 240)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 90)
	MarginBottom int    // bottom margin (default: 30)
	MarginLeft   int    // left margin (default: 150)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        640,
		Height:       240,
		MarginTop:    40,
		MarginRight:  90,
		MarginBottom: 30,
		MarginLeft:   150,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// ════════════════════════════════════════════════════════════════════
// Method Estimates
// ════════════════════════════════════════════════════════════════════

// EstimateBar is one bar of the method estimate chart.
type EstimateBar struct {
	Label      string
	Value      float64
	ValueLabel string // optional; defaults to the rounded value
	Highlight  bool   // drawn in the accent colour (the blended typical value)
}

// EstimateChart draws one bar per estimate on a scale starting at zero, with
// the valuation range [minimum, maximum] shaded behind the bars. Estimates
// are never negative; a non-positive value draws an empty bar.
func EstimateChart(bars []EstimateBar, minimum, maximum float64, cfg ChartConfig) string {
	if len(bars) == 0 {
		return emptySVG(cfg, "No estimates")
	}
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}

	px, py, pw, ph := cfg.plotArea()

	top := maximum
	for _, b := range bars {
		top = math.Max(top, b.Value)
	}
	if top <= 0 {
		top = 1
	}
	scale := func(v float64) float64 {
		return float64(px) + math.Max(v, 0)/top*float64(pw)
	}

	slot := float64(ph) / float64(len(bars))
	barH := math.Min(slot*0.7, 30)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	if cfg.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
			cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))
	}

	if maximum > minimum {
		x0, x1 := scale(minimum), scale(maximum)
		sb.WriteString(fmt.Sprintf(`<rect class="range" x="%.1f" y="%d" width="%.1f" height="%d" fill="#e3f2fd"/>`,
			x0, py, x1-x0, ph))
	}

	for i, b := range bars {
		y := float64(py) + float64(i)*slot + (slot-barH)/2
		w := scale(b.Value) - float64(px)
		color := "#90caf9"
		if b.Highlight {
			color = "#1565c0"
		}
		sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"/>`,
			px, y, w, barH, color))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, y+barH/2+4, cfg.FontSize, cfg.TextColor, escapeXML(b.Label)))

		label := b.ValueLabel
		if label == "" {
			label = fmt.Sprintf("%.0f", b.Value)
		}
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="%d" fill="%s">%s</text>`,
			float64(px)+w+5, y+barH/2+4, cfg.FontSize, cfg.TextColor, escapeXML(label)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Valuation Range Band
// ════════════════════════════════════════════════════════════════════

// RangeChart draws the minimum–maximum band with a marker at the typical
// value. Labels are pre-formatted by the caller.
func RangeChart(minimum, typical, maximum float64, labels [3]string, cfg ChartConfig) string {
	if maximum <= minimum || math.IsNaN(typical) {
		return emptySVG(cfg, "No range")
	}

	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	cfg.Height = 120
	cfg.MarginLeft, cfg.MarginRight = 60, 60
	if cfg.Title == "" {
		cfg.Title = "Valuation range"
	}

	px, _, pw, _ := cfg.plotArea()
	barY := 55.0
	barH := 18.0

	// The band spans the full plot width; typical is placed proportionally.
	pos := (typical - minimum) / (maximum - minimum)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	tx := float64(px) + pos*float64(pw)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%.1f" width="%d" height="%.1f" fill="#bbdefb" rx="4"/>`,
		px, barY, pw, barH))
	sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#1565c0" stroke-width="3"/>`,
		tx, barY-6, tx, barY+barH+6))

	// Labels: minimum (left), typical (above marker), maximum (right)
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
		px, barY+barH+22, cfg.FontSize, cfg.TextColor, escapeXML(labels[0])))
	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="%d" font-weight="bold" fill="#1565c0" text-anchor="middle">%s</text>`,
		tx, barY-10, cfg.FontSize+1, escapeXML(labels[1])))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
		px+pw, barY+barH+22, cfg.FontSize, cfg.TextColor, escapeXML(labels[2])))

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Gauge / Dial Chart (for confidence)
// ════════════════════════════════════════════════════════════════════

// GaugeChart generates an SVG semicircular gauge for a 0-100 score such as
// the valuation confidence.
func GaugeChart(value float64, label string, width int) string {
	if width == 0 {
		width = 200
	}
	height := width/2 + 30

	cx := float64(width) / 2
	cy := float64(width)/2 - 10
	radius := float64(width)/2 - 20

	// Clamp value
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	// Angle: 180° (left) to 0° (right), value maps 0→180°, 100→0°
	angle := math.Pi - (value/100)*math.Pi
	needleX := cx + radius*0.85*math.Cos(angle)
	needleY := cy - radius*0.85*math.Sin(angle)

	color := confidenceColor(value)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height))
	sb.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, width, height))

	// Background arc
	sb.WriteString(fmt.Sprintf(`<path d="M%.1f,%.1f A%.1f,%.1f 0 0,1 %.1f,%.1f" fill="none" stroke="#e0e0e0" stroke-width="12" stroke-linecap="round"/>`,
		cx-radius, cy, radius, radius, cx+radius, cy))

	// Colored arc (proportional to value)
	endX := cx + radius*math.Cos(angle)
	endY := cy - radius*math.Sin(angle)
	largeArc := 0
	if value > 50 {
		largeArc = 1
	}
	sb.WriteString(fmt.Sprintf(`<path d="M%.1f,%.1f A%.1f,%.1f 0 %d,1 %.1f,%.1f" fill="none" stroke="%s" stroke-width="12" stroke-linecap="round"/>`,
		cx-radius, cy, radius, radius, largeArc, endX, endY, color))

	// Needle
	sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333" stroke-width="2"/>`,
		cx, cy, needleX, needleY))
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="5" fill="#333"/>`, cx, cy))

	// Value text
	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="22" font-weight="bold" fill="%s" text-anchor="middle">%.0f</text>`,
		cx, cy+25, color, value))

	// Label
	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="11" fill="#666" text-anchor="middle">%s</text>`,
		cx, height-5, escapeXML(label)))

	sb.WriteString("</svg>")
	return sb.String()
}

// confidenceColor maps a 0-100 score onto the red→green scale.
func confidenceColor(value float64) string {
	switch {
	case value < 30:
		return "#ef5350" // red
	case value < 50:
		return "#ff9800" // orange
	case value < 70:
		return "#ffc107" // yellow
	default:
		return "#4caf50" // green
	}
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
