package report

// ReportTemplate is the HTML shell for a valuation report. The body is the
// Markdown report rendered by goldmark; charts are inline SVG.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en-GB">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #1565c0;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1, h2, h3 { font-weight: 600; }
  h1 { font-size: 1.5rem; margin-bottom: 4px; color: var(--accent); }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  p { margin: 6px 0; }
  ul { margin: 6px 0 12px 20px; }
  code { background: var(--section-bg); padding: 0 4px; border-radius: 3px; }
  hr { border: none; border-top: 1px solid var(--border); margin: 24px 0 8px; }
  .muted { color: var(--muted); font-size: 0.85rem; }

  /* Header */
  .header {
    display: flex;
    justify-content: space-between;
    align-items: flex-start;
    border-bottom: 3px solid var(--accent);
    padding-bottom: 12px;
    margin-bottom: 16px;
  }
  .header-right { text-align: right; }
  .sector-badge {
    display: inline-block;
    background: var(--accent);
    color: white;
    padding: 2px 12px;
    border-radius: 4px;
    font-weight: 700;
    font-size: 0.9rem;
  }
  .sector-badge.fallback { background: #ef6c00; }

  /* Headline */
  .headline {
    display: grid;
    grid-template-columns: 1fr 240px;
    gap: 16px;
    align-items: center;
    background: var(--section-bg);
    padding: 12px;
    border-radius: 8px;
  }
  .chart-container { margin: 12px 0; text-align: center; }

  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.9rem; }
  th { background: var(--section-bg); text-align: left; padding: 8px; font-weight: 600; }
  td { padding: 8px; border-bottom: 1px solid var(--border); }

  @media print {
    body { padding: 0; }
    .headline { break-inside: avoid; }
  }
</style>
</head>
<body>

<div class="header">
  <div>
    <h1>{{.Title}}</h1>
    <span class="sector-badge{{if .UsedDefaultSector}} fallback{{end}}">{{.SectorName}}</span>
  </div>
  <div class="header-right">
    <p class="muted">{{.GeneratedAt}}</p>
    <p class="muted">{{.Author}}</p>
  </div>
</div>

{{if .ShowSummary}}
<div class="headline">
  <div class="chart-container">{{.RangeSVG}}</div>
  <div class="chart-container">{{.GaugeSVG}}</div>
</div>
{{end}}

{{if .MethodSVG}}
<div class="chart-container">{{.MethodSVG}}</div>
{{end}}

<div class="body">
{{.BodyHTML}}
</div>

</body>
</html>
`
