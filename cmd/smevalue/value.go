package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/smevalue/internal/analysis/valuation"
	"github.com/seenimoa/smevalue/internal/report"
	"github.com/seenimoa/smevalue/internal/store"
	"github.com/seenimoa/smevalue/pkg/models"
	"github.com/seenimoa/smevalue/pkg/utils"
)

// --- Value Command ---

func (a *app) newValueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "value",
		Short: "Value a single business",
		Long: `Value a single business from flags, an input file, or both (flags win).

Examples:
  smevalue value --sector technology --revenue 1000000 --profit 200000
  smevalue value --input business.yaml --format html --output report.html
  smevalue value --input business.json --growth 25 --save`,
		Args: cobra.NoArgs,
		RunE: a.runValue,
	}

	f := cmd.Flags()
	f.String("input", "", "JSON or YAML file describing the business")
	f.String("sector", "", "sector code (see 'smevalue sectors')")
	f.Float64("revenue", 0, "annual revenue (£)")
	f.Float64("profit", 0, "annual profit / EBITDA (£)")
	f.Float64("margin", 0, "profit margin (%)")
	f.Float64("growth", 0, "year-on-year revenue growth (%)")
	f.Float64("recurring", 0, "recurring revenue share (%)")
	f.Float64("concentration", 0, "largest customer's share of revenue (%)")
	f.Int("established", 0, "year the business was established")
	f.Int("employees", 0, "number of employees")
	f.StringSlice("assets", nil, "key assets, comma separated")
	f.String("exit-reason", "", "reason for selling")
	f.String("format", "text", "output format: text, json, markdown or html")
	f.String("output", "", "write the report to this file instead of stdout")
	f.Bool("save", false, "persist the valuation in the report store")

	return cmd
}

func (a *app) runValue(cmd *cobra.Command, args []string) error {
	var req models.ValuationRequest
	if path, _ := cmd.Flags().GetString("input"); path != "" {
		r, err := readRequestFile(path)
		if err != nil {
			return err
		}
		req = r
	}
	if err := applyRequestFlags(cmd, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	var reportFormat report.ReportFormat
	if format != "json" {
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		reportFormat = f
	}

	engine, err := a.engine()
	if err != nil {
		return err
	}

	in := req.ToInputs(utils.AsOfYear(a.now()))
	rep, err := engine.Calculate(in)
	if err != nil {
		if errors.Is(err, valuation.ErrInsufficientData) {
			return fmt.Errorf("cannot value this business: %w", err)
		}
		return eris.Wrap(err, "valuation failed")
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		a.saveValuation(in, rep)
	}

	var body string
	if format == "json" {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode report")
		}
		body = string(data) + "\n"
	} else {
		cfg := report.DefaultReportConfig()
		cfg.GeneratedAt = a.now()
		body, err = report.Generate(rep, &in, reportFormat, cfg)
		if err != nil {
			return eris.Wrap(err, "render report")
		}
	}

	return writeOutput(cmd, body)
}

// saveValuation persists a result. Failures are logged; the report is still
// printed.
func (a *app) saveValuation(in models.BusinessInputs, rep *models.ValuationReport) {
	st, err := a.openStore()
	if err != nil {
		a.log.Error().Err(err).Msg("open store; valuation not saved")
		return
	}
	if st == nil {
		a.log.Warn().Msg("store disabled in config; valuation not saved")
		return
	}
	defer st.Close()

	rec := store.NewRecord(in, rep)
	if err := st.Save(rec); err != nil {
		a.log.Error().Err(err).Msg("valuation not saved")
		return
	}
	a.log.Info().Str("id", rec.ID).Msg("valuation saved")
}

func writeOutput(cmd *cobra.Command, body string) error {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), body)
		return err
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", path)
	return nil
}

// readRequestFile loads one business description. YAML is a superset of
// JSON, so one decoder covers both.
func readRequestFile(path string) (models.ValuationRequest, error) {
	var req models.ValuationRequest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return req, eris.Errorf("unsupported input file %s (want .json, .yaml or .yml)", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return req, eris.Wrapf(err, "read %s", path)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, eris.Wrapf(err, "parse %s", path)
	}
	return req, nil
}

// applyRequestFlags overlays explicitly set flags onto req.
func applyRequestFlags(cmd *cobra.Command, req *models.ValuationRequest) error {
	f := cmd.Flags()

	optional := map[string]**float64{
		"profit":        &req.Profit,
		"margin":        &req.ProfitMargin,
		"growth":        &req.GrowthRate,
		"recurring":     &req.RecurringRevenuePct,
		"concentration": &req.CustomerConcentration,
	}
	for name, dst := range optional {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetFloat64(name)
		if err != nil {
			return err
		}
		*dst = models.Float(v)
	}

	if f.Changed("sector") {
		req.SectorCode, _ = f.GetString("sector")
	}
	if f.Changed("revenue") {
		req.AnnualRevenue, _ = f.GetFloat64("revenue")
	}
	if f.Changed("established") {
		req.YearEstablished, _ = f.GetInt("established")
	}
	if f.Changed("employees") {
		req.EmployeeCount, _ = f.GetInt("employees")
	}
	if f.Changed("assets") {
		req.KeyAssets, _ = f.GetStringSlice("assets")
	}
	if f.Changed("exit-reason") {
		req.ExitReason, _ = f.GetString("exit-reason")
	}
	return nil
}
