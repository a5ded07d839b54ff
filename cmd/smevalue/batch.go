package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/seenimoa/smevalue/internal/batch"
	"github.com/seenimoa/smevalue/internal/store"
	"github.com/seenimoa/smevalue/pkg/models"
	"github.com/seenimoa/smevalue/pkg/utils"
)

// --- Batch Command ---

func (a *app) newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Value every business listed in a file",
		Long: `Value a list of businesses concurrently.

The input is a JSON or YAML list of businesses (same fields as 'value
--input'), or a document with a top-level "businesses" list.

Examples:
  smevalue batch --input portfolio.yaml
  smevalue batch --input portfolio.json --workers 8 --format json`,
		Args: cobra.NoArgs,
		RunE: a.runBatch,
	}

	cmd.Flags().String("input", "", "JSON or YAML file listing businesses (required)")
	cmd.Flags().Int("workers", 0, "concurrent workers (default: batch.workers from config)")
	cmd.Flags().String("format", "text", "output format: text or json")
	cmd.Flags().Bool("save", false, "persist successful valuations in the report store")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// batchLine is one entry of the JSON batch output.
type batchLine struct {
	Index  int                     `json:"index"`
	ID     string                  `json:"id,omitempty"`
	Report *models.ValuationReport `json:"report,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("input")
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return eris.Errorf("unknown batch format %q (want text or json)", format)
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = a.cfg.Batch.Workers
	}

	reqs, err := batch.LoadRequests(path)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		return eris.Errorf("no businesses found in %s", path)
	}

	engine, err := a.engine()
	if err != nil {
		return err
	}

	inputs, idx, errs := batch.PrepareInputs(reqs, utils.AsOfYear(a.now()))
	results := batch.NewRunner(engine, workers, a.log).Run(cmd.Context(), inputs)

	lines := make([]batchLine, len(reqs))
	for i := range reqs {
		lines[i].Index = i
		if errs[i] != nil {
			lines[i].Error = errs[i].Error()
		}
	}
	for j, res := range results {
		i := idx[j]
		if res.Err != nil {
			lines[i].Error = res.Err.Error()
			continue
		}
		lines[i].Report = res.Report
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		a.saveBatch(results, idx, lines)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(lines); err != nil {
			return eris.Wrap(err, "encode batch results")
		}
	} else {
		printBatchTable(out, lines)
	}

	failed := 0
	for _, l := range lines {
		if l.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d valuations failed", failed, len(lines))
	}
	return nil
}

func (a *app) saveBatch(results []batch.Result, idx []int, lines []batchLine) {
	st, err := a.openStore()
	if err != nil {
		a.log.Error().Err(err).Msg("open store; batch not saved")
		return
	}
	if st == nil {
		a.log.Warn().Msg("store disabled in config; batch not saved")
		return
	}
	defer st.Close()

	for j, res := range results {
		if !res.OK() {
			continue
		}
		rec := store.NewRecord(res.Inputs, res.Report)
		if err := st.Save(rec); err != nil {
			a.log.Error().Err(err).Int("index", idx[j]).Msg("valuation not saved")
			continue
		}
		lines[idx[j]].ID = rec.ID
	}
}

func printBatchTable(out io.Writer, lines []batchLine) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSECTOR\tTYPICAL\tRANGE\tCONFIDENCE\tSTATUS")
	for _, l := range lines {
		if l.Report == nil {
			fmt.Fprintf(tw, "%d\t-\t-\t-\t-\t%s\n", l.Index+1, l.Error)
			continue
		}
		r := l.Report
		status := "ok"
		if r.UsedDefaultSector {
			status = "ok (general multiples)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s to %s\t%.1f\t%s\n",
			l.Index+1,
			r.SectorName,
			utils.FormatGBPCompact(r.Range.Typical),
			utils.FormatGBPCompact(r.Range.Minimum),
			utils.FormatGBPCompact(r.Range.Maximum),
			r.Range.Confidence,
			status,
		)
	}
	tw.Flush()
}
