// Package batch values many businesses concurrently with a bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/smevalue/pkg/models"
)

// Calculator is the part of the valuation engine the runner needs.
type Calculator interface {
	Calculate(in models.BusinessInputs) (*models.ValuationReport, error)
}

// Result is the outcome for one input. Exactly one of Report and Err is set.
type Result struct {
	Index  int
	Inputs models.BusinessInputs
	Report *models.ValuationReport
	Err    error
}

// OK reports whether the item produced a report.
func (r Result) OK() bool { return r.Err == nil && r.Report != nil }

// Runner fans calculations out across a fixed number of workers.
type Runner struct {
	calc    Calculator
	workers int
	log     zerolog.Logger
}

// NewRunner creates a runner. workers < 1 is treated as 1.
func NewRunner(calc Calculator, workers int, log zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		calc:    calc,
		workers: workers,
		log:     log.With().Str("component", "batch").Logger(),
	}
}

// Run values every input and returns one result per input, in input order.
// Item failures are recorded on the result and do not stop the batch. Once
// ctx is cancelled no further items are started; unstarted items carry the
// context error.
func (r *Runner) Run(ctx context.Context, inputs []models.BusinessInputs) []Result {
	results := make([]Result, len(inputs))
	for i, in := range inputs {
		results[i] = Result{Index: i, Inputs: in}
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	scheduled := 0
	for i := range inputs {
		if gctx.Err() != nil {
			break
		}
		scheduled++
		g.Go(func() error {
			// Each goroutine owns results[i]; no lock needed.
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			report, err := r.calc.Calculate(inputs[i])
			if err != nil {
				results[i].Err = fmt.Errorf("item %d: %w", i, err)
				return nil
			}
			results[i].Report = report
			return nil
		})
	}
	_ = g.Wait()

	if scheduled < len(inputs) {
		cause := context.Cause(ctx)
		if cause == nil {
			cause = context.Canceled
		}
		for i := scheduled; i < len(inputs); i++ {
			results[i].Err = cause
		}
	}

	ok := 0
	for _, res := range results {
		if res.OK() {
			ok++
		}
	}
	r.log.Info().
		Int("items", len(inputs)).
		Int("succeeded", ok).
		Int("failed", len(inputs)-ok).
		Int("workers", r.workers).
		Dur("elapsed", time.Since(start)).
		Msg("batch complete")

	return results
}

// Run is a convenience wrapper around NewRunner(...).Run.
func Run(ctx context.Context, calc Calculator, inputs []models.BusinessInputs, workers int) []Result {
	return NewRunner(calc, workers, zerolog.Nop()).Run(ctx, inputs)
}

// Summary counts successes and failures.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize counts the results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.OK() {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// LoadRequests reads a list of valuation requests from a JSON or YAML file.
// YAML is a superset of JSON, so one decoder covers both.
func LoadRequests(path string) ([]models.ValuationRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}
	return ParseRequests(data, filepath.Ext(path))
}

// ParseRequests decodes a request list. It accepts either a bare list or a
// document with a top-level "businesses" key.
func ParseRequests(data []byte, ext string) ([]models.ValuationRequest, error) {
	ext = strings.ToLower(ext)
	if ext != "" && ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, eris.Errorf("batch: unsupported input format %q", ext)
	}

	var list []models.ValuationRequest
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var doc struct {
		Businesses []models.ValuationRequest `yaml:"businesses"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "batch: parse input")
	}
	return doc.Businesses, nil
}

// PrepareInputs validates every request and converts the valid ones. The
// returned slice of errors is aligned with reqs (nil for valid requests);
// inputs holds only the valid ones, with their original indexes in idx.
func PrepareInputs(reqs []models.ValuationRequest, asOfYear int) (inputs []models.BusinessInputs, idx []int, errs []error) {
	errs = make([]error, len(reqs))
	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			errs[i] = err
			continue
		}
		inputs = append(inputs, reqs[i].ToInputs(asOfYear))
		idx = append(idx, i)
	}
	return inputs, idx, errs
}
