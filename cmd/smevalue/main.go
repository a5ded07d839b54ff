// smevalue estimates the sale value of small and medium-sized businesses.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/smevalue/internal/analysis/valuation"
	"github.com/seenimoa/smevalue/internal/config"
	"github.com/seenimoa/smevalue/internal/logging"
	"github.com/seenimoa/smevalue/internal/store"
	"github.com/seenimoa/smevalue/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries state shared by every command once config is loaded.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	now func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{now: time.Now, log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "smevalue",
		Short: "smevalue: indicative sale valuations for UK SMEs",
		Long: `smevalue estimates what a small or medium-sized business might sell for,
using sector revenue and earnings multiples adjusted for size, growth and
profitability, and explains the result in plain English.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			configFile, _ := cmd.Flags().GetString("config")
			if configFile != "" {
				a.cfg, err = config.LoadFromFile(configFile)
			} else {
				a.cfg, err = config.Load()
			}
			if err != nil {
				return eris.Wrap(err, "failed to load config")
			}

			if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
				a.cfg.Logging.Level = lvl
			}
			a.log = logging.New(a.cfg.Logging, cmd.ErrOrStderr())
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(a.newValueCmd())
	root.AddCommand(a.newBatchCmd())
	root.AddCommand(a.newSectorsCmd())
	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newStatusCmd())

	return root
}

// engine builds the valuation engine from the loaded config.
func (a *app) engine() (*valuation.Engine, error) {
	return valuation.NewEngineFromConfig(a.cfg.Valuation, a.log)
}

// openStore opens the report store, or returns nil when persistence is
// disabled in config.
func (a *app) openStore() (*store.Store, error) {
	if !a.cfg.Store.Enabled {
		return nil, nil
	}
	return store.Open(a.cfg.Store, a.log)
}

// --- Version Command ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Needs no config.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "smevalue %s\n", version)
			fmt.Fprintf(out, "  commit:  %s\n", commit)
			fmt.Fprintf(out, "  built:   %s\n", date)
		},
	}
}

// --- Status Command ---

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system status and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printStatus(cmd.OutOrStdout())
			return nil
		},
	}
}

func (a *app) printStatus(out io.Writer) {
	line := "═══════════════════════════════════════"
	fmt.Fprintln(out, line)
	fmt.Fprintln(out, "  smevalue: System Status")
	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
	fmt.Fprintf(out, "  Time (UK):     %s\n", utils.FormatDateTimeUK(a.now()))
	cfgFile := a.cfg.File()
	if cfgFile == "" {
		cfgFile = "(defaults + environment)"
	}
	fmt.Fprintf(out, "  Config file:   %s\n", cfgFile)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  Valuation:")
	if e, err := a.engine(); err != nil {
		fmt.Fprintf(out, "    Engine:        ❌ %v\n", err)
	} else {
		source := "builtin"
		if a.cfg.Valuation.CatalogFile != "" {
			source = a.cfg.Valuation.CatalogFile
		}
		fmt.Fprintf(out, "    Sector table:  %s (%d sectors)\n", source, e.Catalog().Len())
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  Storage:")
	switch {
	case !a.cfg.Store.Enabled:
		fmt.Fprintln(out, "    Store:         disabled")
	default:
		where := a.cfg.Store.Path
		if a.cfg.Store.InMemory {
			where = "in-memory"
		}
		st, err := a.openStore()
		if err != nil {
			fmt.Fprintf(out, "    Store:         ❌ %s: %v\n", where, err)
			break
		}
		n, err := st.Count()
		st.Close()
		if err != nil {
			fmt.Fprintf(out, "    Store:         ❌ %s: %v\n", where, err)
			break
		}
		fmt.Fprintf(out, "    Store:         %s (%d valuations)\n", where, n)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  API Server:")
	fmt.Fprintf(out, "    Listen:        %s:%d\n", a.cfg.API.Host, a.cfg.API.Port)
	if a.cfg.API.RateLimitPerSec > 0 {
		fmt.Fprintf(out, "    Rate limit:    %.1f/s (burst %d)\n", a.cfg.API.RateLimitPerSec, a.cfg.API.RateLimitBurst)
	} else {
		fmt.Fprintln(out, "    Rate limit:    off")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  Secrets:")
	for _, k := range config.CheckSecrets(a.cfg) {
		status := "❌ not set"
		if k.IsSet {
			status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
		}
		fmt.Fprintf(out, "    %-25s %s\n", k.Name+":", status)
	}

	fmt.Fprintln(out, line)
}
