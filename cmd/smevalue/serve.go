package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seenimoa/smevalue/api"
)

// --- Serve Command (API Server) ---

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.API.Port, _ = cmd.Flags().GetInt("port")
			}

			engine, err := a.engine()
			if err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			} else {
				a.log.Warn().Msg("store disabled; valuations will not be persisted")
			}

			srv := api.NewServer(a.cfg, engine, st, a.log)
			srv.SetVersion(version)

			addr := fmt.Sprintf("%s:%d", a.cfg.API.Host, a.cfg.API.Port)
			return srv.ListenAndServe(addr)
		},
	}
	cmd.Flags().Int("port", 0, "listen port (default: api.port from config)")
	return cmd
}
