package main

import (
	"github.com/spf13/cobra"

	"bizdash-go/internal/bootstrap"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var (
		addr      string
		staticDir string
		noMonitor bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the built dashboard behind the access guard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			cfg.Edge.Enabled = true
			if addr != "" {
				cfg.Edge.Addr = addr
			}
			if staticDir != "" {
				cfg.Edge.StaticDir = staticDir
			}
			if noMonitor {
				cfg.Monitor.Enabled = false
			}
			return bootstrap.Run(cmd.Context(), bootstrap.Options{Config: cfg})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory of the built dashboard")
	cmd.Flags().BoolVar(&noMonitor, "no-monitor", false, "do not re-validate the session periodically")
	return cmd
}
