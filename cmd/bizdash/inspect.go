package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bizdash-go/internal/domain/guard"
	"bizdash-go/internal/domain/resolver"
)

// resolve and check only need configuration; they never open the store.

func newResolveCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [host]",
		Short: "Show the backend endpoints a hostname resolves to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			host := cfg.Domains.DefaultHost
			if len(args) == 1 {
				host = args[0]
			}
			hosts := make(map[string]resolver.Endpoints, len(cfg.Domains.Hosts))
			for h, ep := range cfg.Domains.Hosts {
				hosts[h] = resolver.Endpoints{APIBase: ep.APIBase, AuthBase: ep.AuthBase}
			}
			res := resolver.New(resolver.Config{
				Primary:     cfg.Domains.Primary,
				Development: resolver.Endpoints{APIBase: cfg.Domains.Development.APIBase, AuthBase: cfg.Domains.Development.AuthBase},
				Hosts:       hosts,
			})
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"host":      resolver.Normalize(host),
				"endpoints": res.Resolve(host),
			})
		},
	}
}

func newCheckCmd(root *rootFlags) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Evaluate the access guard for a role, host and path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			a := cfg.Access
			g := guard.New(guard.Config{
				PublicRoutes: a.PublicRoutes,
				CommonRoutes: a.CommonRoutes,
				WildcardRole: a.WildcardRole,
				Roles:        a.Roles,
				DomainPages:  a.DomainPages,
				LoginRoute:   a.LoginRoute,
				DeniedRoute:  a.DeniedRoute,
			})
			d := g.Check(cfg.Domains.DefaultHost, role, args[0])
			if err := printJSON(cmd.OutOrStdout(), d); err != nil {
				return err
			}
			if !d.Allowed {
				return fmt.Errorf("access denied: %s", d.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", "", "role to evaluate; empty means signed out")
	return cmd
}
