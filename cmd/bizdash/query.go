package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"bizdash-go/internal/bootstrap"
	"bizdash-go/internal/domain/orchestrator"
)

func newQueryCmd(root *rootFlags) *cobra.Command {
	var (
		vars     string
		mutation bool
		retries  int
		timeout  time.Duration
		probe    string
	)

	cmd := &cobra.Command{
		Use:   "query [graphql]",
		Short: "Run a GraphQL document through the orchestrator",
		Long:  "Runs a GraphQL document with retries and credential refresh. Reads the document from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			var variables map[string]any
			if vars != "" {
				if err := sonic.UnmarshalString(vars, &variables); err != nil {
					return fmt.Errorf("invalid --vars: %w", err)
				}
			}

			opts := []orchestrator.Option{orchestrator.RequireAuth()}
			if mutation {
				opts = append(opts, orchestrator.WithClass(orchestrator.ClassMutation))
			}
			if cmd.Flags().Changed("retries") {
				opts = append(opts, orchestrator.WithMaxRetries(retries))
			}
			if timeout > 0 {
				opts = append(opts, orchestrator.WithTimeout(timeout))
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return withApp(cmd, cfg, func(ctx context.Context, app *bootstrap.App) error {
				if probe != "" {
					fmt.Fprintln(cmd.OutOrStdout(), app.Orchestrator.Probe(ctx, doc, variables, probe))
					return nil
				}
				data, err := app.Orchestrator.Execute(ctx, doc, variables, opts...)
				if err != nil {
					return describe(err)
				}
				var v any
				if err := sonic.Unmarshal(data, &v); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
	cmd.Flags().StringVar(&vars, "vars", "", "variables as a JSON object")
	cmd.Flags().BoolVar(&mutation, "mutation", false, "use the mutation timeout class")
	cmd.Flags().IntVar(&retries, "retries", 0, "override the maximum number of attempts")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "override the per-attempt timeout")
	cmd.Flags().StringVar(&probe, "probe", "", "run as a background probe and print the truthiness of this data path")
	return cmd
}

func readDocument(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	doc := strings.TrimSpace(string(raw))
	if doc == "" {
		return "", fmt.Errorf("no GraphQL document given")
	}
	return doc, nil
}
