package main

import (
	"context"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"bizdash-go/internal/bootstrap"
	platformconfig "bizdash-go/internal/platform/config"
)

type rootFlags struct {
	configPath string
	host       string
	logLevel   string
	noDotEnv   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "bizdash",
		Short:         "Session and request orchestration for the bizdash dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv(platformconfig.EnvConfigPath), "path to bizdash.yaml")
	cmd.PersistentFlags().StringVar(&flags.host, "host", "", "tenant hostname to resolve backends from")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")
	cmd.PersistentFlags().BoolVar(&flags.noDotEnv, "no-dotenv", false, "do not read .env")

	cmd.AddCommand(
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newWhoamiCmd(flags),
		newQueryCmd(flags),
		newResolveCmd(flags),
		newCheckCmd(flags),
		newServeCmd(flags),
		newMigrateCmd(flags),
	)
	return cmd
}

// loadConfig reads configuration and applies the global flag overrides.
func (f *rootFlags) loadConfig() (*platformconfig.Config, error) {
	result, err := platformconfig.NewLoader().
		WithDotEnv(!f.noDotEnv).
		WithPath(f.configPath).
		Load()
	if err != nil {
		return nil, err
	}
	cfg := result.Config
	if f.host != "" {
		cfg.Domains.DefaultHost = f.host
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}

// withApp opens the app for one command. Logs go to stderr so stdout
// stays machine readable.
func withApp(cmd *cobra.Command, cfg *platformconfig.Config, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.Open(ctx, bootstrap.Options{Config: cfg, LogWriter: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)
	if err := app.Close(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}
