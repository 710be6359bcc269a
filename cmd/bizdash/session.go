package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"bizdash-go/internal/bootstrap"
	"bizdash-go/internal/domain/failure"
)

const envPassword = "BIZDASH_PASSWORD"

func newLoginCmd(root *rootFlags) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(envPassword)
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("password required: use --password, %s or stdin", envPassword)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return withApp(cmd, cfg, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Auth.Login(ctx, email, password)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", res.User.Email, res.User.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func newLogoutCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return withApp(cmd, cfg, func(ctx context.Context, app *bootstrap.App) error {
				app.Auth.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user, re-validated against the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return withApp(cmd, cfg, func(ctx context.Context, app *bootstrap.App) error {
				profile, err := app.Auth.Bootstrap(ctx)
				if err != nil {
					return describe(err)
				}
				if profile == nil {
					return errors.New("not signed in")
				}
				return printJSON(cmd.OutOrStdout(), profile)
			})
		},
	}
}

// describe turns a classified failure into the message a user should see,
// with validation details appended.
func describe(err error) error {
	c := failure.Classify(err)
	if len(c.ValidationFields) == 0 {
		return fmt.Errorf("%s (%s)", c.UserMessage, c.Kind)
	}
	fields := make([]string, 0, len(c.ValidationFields))
	for field := range c.ValidationFields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+c.ValidationFields[field])
	}
	return fmt.Errorf("%s (%s): %s", c.UserMessage, c.Kind, strings.Join(parts, "; "))
}
