package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postboard-dev/postboard/internal/cli/client"
	"github.com/postboard-dev/postboard/internal/cli/router"
)

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to a Postboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRoute(cmd, env, router.LoginPath, func(ctx context.Context, app *App) error {
				return runLogin(ctx, app, username, password)
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set POSTBOARD_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set POSTBOARD_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, app *App, username, password string) error {
	username, err := valueOr(username, envUsername, func() (string, error) {
		return app.Prompt.Input("Username", required("username"))
	})
	if err != nil {
		return err
	}

	password, err = valueOr(password, envPassword, func() (string, error) {
		return app.Prompt.Secret("Password")
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Logging in to %s (%s)...\n", app.Server.Alias, app.Server.URL)

	if _, err := app.Session.Login(ctx, client.Credentials{Username: username, Password: password}); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintln(app.Out, "✓ Login successful!")
	return app.Show(ctx, router.HomePath, nil)
}
