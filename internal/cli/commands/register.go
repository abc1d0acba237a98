package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postboard-dev/postboard/internal/cli/client"
	"github.com/postboard-dev/postboard/internal/cli/router"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(env *Env) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account on the selected server.

Usernames are at least 3 characters (letters, digits, '-' and '_'),
passwords at least 6 characters.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRoute(cmd, env, router.RegisterPath, func(ctx context.Context, app *App) error {
				return runRegister(ctx, app, username, password)
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set POSTBOARD_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set POSTBOARD_PASSWORD, will prompt if not provided)")

	return cmd
}

func runRegister(ctx context.Context, app *App, username, password string) error {
	username, err := valueOr(username, envUsername, func() (string, error) {
		return app.Prompt.Input("Username", required("username"))
	})
	if err != nil {
		return err
	}

	password, err = valueOr(password, envPassword, func() (string, error) {
		first, err := app.Prompt.Secret("Password")
		if err != nil {
			return "", err
		}
		confirm, err := app.Prompt.Secret("Confirm password")
		if err != nil {
			return "", err
		}
		if first != confirm {
			return "", fmt.Errorf("passwords do not match")
		}
		return first, nil
	})
	if err != nil {
		return err
	}

	if err := app.Session.Register(ctx, client.Credentials{Username: username, Password: password}); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintln(app.Out, "✓ Account created!")
	fmt.Fprintln(app.Out, "\nRun 'postboard login' to log in.")
	return nil
}
