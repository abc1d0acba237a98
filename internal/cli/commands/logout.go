package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and revoke the session on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := env.Start(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			return runLogout(ctx, app)
		},
	}
}

func runLogout(ctx context.Context, app *App) error {
	if !app.Session.IsLoggedIn() {
		fmt.Fprintln(app.Out, "Not logged in.")
		return nil
	}

	if err := app.Session.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	fmt.Fprintln(app.Out, "✓ Logged out")
	return nil
}
