package commands

import (
	"github.com/spf13/cobra"
)

// showRoute starts the app and navigates to path, rendering with render when
// the guard lets the navigation through.
func showRoute(cmd *cobra.Command, env *Env, path string, render view) error {
	ctx := cmd.Context()

	app, err := env.Start(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Show(ctx, path, render)
}
