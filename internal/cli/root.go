package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/postboard-dev/postboard/internal/cli/commands"
	"github.com/postboard-dev/postboard/internal/cli/router"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the postboard command tree around env
func NewRootCmd(env *commands.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "postboard",
		Short: "Postboard - read and publish posts from your terminal",
		Long: `Postboard CLI - read and publish posts on a Postboard server.

Run without a command to show the latest posts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := env.Start(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Show(ctx, router.HomePath, nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&env.ServerAlias, "server", "", "Server alias from postboard.json (or set POSTBOARD_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&env.LogLevel, "log-level", env.LogLevel, "Log level: trace, debug, info, warn, error (or set POSTBOARD_LOG_LEVEL)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(env.Out, "postboard version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd(env))
	rootCmd.AddCommand(commands.NewSelectServerCmd(env))
	rootCmd.AddCommand(commands.NewRegisterCmd(env))
	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewDashboardCmd(env))
	rootCmd.AddCommand(commands.NewAddCmd(env))

	return rootCmd
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	if err := NewRootCmd(commands.NewEnv()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
