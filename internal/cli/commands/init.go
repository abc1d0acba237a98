package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/postboard-dev/postboard/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd(env *Env) *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Add a Postboard server to ./postboard.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(env.Out, args[0], alias)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Server alias (defaults to server-N)")

	return cmd
}

func runInit(out io.Writer, rawURL, alias string) error {
	server := config.Server{URL: config.NormalizeURL(rawURL), Alias: alias}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{
			Servers: []config.Server{},
		}
		isNewConfig = true
	}

	if existing, err := cfg.GetServerByURL(server.URL); err == nil {
		fmt.Fprintf(out, "Server %s already exists in %s as %s\n", server.URL, config.ConfigFileName, existing.Alias)
		return nil
	}

	if server.Alias == "" {
		server.Alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
	}
	if _, err := cfg.GetServerByAlias(server.Alias); err == nil {
		return fmt.Errorf("alias %q is already used in %s", server.Alias, config.ConfigFileName)
	}

	if err := server.Validate(); err != nil {
		return err
	}

	cfg.Servers = append(cfg.Servers, server)
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, server.URL, server.Alias)
	} else {
		fmt.Fprintf(out, "✓ Added server %s (%s) to ./%s\n", server.URL, server.Alias, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'postboard register' to create an account")
	fmt.Fprintln(out, "  2. Run 'postboard login' to authenticate")

	return nil
}
