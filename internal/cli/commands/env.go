package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/postboard-dev/postboard/internal/cli/auth"
	"github.com/postboard-dev/postboard/internal/cli/serverselect"
	"github.com/postboard-dev/postboard/internal/cli/userconfig"
	"github.com/postboard-dev/postboard/internal/logger"
)

const (
	envUsername = "POSTBOARD_USERNAME"
	envPassword = "POSTBOARD_PASSWORD"
	envLogLevel = "POSTBOARD_LOG_LEVEL"
)

// Env carries the global flags and I/O shared by all commands
type Env struct {
	ServerAlias string
	LogLevel    string
	Out         io.Writer
	Prompt      Prompter

	// OpenApp builds the App for this invocation. Tests replace it.
	OpenApp func(ctx context.Context, env *Env) (*App, error)
}

// NewEnv returns an Env talking to the terminal
func NewEnv() *Env {
	level := os.Getenv(envLogLevel)
	if level == "" {
		level = "warn"
	}

	return &Env{
		LogLevel: level,
		Out:      os.Stdout,
		Prompt:   TerminalPrompter{},
		OpenApp:  openApp,
	}
}

// Start opens the App and silently refreshes the session, as on every start-up
func (e *Env) Start(ctx context.Context) (*App, error) {
	app, err := e.OpenApp(ctx, e)
	if err != nil {
		return nil, err
	}

	app.Session.CheckAuth(ctx)
	return app, nil
}

// openApp resolves the server and the credential backend from config files
func openApp(ctx context.Context, env *Env) (*App, error) {
	log := logger.New(env.LogLevel, "console", os.Stderr)

	server, err := serverselect.Resolve(env.ServerAlias)
	if err != nil {
		return nil, err
	}

	userCfg, err := userconfig.Load()
	if err != nil {
		return nil, err
	}

	var store auth.TokenStore
	switch userCfg.Storage() {
	case userconfig.TokenStorageFile:
		path, err := userconfig.CredentialsPath()
		if err != nil {
			return nil, err
		}
		store = auth.NewFileStore(path, server.URL)
	default:
		store = auth.NewKeyringStore(server.URL)
	}

	log.Debug().
		Str("server", server.URL).
		Str("storage", userCfg.Storage()).
		Msg("Opening session")

	app, err := NewApp(*server, store, env.Out, env.Prompt, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open session for %s: %w", server.URL, err)
	}
	return app, nil
}
