package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/postboard-dev/postboard/internal/cli/auth"
	"github.com/postboard-dev/postboard/internal/cli/client"
	"github.com/postboard-dev/postboard/internal/cli/config"
	"github.com/postboard-dev/postboard/internal/cli/router"
	"github.com/postboard-dev/postboard/internal/cli/session"
	"github.com/postboard-dev/postboard/internal/metrics"
)

// view renders one route
type view func(ctx context.Context, app *App) error

// App is one client session against one server: the session store, the API
// client sharing it, and the router that guards every view.
type App struct {
	Server  config.Server
	Session *session.Service
	Router  *router.Router
	Prompt  Prompter
	Out     io.Writer

	api    *client.Client
	logger zerolog.Logger
	views  map[string]view
}

// NewApp wires the session store, the persistent cookie jar, the API client and
// the router for server. Credentials are read from and written to store.
func NewApp(server config.Server, store auth.TokenStore, out io.Writer, prompt Prompter, logger zerolog.Logger, opts ...client.Option) (*App, error) {
	sessionStore, err := session.NewStore(store, logger)
	if err != nil {
		return nil, err
	}

	jar, err := client.NewPersistentJar(store, logger)
	if err != nil {
		return nil, err
	}

	opts = append([]client.Option{client.WithCookieJar(jar), client.WithLogger(logger)}, opts...)
	api := client.New(server.URL, sessionStore, opts...)
	svc := session.NewService(sessionStore, api, logger)

	app := &App{
		Server:  server,
		Session: svc,
		Router:  router.New(router.DefaultRoutes(), svc),
		Prompt:  prompt,
		Out:     out,
		api:     api,
		logger:  logger,
	}

	// Views rendered when a navigation lands on a route without explicit input
	app.views = map[string]view{
		router.HomePath:     func(ctx context.Context, a *App) error { return runDashboard(ctx, a, 0) },
		router.LoginPath:    func(ctx context.Context, a *App) error { return runLogin(ctx, a, "", "") },
		router.RegisterPath: func(ctx context.Context, a *App) error { return runRegister(ctx, a, "", "") },
		router.AddPostPath:  func(ctx context.Context, a *App) error { return runAddPost(ctx, a, "", "") },
	}

	return app, nil
}

// Close releases the client's connections and logs the refresh counters for the
// run. The session store writes through, so there is nothing to flush.
func (a *App) Close() error {
	a.api.Close()

	stats := metrics.Client()
	a.logger.Debug().
		Float64("token_refreshes", stats.Refreshes).
		Float64("token_refresh_failures", stats.RefreshFailures).
		Float64("request_retries", stats.Retries).
		Msg("Client session closed")
	return nil
}

// Show navigates to path and renders where the guard lands. render is used when
// the guard allows path itself; a redirect renders the target's default view.
func (a *App) Show(ctx context.Context, path string, render view) error {
	route, err := a.Router.Navigate(path)
	if err != nil {
		return err
	}

	if route.Path != path || render == nil {
		if route.Path != path {
			a.logger.Debug().Str("from", path).Str("to", route.Path).Msg("Navigation redirected")
			fmt.Fprintf(a.Out, "%s\n", redirectNotice(route.Path))
		}
		render = a.views[route.Path]
	}

	return render(ctx, a)
}

func redirectNotice(target string) string {
	switch target {
	case router.LoginPath:
		return "You need to log in first."
	case router.HomePath:
		return "You are already logged in."
	default:
		return "Redirected to " + target
	}
}
