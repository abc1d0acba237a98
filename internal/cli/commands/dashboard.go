package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/postboard-dev/postboard/internal/cli/client"
	"github.com/postboard-dev/postboard/internal/cli/router"
)

const excerptLength = 60

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd(env *Env) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash", "ls"},
		Short:   "Show the latest posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 0 {
				return fmt.Errorf("page must be 1 or greater")
			}
			return showRoute(cmd, env, router.HomePath, func(ctx context.Context, app *App) error {
				return runDashboard(ctx, app, page)
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 0, "Page of 10 posts to show (all posts if not specified)")

	return cmd
}

func runDashboard(ctx context.Context, app *App, page int) error {
	if app.Session.IsLoggedIn() {
		fmt.Fprintf(app.Out, "Logged in to %s (%s)\n\n", app.Server.Alias, app.Server.URL)
	} else {
		fmt.Fprintf(app.Out, "Not logged in to %s. Run 'postboard login' to write posts.\n\n", app.Server.Alias)
	}

	posts, err := app.Session.Posts(ctx, page)
	if err != nil {
		return fmt.Errorf("failed to list posts: %w", err)
	}

	if len(posts.Posts) == 0 {
		fmt.Fprintln(app.Out, "No posts yet.")
		fmt.Fprintln(app.Out, "\nPublish one with: postboard add")
		return nil
	}

	renderPosts(app, posts.Posts)

	if page > 0 {
		fmt.Fprintf(app.Out, "\nPage %d, %d posts\n", page, posts.Count)
	}
	return nil
}

// renderPosts displays posts in a table
func renderPosts(app *App, posts []client.Post) {
	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tAUTHOR\tPOSTED\tCONTENT")
	fmt.Fprintln(w, "─────\t──────\t──────\t───────")
	for _, post := range posts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			post.Title,
			post.User,
			formatDate(post.Date),
			excerpt(post.Content),
		)
	}
	w.Flush()
}

func formatDate(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).Local().Format("2006-01-02 15:04")
}

// excerpt returns the first line of content, cut to excerptLength runes
func excerpt(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	runes := []rune(line)
	if len(runes) > excerptLength {
		return string(runes[:excerptLength-1]) + "…"
	}
	return line
}
