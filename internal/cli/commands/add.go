package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postboard-dev/postboard/internal/cli/client"
	"github.com/postboard-dev/postboard/internal/cli/router"
)

// NewAddCmd creates the add command
func NewAddCmd(env *Env) *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Publish a new post",
		Long: `Publish a new post as the logged in user.

Title and content are prompted for unless given as flags. If you are not
logged in you are asked to log in first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRoute(cmd, env, router.AddPostPath, func(ctx context.Context, app *App) error {
				return runAddPost(ctx, app, title, content)
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Post title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "Post content")

	return cmd
}

func runAddPost(ctx context.Context, app *App, title, content string) error {
	title, err := valueOr(title, "", func() (string, error) {
		return app.Prompt.Input("Title", required("title"))
	})
	if err != nil {
		return err
	}

	content, err = valueOr(content, "", func() (string, error) {
		return app.Prompt.Input("Content", required("content"))
	})
	if err != nil {
		return err
	}

	post, err := app.Session.AddPost(ctx, client.NewPost{Title: title, Content: content})
	if err != nil {
		return fmt.Errorf("failed to add post: %w", err)
	}

	// Older servers answer 201 without a body
	if post.ID == "" {
		fmt.Fprintf(app.Out, "✓ Post '%s' published\n", title)
		return nil
	}
	fmt.Fprintf(app.Out, "✓ Post '%s' published (%s)\n", title, post.ID)
	return nil
}
