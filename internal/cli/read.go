package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"tidings/internal/feed"
)

// readCmd represents the read command
func readCmd() *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Print an article and mark it read",
		ArgsUsage: "<feed url or name> <article key or number>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "Show the feed's own summary without fetching the full page",
			},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.Args().Len() < 2 {
				return fmt.Errorf("usage: %s read <feed> <article>", ctx.App.Name)
			}
			return withRuntime(ctx, func(rt *runtime) error {
				feedURL, err := rt.resolveFeedURL(ctx.Args().First())
				if err != nil {
					return err
				}
				key, err := rt.resolveArticleKey(feedURL, ctx.Args().Get(1))
				if err != nil {
					return err
				}
				article, err := rt.articles.Article(feedURL, key)
				if err != nil {
					return err
				}

				var body string
				if !ctx.Bool("summary") {
					content, err := rt.content.FetchContent(ctx.Context, feedURL, key)
					if err != nil {
						fmt.Fprintf(os.Stderr, "full content unavailable (%v), showing summary\n", err)
					} else {
						body = feed.StripMarkup(content)
					}
				}
				if body == "" && article.Summary != nil {
					body = *article.Summary
				}

				fmt.Println(article.Title)
				if article.Author != nil {
					fmt.Printf("by %s\n", *article.Author)
				}
				if article.PublishedAt != nil {
					fmt.Println(article.PublishedAt.Local().Format("2006-01-02 15:04"))
				}
				if article.Link != nil {
					fmt.Println(*article.Link)
				}
				fmt.Println()
				if body != "" {
					fmt.Println(body)
				} else {
					fmt.Println("(no content cached)")
				}

				_, err = rt.articles.MarkRead(ctx.Context, feedURL, key, true)
				return err
			})
		},
	}
}
