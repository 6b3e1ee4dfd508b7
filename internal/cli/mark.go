package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// markCmd represents the mark command
func markCmd() *cli.Command {
	return &cli.Command{
		Name:      "mark",
		Usage:     "Change an article's read or starred state",
		ArgsUsage: "<feed url or name> [article key or number]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Mark every article in the feed read",
			},
			&cli.BoolFlag{
				Name:  "unread",
				Usage: "Mark as unread instead of read",
			},
			&cli.BoolFlag{
				Name:  "star",
				Usage: "Star the article (local only, never synced)",
			},
			&cli.BoolFlag{
				Name:  "unstar",
				Usage: "Remove the star",
			},
		},
		Action: func(ctx *cli.Context) error {
			if !ctx.Args().Present() {
				return fmt.Errorf("usage: %s mark <feed> [article]", ctx.App.Name)
			}
			return withRuntime(ctx, func(rt *runtime) error {
				feedURL, err := rt.resolveFeedURL(ctx.Args().First())
				if err != nil {
					return err
				}

				if ctx.Bool("all") {
					count, err := rt.articles.MarkAllRead(ctx.Context, feedURL)
					if err != nil {
						return err
					}
					fmt.Printf("%d articles marked read\n", count)
					return nil
				}

				if ctx.Args().Len() < 2 {
					return fmt.Errorf("an article key or number is required without --all")
				}
				key, err := rt.resolveArticleKey(feedURL, ctx.Args().Get(1))
				if err != nil {
					return err
				}

				if ctx.Bool("star") || ctx.Bool("unstar") {
					changed, err := rt.articles.SetStarred(feedURL, key, ctx.Bool("star"))
					if err != nil {
						return err
					}
					if !changed {
						fmt.Println("unchanged")
					}
					return nil
				}

				changed, err := rt.articles.MarkRead(ctx.Context, feedURL, key, !ctx.Bool("unread"))
				if err != nil {
					return err
				}
				if !changed {
					fmt.Println("unchanged")
				}
				return nil
			})
		},
	}
}
