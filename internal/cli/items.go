package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

// itemsCmd represents the items command
func itemsCmd() *cli.Command {
	return &cli.Command{
		Name:      "items",
		Usage:     "List a feed's cached articles, newest first",
		ArgsUsage: "<feed url or name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "unread",
				Aliases: []string{"u"},
				Usage:   "Only unread articles",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   25,
				Usage:   "Maximum number of articles (0 = all)",
			},
		},
		Action: func(ctx *cli.Context) error {
			if !ctx.Args().Present() {
				return fmt.Errorf("usage: %s items <feed>", ctx.App.Name)
			}
			return withRuntime(ctx, func(rt *runtime) error {
				feedURL, err := rt.resolveFeedURL(ctx.Args().First())
				if err != nil {
					return err
				}
				articles, err := rt.articles.Articles(feedURL, ctx.Bool("unread"), ctx.Int("limit"))
				if err != nil {
					return err
				}
				if len(articles) == 0 {
					fmt.Println("No articles cached. Run a refresh first.")
					return nil
				}

				// Numbers index the unfiltered newest-first list, so
				// they stay valid as arguments to read and mark.
				position := make(map[string]int)
				if full, ok := rt.store.Articles(feedURL); ok {
					for i, article := range full {
						position[article.Key] = i + 1
					}
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				for _, article := range articles {
					marker := " "
					if !article.Read {
						marker = "●"
					}
					if article.Starred {
						marker += "★"
					}
					date := "-"
					if article.PublishedAt != nil {
						date = article.PublishedAt.Local().Format("2006-01-02")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", position[article.Key], marker, date, article.Title)
				}
				return w.Flush()
			})
		},
	}
}
