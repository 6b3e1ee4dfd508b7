package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// addCmd represents the add command
func addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Subscribe to a feed, discovering it from a page URL if needed",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Folder to file the subscription under",
			},
			&cli.StringFlag{
				Name:    "title",
				Aliases: []string{"t"},
				Usage:   "Display name override",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "List every discovered feed candidate instead of subscribing",
			},
		},
		Action: func(ctx *cli.Context) error {
			if !ctx.Args().Present() {
				return fmt.Errorf("usage: %s add <url>", ctx.App.Name)
			}
			input := ctx.Args().First()

			return withRuntime(ctx, func(rt *runtime) error {
				if ctx.Bool("list") {
					candidates, err := rt.feeds.Discover(ctx.Context, input)
					if err != nil {
						return err
					}
					for _, candidate := range candidates {
						title := candidate.Title
						if title == "" {
							title = "(untitled)"
						}
						fmt.Printf("  %s  %s\n", candidate.URL, title)
					}
					return nil
				}

				sub, outcome, err := rt.feeds.Subscribe(ctx.Context, input, ctx.String("folder"), ctx.String("title"))
				if err != nil {
					return err
				}
				fmt.Printf("Subscribed to %s (%s)\n", sub.Name, sub.URL)
				printOutcome(outcome)
				return nil
			})
		},
	}
}
