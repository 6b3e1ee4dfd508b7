package cli

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"tidings/internal/service"
)

// refreshCmd represents the refresh command
func refreshCmd() *cli.Command {
	return &cli.Command{
		Name:      "refresh",
		Usage:     "Fetch new articles for every feed, or a single one",
		ArgsUsage: "[feed url or name]",
		Action: func(ctx *cli.Context) error {
			return withRuntime(ctx, func(rt *runtime) error {
				if ctx.Args().Present() {
					feedURL, err := rt.resolveFeedURL(ctx.Args().First())
					if err != nil {
						return err
					}
					outcome, err := rt.refresh.RefreshFeed(ctx.Context, feedURL)
					if err != nil {
						printOutcome(outcome)
						return err
					}
					printOutcome(outcome)
					return nil
				}

				summary, err := rt.refresh.RefreshAll(ctx.Context)
				if err != nil {
					return err
				}
				for _, outcome := range summary.Outcomes {
					printOutcome(outcome)
				}
				fmt.Printf("%d new across %d feeds (%d failed) in %s\n",
					summary.NewArticles(), len(summary.Outcomes), summary.Failed(),
					summary.Duration.Round(time.Millisecond))
				return nil
			})
		},
	}
}

func printOutcome(outcome service.RefreshOutcome) {
	name := outcome.Feed.Name
	if name == "" {
		name = outcome.Feed.URL
	}
	switch {
	case outcome.Err != nil:
		fmt.Printf("  ✗ %s: %v\n", name, outcome.Err)
	case outcome.NotModified:
		fmt.Printf("  = %s: not modified\n", name)
	default:
		fmt.Printf("  ✓ %s: %d new\n", name, outcome.NewArticles)
	}
}
