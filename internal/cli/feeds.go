package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

// feedsCmd represents the feeds command
func feedsCmd() *cli.Command {
	return &cli.Command{
		Name:  "feeds",
		Usage: "List subscriptions with unread counts and fetch health",
		Action: func(ctx *cli.Context) error {
			return withRuntime(ctx, func(rt *runtime) error {
				statuses := rt.articles.Overview()
				if len(statuses) == 0 {
					fmt.Printf("No subscriptions yet. Add one with: %s add <url>\n", ctx.App.Name)
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "FOLDER\tFEED\tUNREAD\tLAST FETCHED\tSTATUS")
				for _, status := range statuses {
					folder := status.Feed.Folder
					if folder == "" {
						folder = "-"
					}
					fetched := "never"
					if status.LastFetchedAt != nil {
						fetched = status.LastFetchedAt.Local().Format("2006-01-02 15:04")
					}
					state := "ok"
					if status.LastError != nil {
						state = "error: " + *status.LastError
					}
					fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
						folder, status.Feed.Name, status.Unread, status.Total, fetched, state)
				}
				return w.Flush()
			})
		},
	}
}
