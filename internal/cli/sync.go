package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/urfave/cli/v2"
)

// syncCmd represents the sync command
func syncCmd() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize subscriptions and read state with the configured server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show the configured account and queue depth without syncing",
			},
		},
		Action: func(ctx *cli.Context) error {
			return withRuntime(ctx, func(rt *runtime) error {
				if ctx.Bool("status") {
					status, err := rt.sync.Status(ctx.Context)
					if err != nil {
						return err
					}
					if !status.Configured {
						fmt.Printf("No sync account configured. Run: %s login\n", ctx.App.Name)
						return nil
					}
					last := "never"
					if status.LastSyncAt != nil {
						last = status.LastSyncAt.Local().Format("2006-01-02 15:04:05")
					}
					fmt.Printf("Account: %s @ %s\n", status.Username, status.Server)
					fmt.Printf("Last sync: %s\n", last)
					fmt.Printf("Queued changes: %d\n", status.QueueLen)
					return nil
				}

				result, err := rt.sync.FullSync(ctx.Context)
				if err != nil {
					return err
				}

				fmt.Printf("Synced in %s: %d feeds added, %d removed, %d read flags applied, %d changes pushed\n",
					result.Duration.Round(time.Millisecond), result.AddedFeeds,
					len(result.RemovedFeeds), result.Applied, result.Pushed)
				for _, sub := range result.RemovedFeeds {
					fmt.Printf("  removed: %s (%s); its cached articles are kept\n", sub.Name, sub.URL)
				}
				if result.Unresolved > 0 {
					fmt.Printf("  %d queued changes had no remote article and were dropped\n", result.Unresolved)
				}
				for _, feedErr := range result.FeedErrors {
					fmt.Fprintf(os.Stderr, "  warning: %v\n", feedErr)
				}
				return nil
			})
		},
	}
}

// loginCmd represents the login command
func loginCmd() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Configure and verify a Reader-style sync account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "API root, e.g. https://rss.example.com/api/greader.php",
				EnvVars: []string{"TIDINGS_SYNC_SERVER"},
			},
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Account username",
				EnvVars: []string{"TIDINGS_SYNC_USERNAME"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Password or API token (prompted when omitted)",
				EnvVars: []string{"TIDINGS_SYNC_PASSWORD"},
			},
		},
		Action: func(ctx *cli.Context) error {
			server := ctx.String("server")
			if server == "" {
				answer, err := prompt.New().Ask("Server:").Input("https://freshrss.example.com/api/greader.php")
				if err != nil {
					return err
				}
				server = answer
			}

			username := ctx.String("username")
			if username == "" {
				answer, err := prompt.New().Ask("Username:").Input("")
				if err != nil {
					return err
				}
				username = answer
			}

			password := ctx.String("password")
			if password == "" {
				answer, err := prompt.New().Ask("Password:").Input("", input.WithEchoMode(input.EchoNone))
				if err != nil {
					return err
				}
				password = answer
			}

			return withRuntime(ctx, func(rt *runtime) error {
				if err := rt.sync.Login(ctx.Context, server, username, password); err != nil {
					return err
				}
				fmt.Printf("Login verified. Run: %s sync\n", ctx.App.Name)
				return nil
			})
		},
	}
}

// logoutCmd represents the logout command
func logoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Remove the sync account, its credentials and the pending queue",
		Action: func(ctx *cli.Context) error {
			return withRuntime(ctx, func(rt *runtime) error {
				if err := rt.sync.Logout(ctx.Context); err != nil {
					return err
				}
				fmt.Println("Logged out. Cached articles are kept.")
				return nil
			})
		},
	}
}
