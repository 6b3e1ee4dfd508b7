package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"tidings/internal/config"
	"tidings/internal/network"
	"tidings/internal/update"
)

// versionCmd represents the version command
func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the version, optionally checking GitHub for a newer release",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Query the release API for the latest version",
			},
		},
		Action: func(ctx *cli.Context) error {
			fmt.Printf("%s %s\n", config.AppName, config.AppVersion)
			if !ctx.Bool("check") {
				return nil
			}

			checker := update.NewChecker(network.NewClientFactory(nil))
			result, err := checker.Check(ctx.Context)
			if err != nil {
				return fmt.Errorf("update check: %w", err)
			}
			if result.Available {
				fmt.Printf("Update available: %s -> %s\n", result.Current, result.Latest)
				if result.URL != "" {
					fmt.Println(result.URL)
				}
			} else {
				fmt.Println("Up to date.")
			}
			return nil
		},
	}
}
