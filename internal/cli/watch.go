package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"tidings/internal/scheduler"
)

// watchCmd represents the watch command
func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep refreshing on an interval until interrupted",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Minutes between refresh cycles (defaults to refresh_interval from the config)",
				EnvVars: []string{"TIDINGS_REFRESH_INTERVAL"},
			},
		},
		Action: func(ctx *cli.Context) error {
			return withRuntime(ctx, func(rt *runtime) error {
				minutes := ctx.Int("interval")
				if minutes <= 0 {
					minutes = rt.cfg.RefreshInterval
				}
				if minutes <= 0 {
					minutes = 30
				}

				sched := scheduler.New(rt.refresh, time.Duration(minutes)*time.Minute)
				sched.Start()
				fmt.Printf("Refreshing every %d minutes. Ctrl-C to stop.\n", minutes)

				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				<-sigCh

				fmt.Println("shutting down...")
				sched.Stop()
				return nil
			})
		},
	}
}
