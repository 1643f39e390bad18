package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rafaelspotto/helthgo/internal/platform/logging"
	"github.com/rafaelspotto/helthgo/internal/platform/version"
	"github.com/rafaelspotto/helthgo/internal/simulator"
	"github.com/spf13/cobra"
)

func main() {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:          "simulator",
		Short:        "HealthGo bedside monitor simulator",
		Version:      version.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitLogger(logLevel, logFormat, "")
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "text or json")

	root.AddCommand(runCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var url string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "run [recording.csv...]",
		Short: "Replay one or more patient recordings, one connection per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sim := simulator.New(simulator.Config{
				URL:       url,
				Interval:  interval,
				UserAgent: version.UserAgent(simulator.UserAgent),
			}, clockwork.NewRealClock())

			return sim.Run(ctx, args)
		},
	}

	cmd.Flags().StringVar(&url, "url", "ws://localhost:8080/ws", "server WebSocket endpoint")
	cmd.Flags().DurationVar(&interval, "interval", simulator.DefaultInterval, "delay between readings of one recording")
	return cmd
}
