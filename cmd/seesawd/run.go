// cmd/seesawd/run.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tamzrod/seesaw-poller/internal/app"
	"github.com/tamzrod/seesaw-poller/internal/bus/periph"
	"github.com/tamzrod/seesaw-poller/internal/config"
	"github.com/tamzrod/seesaw-poller/internal/logging"
)

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "run <config.yaml>",
		Short:         "Start polling every configured channel",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, rootOpts, args[0])
		},
	}
}

func runDaemon(ctx context.Context, opts *rootOptions, path string) error {
	cfg, err := loadConfig(opts, path)
	if err != nil {
		return err
	}

	log := logging.New(cfg.Logging, version)
	for _, fb := range config.Normalize(cfg) {
		log.Warn("config value replaced by default",
			"channel", fb.Channel,
			"field", fb.Field,
			"raw", fb.Raw,
			"used", fb.Used,
		)
	}

	log.Info("starting", "channels", len(cfg.Channels), "targets", len(cfg.Targets), "mqtt", cfg.MQTT.Enabled)

	if err := app.Run(ctx, cfg, app.Options{Opener: periph.Opener{}, Logger: log}); err != nil {
		log.Error("stopped with error", "error", err)
		return err
	}

	log.Info("stopped")
	return nil
}
