// cmd/seesawd/validate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tamzrod/seesaw-poller/internal/config"
)

func newValidateCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate <config.yaml>",
		Short:         "Load and validate a config file, listing defaulted values",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, fb := range config.Normalize(cfg) {
				fmt.Fprintf(out, "channel %s: %s %q replaced by %d\n", fb.Channel, fb.Field, fb.Raw, fb.Used)
			}
			for _, ch := range cfg.Channels {
				fmt.Fprintf(out, "channel %s: bus=%d device=0x%02x encoder=%d\n",
					ch.ID, ch.BusID(), ch.Address(), ch.EncoderIndex())
			}
			fmt.Fprintln(out, "config ok")
			return nil
		},
	}
}

// loadConfig reads and validates; --log-level wins over the file.
func loadConfig(opts *rootOptions, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
