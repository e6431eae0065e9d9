// internal/poller/builder.go
package poller

import (
	"log/slog"
	"time"

	"github.com/tamzrod/seesaw-poller/internal/bus"
	cfg "github.com/tamzrod/seesaw-poller/internal/config"
	"github.com/tamzrod/seesaw-poller/internal/seesaw"
)

// Build constructs a Poller for one normalized channel.
// The bus is opened through the registry, so channels on the same bus share
// one serializer. Bus lifetime belongs to the registry, not the poller.
func Build(ch cfg.ChannelConfig, poll cfg.PollConfig, reg *bus.Registry, log *slog.Logger) (*Poller, error) {
	s, err := reg.Get(ch.BusID())
	if err != nil {
		return nil, err
	}

	return New(
		Config{
			ChannelID:        ch.Name(),
			Device:           ch.Address(),
			Encoder:          ch.EncoderIndex(),
			StandardInterval: time.Duration(poll.StandardIntervalMs) * time.Millisecond,
			ShortInterval:    time.Duration(poll.ShortIntervalMs) * time.Millisecond,
			Logger:           log,
		},
		seesaw.NewReader(s),
	)
}
