// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/seesaw-poller/internal/bus"
	"github.com/tamzrod/seesaw-poller/internal/config"
	"github.com/tamzrod/seesaw-poller/internal/logging"
	"github.com/tamzrod/seesaw-poller/internal/mqtt"
	"github.com/tamzrod/seesaw-poller/internal/poller"
	"github.com/tamzrod/seesaw-poller/internal/writer"
)

// Sink receives every position change of every channel.
type Sink interface {
	Write(ev poller.Event) error
}

type Options struct {
	// Opener opens I2C buses. Required.
	Opener bus.Opener
	Logger *slog.Logger

	// Sinks are added next to the configured ones.
	Sinks []Sink
}

// Run builds every channel pipeline from a validated, normalized config and
// blocks until ctx ends. On return every poll loop has stopped, then the
// sinks and the buses are closed, in that order.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if opts.Opener == nil {
		return fmt.Errorf("app: bus opener required")
	}
	log := logging.OrDiscard(opts.Logger)

	reg := bus.NewRegistry(opts.Opener, bus.Options{
		QueueSize: cfg.Poll.QueueSize,
		IOTimeout: time.Duration(cfg.Poll.IOTimeoutMs) * time.Millisecond,
		Logger:    log,
	})
	defer func() {
		if err := reg.Close(); err != nil {
			log.Warn("bus close failed", "error", err)
		}
	}()

	// --------------------
	// Shared sinks
	// --------------------

	sinks := append([]Sink(nil), opts.Sinks...)

	if cfg.MQTT.Enabled {
		mq, err := mqtt.Connect(cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer mq.Close()
		log.Info("mqtt sink enabled", "client_id", mq.ClientID())
		sinks = append(sinks, mq)
	}

	clients, closeClients, err := writer.BuildEndpointClients(cfg.Targets)
	if err != nil {
		return fmt.Errorf("writer clients: %w", err)
	}
	defer func() {
		if err := closeClients(); err != nil {
			log.Warn("writer close failed", "error", err)
		}
	}()

	// --------------------
	// Per-channel pipelines
	// --------------------

	pipes := make([]*pipeline, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		p, err := poller.Build(ch, cfg.Poll, reg, log)
		if err != nil {
			return fmt.Errorf("channel %q: %w", ch.ID, err)
		}

		plan, err := writer.BuildPlan(ch, cfg.Targets)
		if err != nil {
			return fmt.Errorf("channel %q: %w", ch.ID, err)
		}

		chSinks := sinks
		if len(plan.Targets) > 0 {
			chSinks = append(append([]Sink(nil), sinks...), writer.New(plan, clients))
		}

		pipes = append(pipes, newPipeline(p, chSinks, statusWriter(plan, clients), log))
		log.Info("channel ready",
			"channel", ch.ID,
			"bus", ch.BusID(),
			"device", fmt.Sprintf("0x%02x", ch.Address()),
			"encoder", ch.EncoderIndex(),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, pl := range pipes {
		pl := pl
		g.Go(func() error {
			pl.run(gctx)
			return nil
		})
	}

	return g.Wait()
}

// statusWriter is nil when the channel has no status block.
func statusWriter(plan writer.Plan, clients map[string]writer.EndpointClient) writer.StatusWriter {
	if sw, ok := writer.NewStatusWriter(plan, clients); ok {
		return sw
	}
	return nil
}
