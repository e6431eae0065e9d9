// internal/app/pipeline.go
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamzrod/seesaw-poller/internal/poller"
	"github.com/tamzrod/seesaw-poller/internal/status"
	"github.com/tamzrod/seesaw-poller/internal/writer"
)

// pipeline owns one poll loop, its status tracker and its sinks.
type pipeline struct {
	p      *poller.Poller
	sinks  []Sink
	status writer.StatusWriter // nil when disabled
	track  *status.Tracker
	log    *slog.Logger

	tick time.Duration
}

func newPipeline(p *poller.Poller, sinks []Sink, sw writer.StatusWriter, log *slog.Logger) *pipeline {
	return &pipeline{
		p:      p,
		sinks:  sinks,
		status: sw,
		track:  status.NewTracker(),
		log:    log.With("channel", p.ChannelID()),
		tick:   time.Second,
	}
}

// run blocks until ctx ends, then stops the poll loop and waits for it.
func (pl *pipeline) run(ctx context.Context) {
	events := make(chan poller.Event)
	results := make(chan poller.PollResult)

	// Stop is the only way the loop ends; ctx only bounds this goroutine.
	go pl.p.Run(context.WithoutCancel(ctx), events, results)

	secTicker := time.NewTicker(pl.tick)
	defer secTicker.Stop()

	// identity re-assert on start
	pl.writeStatus(pl.track.Snapshot())

	for {
		select {
		case <-ctx.Done():
			pl.p.Stop()
			<-pl.p.Done()
			pl.writeStatus(pl.track.Stop())
			pl.log.Info("channel stopped", "position", pl.p.Last())
			return

		case ev := <-events:
			pl.log.Debug("position", "payload", ev.Payload)
			for _, s := range pl.sinks {
				if err := s.Write(ev); err != nil {
					pl.log.Warn("sink write failed", "error", err)
				}
			}

		case res := <-results:
			if snap, changed := pl.track.Observe(res.Err, res.Position); changed {
				pl.writeStatus(snap)
			}

		case <-secTicker.C:
			if snap, changed := pl.track.Tick(); changed {
				pl.writeStatus(snap)
			}
		}
	}
}

func (pl *pipeline) writeStatus(s status.Snapshot) {
	if pl.status == nil {
		return
	}
	if err := pl.status.WriteStatus(s); err != nil {
		pl.log.Warn("status write failed", "error", err)
	}
}
