// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run ticks until Stop is called or ctx ends.
// Changes are sent on out; every tick result, failures included, is sent on
// results when it is non-nil. Read errors never end the loop.
// Run must be called at most once.
func (p *Poller) Run(ctx context.Context, out chan<- Event, results chan<- PollResult) {
	defer p.finish()

	// first tick is immediate
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-timer.C:
		}

		if p.stopping() {
			return
		}

		pos, err := p.read(ctx)
		if p.stopping() || ctx.Err() != nil {
			// in-flight result is dropped
			return
		}

		res := p.apply(pos, err)
		if res.Err != nil {
			p.log.Warn("position read failed", "error", res.Err)
		}

		if res.Changed {
			p.log.Debug("position changed", "position", res.Position)
			ev := Event{ChannelID: res.ChannelID, Payload: res.Position, At: res.At}
			if !deliver(ctx, p.stop, out, ev) {
				return
			}
		}

		if results != nil && !deliver(ctx, p.stop, results, res) {
			return
		}

		timer.Reset(res.Next)
	}
}

func deliver[T any](ctx context.Context, stop <-chan struct{}, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	}
}

func (p *Poller) finish() {
	p.state.Store(int32(Stopped))
	close(p.done)
}
