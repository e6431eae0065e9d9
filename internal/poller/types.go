// internal/poller/types.go
package poller

import "time"

// State of a poll loop.
type State int32

const (
	Running State = iota
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is emitted once per observed position change.
type Event struct {
	ChannelID string
	Payload   int32
	At        time.Time
}

// PollResult is the outcome of one tick.
type PollResult struct {
	ChannelID string
	At        time.Time

	Position int32 // last observed position after this tick
	Changed  bool
	Next     time.Duration // delay before the next tick

	Err error // non-nil means the read failed; Position is unchanged
}
