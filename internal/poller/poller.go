// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/seesaw-poller/internal/logging"
)

const (
	DefaultStandardInterval = 200 * time.Millisecond
	DefaultShortInterval    = 8 * time.Millisecond
)

// PositionReader abstracts one serialized encoder read.
type PositionReader interface {
	ReadPosition(ctx context.Context, addr uint16, encoder uint8) (int32, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	ChannelID string
	Device    uint16
	Encoder   uint8

	// StandardInterval follows an unchanged or failed read,
	// ShortInterval follows a change.
	StandardInterval time.Duration
	ShortInterval    time.Duration

	Logger *slog.Logger
}

// Poller watches one encoder and polls faster while it is moving.
type Poller struct {
	cfg    Config
	reader PositionReader
	log    *slog.Logger

	last  atomic.Int32
	state atomic.Int32

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a poller in the Running state with last position 0.
func New(cfg Config, reader PositionReader) (*Poller, error) {
	if cfg.ChannelID == "" {
		return nil, errors.New("poller: channel id required")
	}
	if reader == nil {
		return nil, errors.New("poller: reader required")
	}
	if cfg.StandardInterval == 0 {
		cfg.StandardInterval = DefaultStandardInterval
	}
	if cfg.ShortInterval == 0 {
		cfg.ShortInterval = DefaultShortInterval
	}
	if cfg.StandardInterval < 0 || cfg.ShortInterval < 0 {
		return nil, errors.New("poller: intervals must be > 0")
	}

	return &Poller{
		cfg:    cfg,
		reader: reader,
		log:    logging.OrDiscard(cfg.Logger).With("channel", cfg.ChannelID),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

func (p *Poller) ChannelID() string { return p.cfg.ChannelID }

// Last is the last observed position.
func (p *Poller) Last() int32 { return p.last.Load() }

func (p *Poller) State() State { return State(p.state.Load()) }

// Stop asks the loop to finish. It is observed at the next tick boundary;
// a read already in flight completes and its result is discarded.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.state.CompareAndSwap(int32(Running), int32(Stopping))
		close(p.stop)
	})
}

// Done is closed once Run has returned and the poller is Stopped.
func (p *Poller) Done() <-chan struct{} { return p.done }

// PollOnce performs exactly one tick: read, compare, decide the next delay.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	pos, err := p.read(ctx)
	return p.apply(pos, err)
}

func (p *Poller) read(ctx context.Context) (int32, error) {
	return p.reader.ReadPosition(ctx, p.cfg.Device, p.cfg.Encoder)
}

func (p *Poller) apply(pos int32, err error) PollResult {
	res := PollResult{
		ChannelID: p.cfg.ChannelID,
		At:        time.Now(),
		Position:  p.last.Load(),
		Next:      p.cfg.StandardInterval,
	}

	// a failed read counts as "no change"
	if err != nil {
		res.Err = err
		return res
	}

	if pos != res.Position {
		p.last.Store(pos)
		res.Position = pos
		res.Changed = true
		res.Next = p.cfg.ShortInterval
	}
	return res
}

func (p *Poller) stopping() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}
