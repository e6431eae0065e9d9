// internal/bus/serializer.go
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/seesaw-poller/internal/logging"
)

const (
	DefaultQueueSize = 16
	DefaultIOTimeout = 100 * time.Millisecond
)

// Options tune every Serializer created by a Registry.
type Options struct {
	// QueueSize bounds pending transactions per bus. Submitters block when full.
	QueueSize int
	// IOTimeout bounds each Write/Read. Negative disables the bound.
	IOTimeout time.Duration
	Logger    *slog.Logger
}

// Tx is the bus handle given to a transaction body.
// It is only valid for the duration of the body.
type Tx interface {
	Write(addr uint16, p []byte) error
	Read(addr uint16, p []byte) error
}

// Body is one multi-step transaction. It runs with exclusive use of the bus.
type Body func(ctx context.Context, tx Tx) error

// Result is what a future returned by Submit resolves to.
type Result[T any] struct {
	Value T
	Err   error
}

type job struct {
	body  Body
	reply func(error)
}

// Serializer runs transaction bodies one at a time, in submission order,
// against the Transport it owns. One worker goroutine per bus.
type Serializer struct {
	id        int
	tr        Transport
	ioTimeout time.Duration
	log       *slog.Logger

	jobs   chan job
	quit   chan struct{}
	exited chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex // guards closed against enqueue
	closed bool

	// set while a timed-out call is still running on the transport
	stalled atomic.Bool

	trMu         sync.Mutex
	stuck        chan struct{} // closed when the timed-out call returns
	closePending bool
}

func newSerializer(id int, tr Transport, opts Options) *Serializer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.IOTimeout == 0 {
		opts.IOTimeout = DefaultIOTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Serializer{
		id:        id,
		tr:        tr,
		ioTimeout: opts.IOTimeout,
		log:       logging.OrDiscard(opts.Logger).With("bus", id),
		jobs:      make(chan job, opts.QueueSize),
		quit:      make(chan struct{}),
		exited:    make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	go s.loop()
	return s
}

// ID returns the bus identifier.
func (s *Serializer) ID() int { return s.id }

// Do enqueues body and waits for it to finish.
// If ctx ends first, Do returns ctx.Err(); a body that already started still
// runs to completion and its result is dropped.
func (s *Serializer) Do(ctx context.Context, body Body) error {
	done := make(chan error, 1)
	if err := s.enqueue(ctx, job{body: body, reply: func(err error) { done <- err }}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues body and returns a future that resolves exactly once.
// It blocks only while the queue is full.
func Submit[T any](ctx context.Context, s *Serializer, body func(ctx context.Context, tx Tx) (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)

	var v T
	j := job{
		body: func(ctx context.Context, tx Tx) error {
			var err error
			v, err = body(ctx, tx)
			return err
		},
		reply: func(err error) {
			if err != nil {
				var zero T
				v = zero
			}
			out <- Result[T]{Value: v, Err: err}
		},
	}
	if err := s.enqueue(ctx, j); err != nil {
		out <- Result[T]{Err: err}
	}
	return out
}

// Pending is the number of queued transactions not yet started.
func (s *Serializer) Pending() int { return len(s.jobs) }

// Stalled reports whether a timed-out call is still outstanding.
func (s *Serializer) Stalled() bool { return s.stalled.Load() }

func (s *Serializer) enqueue(ctx context.Context, j job) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Serializer) loop() {
	defer close(s.exited)
	for {
		select {
		case <-s.quit:
			for {
				select {
				case j := <-s.jobs:
					j.reply(ErrClosed)
				default:
					return
				}
			}
		case j := <-s.jobs:
			j.reply(s.run(j.body))
		}
	}
}

func (s *Serializer) run(body Body) (err error) {
	if s.stalled.Load() {
		return ErrBusStalled
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bus %d: transaction panic: %v", s.id, r)
			s.log.Error("transaction panicked", "panic", r)
		}
	}()

	err = body(s.ctx, busTx{s: s})
	if err != nil {
		s.log.Debug("transaction failed", "error", err)
	}
	return err
}

// close stops the worker and fails whatever is still queued.
// The transport is closed separately by closeTransport.
func (s *Serializer) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.quit)
	<-s.exited
	s.cancel()
}

// closeTransport closes the transport once no call is running on it.
// A call abandoned by a timeout gets up to one more I/O timeout to return;
// after that the close is left to the goroutine waiting on that call.
func (s *Serializer) closeTransport() error {
	s.trMu.Lock()
	stuck := s.stuck
	s.trMu.Unlock()

	if stuck != nil {
		wait := time.NewTimer(s.ioTimeout)
		select {
		case <-stuck:
		case <-wait.C:
		}
		wait.Stop()
	}

	s.trMu.Lock()
	if s.stuck != nil {
		s.closePending = true
		s.trMu.Unlock()
		s.log.Warn("bus call still outstanding, transport close deferred until it returns")
		return nil
	}
	s.trMu.Unlock()
	return s.tr.Close()
}

type busTx struct {
	s *Serializer
}

func (t busTx) Write(addr uint16, p []byte) error {
	return t.s.io("write", addr, func() error { return t.s.tr.Write(addr, p) })
}

// Read fills p. After a timeout error p may still be written by the
// outstanding call and must not be reused.
func (t busTx) Read(addr uint16, p []byte) error {
	return t.s.io("read", addr, func() error { return t.s.tr.Read(addr, p) })
}

func (s *Serializer) io(op string, addr uint16, fn func() error) error {
	if s.stalled.Load() {
		return &IOError{Bus: s.id, Addr: addr, Op: op, Err: ErrBusStalled}
	}

	if s.ioTimeout < 0 {
		if err := fn(); err != nil {
			return &IOError{Bus: s.id, Addr: addr, Op: op, Err: err}
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(s.ioTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return &IOError{Bus: s.id, Addr: addr, Op: op, Err: err}
		}
		return nil
	case <-timer.C:
		stuck := make(chan struct{})
		s.trMu.Lock()
		s.stuck = stuck
		s.trMu.Unlock()
		s.stalled.Store(true)
		s.log.Warn("bus call timed out, failing queued transactions until it returns",
			"op", op, "addr", fmt.Sprintf("0x%02x", addr), "timeout", s.ioTimeout)
		go s.awaitStuck(done, stuck)
		return &IOError{Bus: s.id, Addr: addr, Op: op, Err: ErrTimeout}
	}
}

// awaitStuck clears the stalled state once the abandoned call returns, and
// performs a transport close that was deferred while it ran.
func (s *Serializer) awaitStuck(done <-chan error, stuck chan struct{}) {
	<-done

	s.trMu.Lock()
	s.stuck = nil
	pending := s.closePending
	close(stuck)
	s.trMu.Unlock()

	s.stalled.Store(false)
	s.log.Info("stalled bus call returned")

	if pending {
		if err := s.tr.Close(); err != nil {
			s.log.Warn("deferred transport close failed", "error", err)
		}
	}
}
