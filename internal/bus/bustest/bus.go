// internal/bus/bustest/bus.go

// Package bustest provides an in-memory bus that behaves like a set of
// seesaw controllers, for tests.
package bustest

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

// Op is one recorded call on the fake bus.
type Op struct {
	Kind  string // "write" or "read"
	Addr  uint16
	Data  []byte
	Start time.Time
	End   time.Time
}

type regKey struct {
	addr uint16
	reg  byte
}

// Bus is a fake transport. Writes select a register per device address;
// reads return the next queued value for that register as a big-endian int32.
type Bus struct {
	// Latency is added to every call.
	Latency time.Duration

	mu        sync.Mutex
	ops       []Op
	active    int
	maxActive int
	selected  map[uint16]byte
	values    map[regKey][]int32
	failures  []failure
	hold      chan struct{}
	closed    bool
	closedIn  bool
}

type failure struct {
	kind string
	err  error
}

// ErrClosed is returned by calls after Close.
var ErrClosed = errors.New("bustest: closed")

func New() *Bus {
	return &Bus{
		selected: make(map[uint16]byte),
		values:   make(map[regKey][]int32),
	}
}

// SetValues queues values returned by successive reads of register reg on addr.
// The last value repeats once the queue is drained.
func (b *Bus) SetValues(addr uint16, reg byte, vals ...int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[regKey{addr, reg}] = append([]int32(nil), vals...)
}

// FailNext makes the next call of kind ("write" or "read") return err.
func (b *Bus) FailNext(kind string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, failure{kind: kind, err: err})
}

// Hold blocks every subsequent call until the returned release func is called.
func (b *Bus) Hold() (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.hold = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.hold == ch {
				b.hold = nil
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Write(addr uint16, p []byte) error {
	start, hold, err := b.begin("write")
	if hold != nil {
		<-hold
	}
	if b.Latency > 0 {
		time.Sleep(b.Latency)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.end(Op{Kind: "write", Addr: addr, Data: append([]byte(nil), p...), Start: start})
	if err != nil {
		return err
	}
	if len(p) >= 2 {
		b.selected[addr] = p[1]
	}
	return nil
}

func (b *Bus) Read(addr uint16, p []byte) error {
	start, hold, err := b.begin("read")
	if hold != nil {
		<-hold
	}
	if b.Latency > 0 {
		time.Sleep(b.Latency)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		key := regKey{addr, b.selected[addr]}
		var v int32
		if q := b.values[key]; len(q) > 0 {
			v = q[0]
			if len(q) > 1 {
				b.values[key] = q[1:]
			}
		}
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(v))
		copy(p, buf[:])
	}
	b.end(Op{Kind: "read", Addr: addr, Data: append([]byte(nil), p...), Start: start})
	return err
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.active > 0 {
		b.closedIn = true
	}
	return nil
}

// ClosedDuringCall reports whether Close ran while a Write or Read was in flight.
func (b *Bus) ClosedDuringCall() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closedIn
}

// Closed reports whether Close was called.
func (b *Bus) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Ops returns a copy of the recorded calls in completion order.
func (b *Bus) Ops() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Op(nil), b.ops...)
}

// MaxConcurrent is the highest number of calls observed in flight at once.
func (b *Bus) MaxConcurrent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxActive
}

func (b *Bus) begin(kind string) (time.Time, chan struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}

	var err error
	if b.closed {
		err = ErrClosed
	}
	for i, f := range b.failures {
		if f.kind == kind {
			err = f.err
			b.failures = append(b.failures[:i], b.failures[i+1:]...)
			break
		}
	}
	return time.Now(), b.hold, err
}

// caller holds lock
func (b *Bus) end(op Op) {
	op.End = time.Now()
	b.ops = append(b.ops, op)
	b.active--
}
