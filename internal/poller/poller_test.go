// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/seesaw-poller/internal/bus"
	"github.com/tamzrod/seesaw-poller/internal/bus/bustest"
	cfg "github.com/tamzrod/seesaw-poller/internal/config"
	"github.com/tamzrod/seesaw-poller/internal/seesaw"
)

type step struct {
	pos int32
	err error
}

// fakeReader replays scripted steps; the last step repeats.
type fakeReader struct {
	mu    sync.Mutex
	steps []step
	calls int
	at    []time.Time

	// gate, when set, blocks the call with that index until closed
	gateAt int
	gate   chan struct{}
	inside chan struct{}
}

func (f *fakeReader) ReadPosition(ctx context.Context, addr uint16, encoder uint8) (int32, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.at = append(f.at, time.Now())
	var s step
	if len(f.steps) > 0 {
		s = f.steps[min(i, len(f.steps)-1)]
	}
	gate := f.gate
	block := gate != nil && i == f.gateAt
	f.mu.Unlock()

	if block {
		close(f.inside)
		<-gate
	}
	return s.pos, s.err
}

func (f *fakeReader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeReader) Times() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.at...)
}

func testConfig() Config {
	return Config{
		ChannelID:        "ch1",
		Device:           0x49,
		StandardInterval: 20 * time.Millisecond,
		ShortInterval:    time.Millisecond,
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New(Config{ChannelID: "a"}, &fakeReader{})
	require.NoError(t, err)
	assert.Equal(t, DefaultStandardInterval, p.cfg.StandardInterval)
	assert.Equal(t, DefaultShortInterval, p.cfg.ShortInterval)
	assert.Equal(t, Running, p.State())
	assert.Equal(t, int32(0), p.Last())
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(Config{}, &fakeReader{})
	assert.Error(t, err)

	_, err = New(Config{ChannelID: "a"}, nil)
	assert.Error(t, err)

	_, err = New(Config{ChannelID: "a", ShortInterval: -time.Millisecond}, &fakeReader{})
	assert.Error(t, err)
}

func TestPollOnce_AdaptiveInterval(t *testing.T) {
	r := &fakeReader{steps: []step{{pos: 0}, {pos: 5}, {pos: 5}}}
	p, err := New(testConfig(), r)
	require.NoError(t, err)

	ctx := context.Background()

	res := p.PollOnce(ctx)
	assert.NoError(t, res.Err)
	assert.False(t, res.Changed)
	assert.Equal(t, 20*time.Millisecond, res.Next)

	res = p.PollOnce(ctx)
	assert.True(t, res.Changed)
	assert.Equal(t, int32(5), res.Position)
	assert.Equal(t, time.Millisecond, res.Next)

	res = p.PollOnce(ctx)
	assert.False(t, res.Changed)
	assert.Equal(t, 20*time.Millisecond, res.Next)
	assert.Equal(t, int32(5), p.Last())
}

func TestPollOnce_FailureIsNoChange(t *testing.T) {
	boom := errors.New("boom")
	r := &fakeReader{steps: []step{{pos: 7}, {err: boom}, {pos: 7}}}
	p, err := New(testConfig(), r)
	require.NoError(t, err)

	ctx := context.Background()

	res := p.PollOnce(ctx)
	require.True(t, res.Changed)

	res = p.PollOnce(ctx)
	assert.ErrorIs(t, res.Err, boom)
	assert.False(t, res.Changed)
	assert.Equal(t, int32(7), res.Position)
	assert.Equal(t, 20*time.Millisecond, res.Next)

	// same value after a failure is still unchanged
	res = p.PollOnce(ctx)
	assert.NoError(t, res.Err)
	assert.False(t, res.Changed)
}

func TestRun_EmitsOnlyChanges(t *testing.T) {
	r := &fakeReader{steps: []step{{pos: 0}, {pos: 5}, {pos: 5}, {pos: -3}}}
	p, err := New(testConfig(), r)
	require.NoError(t, err)

	out := make(chan Event, 8)
	results := make(chan PollResult, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go p.Run(ctx, out, results)

	for i := 0; i < 4; i++ {
		select {
		case <-results:
		case <-ctx.Done():
			t.Fatal("timed out waiting for ticks")
		}
	}
	p.Stop()
	<-p.Done()
	close(out)

	var got []int32
	for ev := range out {
		assert.Equal(t, "ch1", ev.ChannelID)
		got = append(got, ev.Payload)
	}
	assert.Equal(t, []int32{5, -3}, got)
	assert.Equal(t, Stopped, p.State())
}

func TestRun_DefaultCadence(t *testing.T) {
	r := &fakeReader{steps: []step{{pos: 0}, {pos: 5}, {pos: 5}, {pos: 5}}}
	p, err := New(Config{ChannelID: "ch1"}, r)
	require.NoError(t, err)

	out := make(chan Event, 8)
	results := make(chan PollResult, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go p.Run(ctx, out, results)

	for i := 0; i < 4; i++ {
		select {
		case <-results:
		case <-ctx.Done():
			t.Fatal("timed out waiting for ticks")
		}
	}
	p.Stop()
	<-p.Done()
	close(out)

	at := r.Times()
	require.GreaterOrEqual(t, len(at), 4)

	// unchanged, changed, unchanged
	assert.GreaterOrEqual(t, at[1].Sub(at[0]), DefaultStandardInterval)
	assert.GreaterOrEqual(t, at[2].Sub(at[1]), DefaultShortInterval)
	assert.Less(t, at[2].Sub(at[1]), DefaultStandardInterval/2)
	assert.GreaterOrEqual(t, at[3].Sub(at[2]), DefaultStandardInterval)

	var got []int32
	for ev := range out {
		got = append(got, ev.Payload)
	}
	assert.Equal(t, []int32{5}, got)
}

func TestRun_ErrorsDoNotEndLoop(t *testing.T) {
	boom := errors.New("boom")
	r := &fakeReader{steps: []step{{err: boom}, {err: boom}, {pos: 9}}}
	pc := testConfig()
	pc.StandardInterval = time.Millisecond
	p, err := New(pc, r)
	require.NoError(t, err)

	out := make(chan Event, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go p.Run(ctx, out, nil)

	select {
	case ev := <-out:
		assert.Equal(t, int32(9), ev.Payload)
	case <-ctx.Done():
		t.Fatal("no event after errors")
	}
	p.Stop()
	<-p.Done()
}

func TestRun_StopDropsInFlightRead(t *testing.T) {
	r := &fakeReader{
		steps:  []step{{pos: 0}, {pos: 42}},
		gateAt: 1,
		gate:   make(chan struct{}),
		inside: make(chan struct{}),
	}
	pc := testConfig()
	pc.StandardInterval = time.Millisecond
	p, err := New(pc, r)
	require.NoError(t, err)

	out := make(chan Event, 1)
	go p.Run(context.Background(), out, nil)

	<-r.inside
	p.Stop()
	assert.Equal(t, Stopping, p.State())

	// the read still completes
	close(r.gate)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}

	assert.Equal(t, Stopped, p.State())
	assert.Equal(t, 2, r.Calls())
	assert.Empty(t, out)
	assert.Equal(t, int32(0), p.Last())
}

func TestRun_ContextEndsLoop(t *testing.T) {
	p, err := New(testConfig(), &fakeReader{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx, make(chan Event, 1), nil)
	cancel()

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
	assert.Equal(t, Stopped, p.State())
}

func TestStop_Idempotent(t *testing.T) {
	p, err := New(testConfig(), &fakeReader{})
	require.NoError(t, err)

	p.Stop()
	p.Stop()

	go p.Run(context.Background(), make(chan Event), nil)
	<-p.Done()

	assert.Equal(t, Stopped, p.State())
}

// Two channels on one bus share a serializer and never overlap on the wire.
func TestBuild_SharedBus(t *testing.T) {
	fake := bustest.New()
	fake.Latency = 100 * time.Microsecond
	fake.SetValues(0x49, seesaw.EncoderPosition, 0, 10)
	fake.SetValues(0x4A, seesaw.EncoderPosition+1, 0, 0, -4)

	reg := bus.NewRegistry(bus.OpenerFunc(func(int) (bus.Transport, error) {
		return fake, nil
	}), bus.Options{})
	defer reg.Close()

	poll := cfg.PollConfig{StandardIntervalMs: 5, ShortIntervalMs: 1}
	a, err := Build(cfg.ChannelConfig{ID: "a", Bus: cfg.IntOf(1), Device: cfg.IntOf(0x49), Encoder: cfg.IntOf(0)}, poll, reg, nil)
	require.NoError(t, err)
	b, err := Build(cfg.ChannelConfig{ID: "b", Bus: cfg.IntOf(1), Device: cfg.IntOf(0x4A), Encoder: cfg.IntOf(1)}, poll, reg, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, reg.Buses())

	out := make(chan Event, 16)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go a.Run(ctx, out, nil)
	go b.Run(ctx, out, nil)

	got := map[string]int32{}
	for len(got) < 2 {
		select {
		case ev := <-out:
			got[ev.ChannelID] = ev.Payload
		case <-ctx.Done():
			t.Fatalf("timed out, got %v", got)
		}
	}
	a.Stop()
	b.Stop()
	<-a.Done()
	<-b.Done()

	assert.Equal(t, map[string]int32{"a": 10, "b": -4}, got)
	assert.Equal(t, 1, fake.MaxConcurrent())
}

func TestBuild_OpenFailure(t *testing.T) {
	reg := bus.NewRegistry(bus.OpenerFunc(func(int) (bus.Transport, error) {
		return nil, errors.New("no such bus")
	}), bus.Options{})
	defer reg.Close()

	_, err := Build(cfg.ChannelConfig{ID: "a"}, cfg.PollConfig{}, reg, nil)
	var oe *bus.OpenError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, 1, oe.Bus)
}
