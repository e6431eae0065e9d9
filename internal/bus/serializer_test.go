// internal/bus/serializer_test.go
package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/seesaw-poller/internal/bus/bustest"
)

func newTestSerializer(t *testing.T, fake *bustest.Bus, opts Options) *Serializer {
	t.Helper()
	reg := NewRegistry(OpenerFunc(func(int) (Transport, error) { return fake, nil }), opts)
	t.Cleanup(func() { _ = reg.Close() })

	s, err := reg.Get(1)
	require.NoError(t, err)
	return s
}

// twoPhase mimics a register read: write, settle, read.
func twoPhase(addr uint16, settle time.Duration) Body {
	return func(ctx context.Context, tx Tx) error {
		if err := tx.Write(addr, []byte{0x11, 0x30}); err != nil {
			return err
		}
		time.Sleep(settle)
		return tx.Read(addr, make([]byte, 4))
	}
}

func TestSerializer_BodiesNeverOverlap(t *testing.T) {
	fake := bustest.New()
	s := newTestSerializer(t, fake, Options{})

	var inBody, maxInBody int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		addr := uint16(0x40 + i)
		go func() {
			defer wg.Done()
			err := s.Do(context.Background(), func(ctx context.Context, tx Tx) error {
				n := atomic.AddInt32(&inBody, 1)
				for {
					m := atomic.LoadInt32(&maxInBody)
					if n <= m || atomic.CompareAndSwapInt32(&maxInBody, m, n) {
						break
					}
				}
				defer atomic.AddInt32(&inBody, -1)
				return twoPhase(addr, 2*time.Millisecond)(ctx, tx)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInBody)
	assert.Equal(t, 1, fake.MaxConcurrent())

	// every write is immediately followed by the read for the same device
	ops := fake.Ops()
	require.Len(t, ops, 16)
	for i := 0; i < len(ops); i += 2 {
		assert.Equal(t, "write", ops[i].Kind)
		assert.Equal(t, "read", ops[i+1].Kind)
		assert.Equal(t, ops[i].Addr, ops[i+1].Addr)
	}
}

func TestSerializer_FIFO(t *testing.T) {
	fake := bustest.New()
	s := newTestSerializer(t, fake, Options{QueueSize: 32})

	gate := make(chan struct{})
	first := Submit(context.Background(), s, func(ctx context.Context, tx Tx) (int, error) {
		<-gate
		return 0, nil
	})

	var mu sync.Mutex
	var order []int
	futures := make([]<-chan Result[int], 0, 10)
	for i := 1; i <= 10; i++ {
		i := i
		futures = append(futures, Submit(context.Background(), s, func(ctx context.Context, tx Tx) (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
	}
	close(gate)

	require.NoError(t, (<-first).Err)
	for i, f := range futures {
		res := <-f
		require.NoError(t, res.Err)
		assert.Equal(t, i+1, res.Value)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, order)
}

func TestSerializer_FailureDoesNotPoisonQueue(t *testing.T) {
	fake := bustest.New()
	s := newTestSerializer(t, fake, Options{})

	boom := errors.New("nack")
	fake.FailNext("read", boom)

	gate := make(chan struct{})
	blocker := Submit(context.Background(), s, func(ctx context.Context, tx Tx) (struct{}, error) {
		<-gate
		return struct{}{}, nil
	})
	failing := Submit(context.Background(), s, func(ctx context.Context, tx Tx) (int, error) {
		return 7, twoPhase(0x49, 0)(ctx, tx)
	})
	next := Submit(context.Background(), s, func(ctx context.Context, tx Tx) (int, error) {
		return 9, twoPhase(0x49, 0)(ctx, tx)
	})
	close(gate)
	<-blocker

	res := <-failing
	require.Error(t, res.Err)
	assert.Zero(t, res.Value)
	var ioErr *IOError
	require.ErrorAs(t, res.Err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
	assert.Equal(t, uint16(0x49), ioErr.Addr)
	assert.ErrorIs(t, res.Err, boom)

	res = <-next
	require.NoError(t, res.Err)
	assert.Equal(t, 9, res.Value)
}

func TestSerializer_PanicIsRecovered(t *testing.T) {
	s := newTestSerializer(t, bustest.New(), Options{})

	err := s.Do(context.Background(), func(ctx context.Context, tx Tx) error {
		panic("driver bug")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver bug")

	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, tx Tx) error { return nil }))
}

func TestSerializer_TimeoutMarksBusStalled(t *testing.T) {
	fake := bustest.New()
	s := newTestSerializer(t, fake, Options{IOTimeout: 20 * time.Millisecond})

	release := fake.Hold()
	defer release()

	err := s.Do(context.Background(), twoPhase(0x49, 0))
	require.ErrorIs(t, err, ErrTimeout)
	assert.True(t, s.Stalled())

	// queued work fails fast instead of touching the bus
	err = s.Do(context.Background(), twoPhase(0x49, 0))
	require.ErrorIs(t, err, ErrBusStalled)

	release()
	require.Eventually(t, func() bool { return !s.Stalled() }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Do(context.Background(), twoPhase(0x49, 0)))
}

func TestSerializer_DoHonoursContextWhileWaiting(t *testing.T) {
	s := newTestSerializer(t, bustest.New(), Options{})

	gate := make(chan struct{})
	defer close(gate)
	running := make(chan struct{})
	go func() {
		_ = s.Do(context.Background(), func(ctx context.Context, tx Tx) error {
			close(running)
			<-gate
			return nil
		})
	}()
	<-running

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Do(ctx, func(ctx context.Context, tx Tx) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSerializer_SubmitBlocksWhenQueueFull(t *testing.T) {
	s := newTestSerializer(t, bustest.New(), Options{QueueSize: 1})

	gate := make(chan struct{})
	defer close(gate)
	running := make(chan struct{})
	_ = Submit(context.Background(), s, func(ctx context.Context, tx Tx) (int, error) {
		close(running)
		<-gate
		return 0, nil
	})
	<-running
	_ = Submit(context.Background(), s, func(ctx context.Context, tx Tx) (int, error) { return 0, nil })
	assert.Equal(t, 1, s.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := <-Submit(ctx, s, func(ctx context.Context, tx Tx) (int, error) { return 1, nil })
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}
