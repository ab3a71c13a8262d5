package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
}

func (r *recorder) Notify(_ context.Context, ev Event) error {
	if r.block != nil {
		<-r.block
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)

	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

func TestAsync_DeliversAndDrainsOnClose(t *testing.T) {
	rec := &recorder{}
	a := NewAsync(rec, 16)

	for i := 0; i < 10; i++ {
		require.NoError(t, a.Notify(context.Background(), Event{Kind: KindDeposit, UserID: uint64(i)}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, a.Close(ctx))
	assert.Equal(t, 10, rec.count())

	assert.ErrorIs(t, a.Notify(context.Background(), Event{}), ErrClosed)
	require.NoError(t, a.Close(ctx), "second close is a no-op")
}

func TestAsync_DropsWhenFull(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}

	var dropped int
	a := NewAsync(rec, 1, WithDropHook(func(Event) { dropped++ }))

	// First event is taken by the worker and blocks; second fills the queue.
	require.NoError(t, a.Notify(context.Background(), Event{UserID: 1}))
	require.Eventually(t, func() bool { return len(a.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, a.Notify(context.Background(), Event{UserID: 2}))
	require.NoError(t, a.Notify(context.Background(), Event{UserID: 3}))

	assert.Equal(t, 1, dropped)

	close(rec.block)
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 2, rec.count())
}

func TestAsync_FailuresDoNotStopWorker(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)

	a := NewAsync(Func(func(context.Context, Event) error {
		mu.Lock()
		defer mu.Unlock()

		calls++
		return errors.New("telegram down")
	}), 4)

	_ = a.Notify(context.Background(), Event{})
	_ = a.Notify(context.Background(), Event{})

	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 2, calls)
}
