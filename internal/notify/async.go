package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrClosed = errors.New("notifier closed")

// Async hands events to a background worker so callers never wait on delivery. Events are
// dropped when the queue is full. Delivery failures are logged.
type Async struct {
	next    Notifier
	queue   chan Event
	timeout time.Duration
	onDrop  func(Event)

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type AsyncOption func(*Async)

// WithDeliveryTimeout bounds each call to the wrapped notifier.
func WithDeliveryTimeout(d time.Duration) AsyncOption {
	return func(a *Async) { a.timeout = d }
}

// WithDropHook is called for every event rejected because the queue was full.
func WithDropHook(fn func(Event)) AsyncOption {
	return func(a *Async) { a.onDrop = fn }
}

func NewAsync(next Notifier, size int, opts ...AsyncOption) *Async {
	a := &Async{
		next:    next,
		queue:   make(chan Event, size),
		timeout: 10 * time.Second,
		onDrop:  func(Event) {},
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(a)
	}

	go a.run()

	return a
}

// Notify enqueues ev without blocking.
func (a *Async) Notify(_ context.Context, ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- ev:
		return nil
	default:
		slog.Warn("notification dropped: queue full", "kind", ev.Kind, "user_id", ev.UserID)
		a.onDrop(ev)
		return nil
	}
}

func (a *Async) run() {
	defer close(a.done)

	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.next.Notify(ctx, ev)
		cancel()

		if err != nil {
			slog.Warn("notification failed", "kind", ev.Kind, "user_id", ev.UserID, "error", err)
		}
	}
}

// Close stops accepting events and waits until the queue drains or ctx ends.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
