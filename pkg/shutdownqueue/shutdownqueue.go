// Package shutdownqueue runs named cleanup tasks in reverse order of registration.
//
// A process-wide queue backs the package-level Add and Shutdown, so components can register
// their teardown where they are built and main drains everything once:
//
//	defer func() {
//		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//		defer cancel()
//		_ = shutdownqueue.Shutdown(ctx)
//	}()
//
// Tasks run once. Panics are recovered and reported as errors. Shutdown is idempotent and
// returns the task failures joined with errors.Join, each prefixed by the task name.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a shutdown function. It should honor ctx and return an error
// if it can't finish (or ctx is canceled).
type Task func(ctx context.Context) error

type namedTask struct {
	name string
	fn   Task
}

type Queue struct {
	mu     sync.Mutex
	tasks  []namedTask
	closed bool
}

func New() *Queue {
	return &Queue{tasks: make([]namedTask, 0, 8)}
}

// Add registers fn to run on Shutdown under name. It is a no-op for a nil fn or once
// Shutdown has started.
func (q *Queue) Add(name string, fn Task) {
	if fn == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.tasks = append(q.tasks, namedTask{name: name, fn: fn})
}

// Shutdown drains the tasks in LIFO order. Only the first call runs anything.
//
// If ctx ends mid-drain the remaining tasks are skipped and the context error is joined with
// the task errors collected so far.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		return nil
	}

	q.closed = true
	tasks := q.tasks
	q.tasks = nil

	q.mu.Unlock()

	var errs []error

	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]

		if ctx.Err() != nil {
			skipped := make([]string, 0, i+1)
			for j := i; j >= 0; j-- {
				skipped = append(skipped, tasks[j].name)
			}

			slog.Warn("shutdown interrupted", "skipped", skipped, "error", ctx.Err())
			errs = append(errs, fmt.Errorf("shutdown canceled: %w", ctx.Err()))

			return errors.Join(errs...)
		}

		start := time.Now()

		err := run(ctx, t)
		if err != nil {
			slog.Error("shutdown task failed", "task", t.name, "duration", time.Since(start), "error", err)
			errs = append(errs, err)

			continue
		}

		slog.Info("shutdown task done", "task", t.name, "duration", time.Since(start))
	}

	return errors.Join(errs...)
}

func run(ctx context.Context, t namedTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic in shutdown task: %v", t.name, r)
		}
	}()

	err = t.fn(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}

	return nil
}

var std = New()

// Add registers fn on the process-wide queue.
func Add(name string, fn Task) { std.Add(name, fn) }

// Shutdown drains the process-wide queue.
func Shutdown(ctx context.Context) error { return std.Shutdown(ctx) }
