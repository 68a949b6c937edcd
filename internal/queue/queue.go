// Package queue runs a single worker goroutine over a bounded buffer.
//
// The audit and notification dispatchers are both built on it: producers on
// the request path hand off a value and return, and the worker applies the
// handler in FIFO order. Close drains what was accepted before returning.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
)

// Queue delivers values of type T to a handler on one goroutine.
type Queue[T any] struct {
	handle    func(T)
	ch        chan T
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	// mu orders sends before Close: senders hold it shared, Close exclusive,
	// so nothing lands in ch after the worker's final drain.
	mu sync.RWMutex
}

// New starts the worker. A size below 1 is raised to 1.
func New[T any](size int, handle func(T)) *Queue[T] {
	if size < 1 {
		size = 1
	}
	q := &Queue[T]{
		handle: handle,
		ch:     make(chan T, size),
		done:   make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue[T]) run() {
	defer q.wg.Done()

	for {
		select {
		case v := <-q.ch:
			q.handle(v)
		case <-q.done:
			for {
				select {
				case v := <-q.ch:
					q.handle(v)
				default:
					return
				}
			}
		}
	}
}

// TryPush enqueues v without blocking. It reports false and counts a drop
// when the buffer is full. Values pushed after Close are ignored.
func (q *Queue[T]) TryPush(v T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed.Load() {
		return false
	}
	select {
	case q.ch <- v:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Push enqueues v, waiting for room until ctx ends. Close waits for a
// pending Push to finish.
func (q *Queue[T]) Push(ctx context.Context, v T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed.Load() {
		return false
	}
	select {
	case q.ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops accepting values and waits for the worker to drain the buffer.
// It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed.Store(true)
		close(q.done)
		q.mu.Unlock()
		q.wg.Wait()
	})
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	return q.closed.Load()
}

// Dropped reports values TryPush rejected because the buffer was full.
func (q *Queue[T]) Dropped() uint64 {
	return q.dropped.Load()
}
