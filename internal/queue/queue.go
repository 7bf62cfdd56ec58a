// queue.go
//
// In-process priority queue for outbound LLM requests. Callers enqueue a
// task with a priority and block until it settles; the queue caps how many
// tasks run at once and spaces successive dispatches so the upstream
// provider's rate limits are respected.
package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// DefaultConcurrency is the in-flight ceiling applied when New is given a
// non-positive value.
const DefaultConcurrency = 2

// DefaultDelay is the pause inserted before each dispatch after the first
// concurrently started task.
const DefaultDelay = time.Second

// ErrClosed is returned by Do after Close has been called.
var ErrClosed = errors.New("request queue closed")

// Task is the unit of work. It receives a context detached from the
// caller's cancellation: a caller that gives up waiting does not abort
// work already handed to the upstream provider.
type Task func(ctx context.Context) (string, error)

type settled struct {
	value string
	err   error
}

type item struct {
	task     Task
	priority int
	seq      uint64 // arrival order; breaks priority ties
	ctx      context.Context
	done     chan settled
}

// Queue dispatches tasks in descending priority order, ties broken by
// arrival order, with at most maxInFlight running concurrently. Construct
// one per process with New and share it across handlers.
type Queue struct {
	delay       time.Duration
	maxInFlight int

	mu       sync.Mutex
	pending  []*item
	inFlight int
	seq      uint64
	closed   bool
}

// New returns a queue that runs at most maxInFlight tasks concurrently and
// waits delay before each dispatch after the first concurrently started
// task. Non-positive arguments fall back to DefaultConcurrency and
// DefaultDelay.
func New(maxInFlight int, delay time.Duration) *Queue {
	if maxInFlight <= 0 {
		maxInFlight = DefaultConcurrency
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Queue{maxInFlight: maxInFlight, delay: delay}
}

// Do enqueues task at the given priority and blocks until it settles or
// ctx is cancelled. Higher priorities dispatch first; equal priorities
// dispatch in arrival order. A cancelled ctx releases the caller but does
// not cancel the task itself -- once enqueued, the work runs to completion.
func (q *Queue) Do(ctx context.Context, priority int, task Task) (string, error) {
	it := &item{
		task:     task,
		priority: priority,
		ctx:      ctx,
		done:     make(chan settled, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrClosed
	}
	it.seq = q.seq
	q.seq++
	q.insertLocked(it)
	q.mu.Unlock()

	q.dispatch()

	select {
	case s := <-it.done:
		return s.value, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close rejects subsequent Do calls. Pending and in-flight tasks still run
// to completion; their callers receive results as usual.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// insertLocked places it into pending keeping the slice sorted by
// descending priority, stable on arrival order. Callers hold q.mu.
func (q *Queue) insertLocked(it *item) {
	i := sort.Search(len(q.pending), func(i int) bool {
		return q.pending[i].priority < it.priority
	})
	q.pending = append(q.pending, nil)
	copy(q.pending[i+1:], q.pending[i:])
	q.pending[i] = it
}

// dispatch starts pending tasks until the in-flight ceiling is reached or
// the queue drains.
func (q *Queue) dispatch() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.inFlight < q.maxInFlight && len(q.pending) > 0 {
		it := q.pending[0]
		copy(q.pending, q.pending[1:])
		q.pending[len(q.pending)-1] = nil
		q.pending = q.pending[:len(q.pending)-1]

		// The first task started while the queue is idle goes out
		// immediately; every other dispatch waits q.delay first.
		pause := q.inFlight > 0
		q.inFlight++
		go q.run(it, pause)
	}
}

// run executes a single task, delivers its result to the waiting caller,
// and frees the slot. Each task's failure reaches only its own caller.
func (q *Queue) run(it *item, pause bool) {
	if pause {
		time.Sleep(q.delay)
	}

	value, err := it.task(context.WithoutCancel(it.ctx))
	it.done <- settled{value: value, err: err}

	q.mu.Lock()
	q.inFlight--
	q.mu.Unlock()
	go q.dispatch()
}
