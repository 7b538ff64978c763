package registry

import "sync"

// taskQueue is the FIFO of continuations run by the registry loop.
//
// It is unbounded so transport goroutines handing over fetched loads never
// block on a busy loop. A buffered signal channel of size 1 wakes the loop;
// several enqueues between two wakeups coalesce into one signal.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]func(), 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends fn. It returns false once the queue is closed.
func (q *taskQueue) Enqueue(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, fn)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front task without blocking.
func (q *taskQueue) TryDequeue() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return fn, true
}

// Wait returns the wakeup channel. It is closed by Close.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued tasks.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close rejects further tasks and wakes the loop. Queued tasks still run.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// run executes tasks in order until the queue is closed and drained.
func (q *taskQueue) run() {
	for {
		for {
			fn, ok := q.TryDequeue()
			if !ok {
				break
			}
			fn()
		}
		if _, open := <-q.signal; !open {
			// Drain anything enqueued between the last dequeue and Close.
			for {
				fn, ok := q.TryDequeue()
				if !ok {
					return
				}
				fn()
			}
		}
	}
}
