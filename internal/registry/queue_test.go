package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue()

	var got []int
	for i := 1; i <= 3; i++ {
		require.True(t, q.Enqueue(func() { got = append(got, i) }))
	}
	assert.Equal(t, 3, q.Len())

	for {
		fn, ok := q.TryDequeue()
		if !ok {
			break
		}
		fn()
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 0, q.Len())
}

func TestTaskQueue_TryDequeue_Empty(t *testing.T) {
	q := newTaskQueue()
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestTaskQueue_EnqueueAfterClose(t *testing.T) {
	q := newTaskQueue()
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(func() {}))
	_, open := <-q.Wait()
	assert.False(t, open, "close closes the wakeup channel")
}

func TestTaskQueue_RunDrainsBeforeExit(t *testing.T) {
	q := newTaskQueue()
	done := make(chan struct{})
	go func() {
		q.run()
		close(done)
	}()

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 50; i++ {
		q.Enqueue(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return after close")
	}
	assert.Equal(t, 50, ran)
}

func TestTaskQueue_ConcurrentProducers(t *testing.T) {
	q := newTaskQueue()

	const producers = 10
	const perProducer = 100

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		count int
	)
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(func() {
					mu.Lock()
					count++
					mu.Unlock()
				})
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		q.run()
		close(done)
	}()

	wg.Wait()
	q.Close()
	<-done
	assert.Equal(t, producers*perProducer, count)
}
