package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryQueue_PopRemoves(t *testing.T) {
	q := NewMemoryQueue()
	q.Enqueue("L1", "checking in")

	assert.True(t, q.Contains("L1"))

	text, ok := q.Pop("L1")
	assert.True(t, ok)
	assert.Equal(t, "checking in", text)

	_, ok = q.Pop("L1")
	assert.False(t, ok, "a popped message is gone")
	assert.False(t, q.Contains("L1"))
}

func TestMemoryQueue_EnqueueOverwrites(t *testing.T) {
	q := NewMemoryQueue()
	q.Enqueue("L1", "first")
	q.Enqueue("L1", "second")

	assert.Equal(t, []string{"L1"}, q.LeadIDs(), "at most one pending message per lead")

	text, _ := q.Pop("L1")
	assert.Equal(t, "second", text)
}

func TestMemoryQueue_PopUnknown(t *testing.T) {
	q := NewMemoryQueue()
	text, ok := q.Pop("nobody")
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestMemoryQueue_ConcurrentPopDeliversOnce(t *testing.T) {
	q := NewMemoryQueue()
	q.Enqueue("L1", "checking in")

	var wg sync.WaitGroup
	delivered := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if text, ok := q.Pop("L1"); ok {
				delivered <- text
			}
		}()
	}
	wg.Wait()
	close(delivered)

	count := 0
	for range delivered {
		count++
	}
	assert.Equal(t, 1, count)
}
