package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PushPop(t *testing.T) {
	q := New[int]()
	assert.True(t, q.Empty())

	q.Push(1)
	q.Push(2, 3)
	assert.Equal(t, 3, q.Len())

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, q.Len())
}

func TestQueue_PopEmpty(t *testing.T) {
	q := New[string]()

	v, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestQueue_Drain(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	batch := q.Drain()
	assert.Equal(t, []int{1, 2, 3}, batch)
	assert.True(t, q.Empty())

	// items pushed after draining belong to the next batch
	q.Push(4)
	batch[0] = 99
	assert.Equal(t, []int{4}, q.Drain())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(n*100 + j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, q.Len())
}

func TestDelayQueue_OrdersByDueTime(t *testing.T) {
	q := NewDelayQueue[string]()
	q.Push(3*time.Second, "c")
	q.Push(1*time.Second, "a")
	q.Push(2*time.Second, "b")

	due, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, time.Second, due)

	assert.Empty(t, q.PopDue(500*time.Millisecond))
	assert.Equal(t, []string{"a", "b"}, q.PopDue(2*time.Second))
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, []string{"c"}, q.PopDue(time.Hour))

	_, ok = q.Next()
	assert.False(t, ok)
}

func TestDelayQueue_EqualDueKeepsInsertionOrder(t *testing.T) {
	q := NewDelayQueue[int]()
	for i := 0; i < 5; i++ {
		q.Push(time.Second, i)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, q.PopDue(time.Second))
}
