package queue

import (
	"container/heap"
	"time"
)

type delayed[T any] struct {
	due   time.Duration
	seq   uint64
	value T
}

type delayHeap[T any] []delayed[T]

func (h delayHeap[T]) Len() int { return len(h) }
func (h delayHeap[T]) Less(i, j int) bool {
	if h[i].due == h[j].due {
		return h[i].seq < h[j].seq
	}
	return h[i].due < h[j].due
}
func (h delayHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *delayHeap[T]) Push(x any)   { *h = append(*h, x.(delayed[T])) }
func (h *delayHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// DelayQueue orders values by due time on a simulated clock. Values with equal
// due times come out in insertion order. It is not safe for concurrent use.
type DelayQueue[T any] struct {
	items delayHeap[T]
	seq   uint64
}

// NewDelayQueue creates an empty delay queue.
func NewDelayQueue[T any]() *DelayQueue[T] {
	return &DelayQueue[T]{}
}

// Push schedules value at due.
func (q *DelayQueue[T]) Push(due time.Duration, value T) {
	q.seq++
	heap.Push(&q.items, delayed[T]{due: due, seq: q.seq, value: value})
}

// PopDue removes and returns every value whose due time is <= now, earliest first.
func (q *DelayQueue[T]) PopDue(now time.Duration) []T {
	var out []T
	for len(q.items) > 0 && q.items[0].due <= now {
		out = append(out, heap.Pop(&q.items).(delayed[T]).value)
	}
	return out
}

// Next returns the earliest due time. ok is false when the queue is empty.
func (q *DelayQueue[T]) Next() (due time.Duration, ok bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	return q.items[0].due, true
}

// Len returns the number of scheduled values.
func (q *DelayQueue[T]) Len() int {
	return len(q.items)
}
