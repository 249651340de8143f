package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_NextTickRunsOnNextTick(t *testing.T) {
	s := NewScheduler(nil)

	var order []string
	s.NextTick(func() {
		order = append(order, "a")
		s.NextTick(func() { order = append(order, "c") })
	})
	s.NextTick(func() { order = append(order, "b") })

	assert.Empty(t, order)
	s.Tick(time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	s.Tick(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestScheduler_OnceFiresAfterDelay(t *testing.T) {
	s := NewScheduler(nil)

	fired := 0
	s.Once(300*time.Second, func() { fired++ })

	s.Advance(299*time.Second, time.Second)
	assert.Equal(t, 0, fired)
	due, ok := s.NextTimer()
	assert.True(t, ok)
	assert.Equal(t, 300*time.Second, due)

	s.Tick(time.Second)
	assert.Equal(t, 1, fired)

	s.Advance(time.Hour, time.Minute)
	assert.Equal(t, 1, fired, "one-shot")
}

func TestScheduler_PanicIsContained(t *testing.T) {
	s := NewScheduler(nil)

	ran := false
	s.NextTick(func() { panic("boom") })
	s.NextTick(func() { ran = true })

	assert.NotPanics(t, func() { s.Tick(time.Millisecond) })
	assert.True(t, ran)
}

func TestScheduler_Pending(t *testing.T) {
	s := NewScheduler(nil)
	s.NextTick(func() {})
	s.Once(time.Minute, func() {})

	next, timers := s.Pending()
	assert.Equal(t, 1, next)
	assert.Equal(t, 1, timers)

	s.Tick(time.Second)
	next, timers = s.Pending()
	assert.Equal(t, 0, next)
	assert.Equal(t, 1, timers)
	assert.Equal(t, time.Second, s.Now())
	assert.Equal(t, uint64(1), s.Ticks())
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s := NewScheduler(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	s.NextTick(func() { close(done) })

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, time.Millisecond) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tick never ran")
	}
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}
