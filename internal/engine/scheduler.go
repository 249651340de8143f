package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustmods/custombradley/internal/queue"
	"github.com/rustmods/custombradley/pkg/host"
)

// Scheduler runs deferred callbacks on a simulated clock. NextTick may be called
// from any goroutine; everything else belongs to the tick goroutine.
type Scheduler struct {
	next   *queue.Queue[func()]
	mu     sync.Mutex
	timers *queue.DelayQueue[func()]
	now    time.Duration
	ticks  uint64
	logger *slog.Logger
}

var _ host.Scheduler = (*Scheduler)(nil)

// NewScheduler creates a scheduler at clock zero.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		next:   queue.New[func()](),
		timers: queue.NewDelayQueue[func()](),
		logger: logger,
	}
}

// NextTick implements host.Scheduler.
func (s *Scheduler) NextTick(fn func()) {
	s.next.Push(fn)
}

// Once implements host.Scheduler.
func (s *Scheduler) Once(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers.Push(s.now+delay, fn)
}

// Tick runs one simulation step: callbacks queued before the tick started, then
// the clock advances by dt and due timers fire. Work queued during the tick runs
// on the next one.
func (s *Scheduler) Tick(dt time.Duration) {
	s.ticks++
	for _, fn := range s.next.Drain() {
		s.run("next-tick", fn)
	}

	s.mu.Lock()
	s.now += dt
	due := s.timers.PopDue(s.now)
	s.mu.Unlock()

	for _, fn := range due {
		s.run("timer", fn)
	}
}

// Advance ticks repeatedly until d of simulated time has passed.
func (s *Scheduler) Advance(d, step time.Duration) {
	if step <= 0 {
		step = d
	}
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		s.Tick(step)
	}
}

// Run drives Tick from a real-time ticker until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "ticks", s.ticks)
			return ctx.Err()
		case <-ticker.C:
			s.Tick(interval)
		}
	}
}

// Now returns the simulated clock.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Ticks returns the number of ticks run so far.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}

// Pending returns the number of queued next-tick callbacks and timers.
func (s *Scheduler) Pending() (nextTick, timers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Len(), s.timers.Len()
}

// NextTimer returns the due time of the earliest timer.
func (s *Scheduler) NextTimer() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers.Next()
}

func (s *Scheduler) run(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("callback failed", "kind", kind, "tick", s.ticks, "error", fmt.Sprint(r))
		}
	}()
	fn()
}
