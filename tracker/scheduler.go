package tracker

import (
	"context"
	"log"
	"sync"
	"time"
)

// Backoff maps the number of completed poll attempts to the delay before
// the next one.
type Backoff func(attempt int) time.Duration

// FixedInterval is the default policy: the same delay between every poll.
func FixedInterval(interval time.Duration) Backoff {
	return func(int) time.Duration { return interval }
}

// PollFunc is invoked once per due job by a scheduler worker.
type PollFunc func(ctx context.Context, jobID string)

// Scheduler owns the per-job poll timers and a bounded pool of workers that
// execute due polls. A job has at most one armed timer and at most one
// in-flight poll: timers are armed only at submission and after the
// previous poll has been fully processed.
type Scheduler struct {
	poll PollFunc

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool

	due    chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(workers int, poll PollFunc) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		poll:   poll,
		timers: make(map[string]*time.Timer),
		due:    make(chan string, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case jobID := <-s.due:
			s.poll(s.ctx, jobID)
		}
	}
}

// Schedule arms the timer for jobID, replacing any pending one.
func (s *Scheduler) Schedule(jobID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[jobID]; ok {
		t.Stop()
	}
	s.timers[jobID] = time.AfterFunc(delay, func() {
		select {
		case s.due <- jobID:
		case <-s.ctx.Done():
		}
	})
}

// Cancel stops any pending timer for jobID. A timer that has already fired
// may still deliver one poll; the tracker's terminal checks make that
// delivery a no-op.
func (s *Scheduler) Cancel(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[jobID]; ok {
		t.Stop()
		delete(s.timers, jobID)
	}
}

// Shutdown stops every timer, cancels in-flight polls, and waits for the
// workers to drain, bounded by ctx.
func (s *Scheduler) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.stopped = true
	for jobID, t := range s.timers {
		t.Stop()
		delete(s.timers, jobID)
	}
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Println("[Scheduler] Shutdown timeout: some polls may still be running")
	}
}
