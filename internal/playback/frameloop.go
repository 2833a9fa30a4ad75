package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("frame loop stopped")

// FrameLoop is a Scheduler that fires callbacks on a fixed cadence from a
// single goroutine. Do runs arbitrary work on that same goroutine, which
// makes it the one place controllers are mutated.
type FrameLoop struct {
	interval time.Duration
	log      *slog.Logger

	mu    sync.Mutex
	queue frameQueue

	tasks   chan func()
	stopped chan struct{}
	once    sync.Once
}

func NewFrameLoop(interval time.Duration, log *slog.Logger) *FrameLoop {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &FrameLoop{
		interval: interval,
		log:      log,
		tasks:    make(chan func()),
		stopped:  make(chan struct{}),
	}
}

func (l *FrameLoop) ScheduleNextFrame(fn func(now time.Time)) Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.schedule(fn)
}

func (l *FrameLoop) Cancel(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue.cancel(h)
}

// Interval returns the frame cadence.
func (l *FrameLoop) Interval() time.Duration {
	return l.interval
}

// Run drives frames until ctx is cancelled. It must be called once.
func (l *FrameLoop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.stopped) })

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-l.tasks:
			task()
		case now := <-ticker.C:
			l.frame(now)
		}
	}
}

func (l *FrameLoop) frame(now time.Time) {
	l.mu.Lock()
	batch := l.queue.take()
	l.mu.Unlock()

	for _, e := range batch {
		l.mu.Lock()
		run := !e.cancelled
		if run {
			l.queue.cancel(e.handle)
		}
		l.mu.Unlock()
		if run {
			l.safely("frame callback", func() { e.fn(now) })
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to return. It must not
// be called from inside a frame callback or another Do.
func (l *FrameLoop) Do(ctx context.Context, fn func()) error {
	done := make(chan error, 1)
	task := func() {
		done <- l.safely("task", fn)
	}

	select {
	case l.tasks <- task:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// The loop runs a received task to completion before doing anything else.
	return <-done
}

func (l *FrameLoop) safely(what string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", what, r)
			if l.log != nil {
				l.log.Error("frame loop recovered", "what", what, "error", err)
			}
		}
	}()
	fn()
	return nil
}
