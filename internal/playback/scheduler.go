package playback

import "time"

// Handle identifies a scheduled frame callback. The zero Handle is never
// issued.
type Handle uint64

// Scheduler runs callbacks at the next display-refresh opportunity.
// Cancel must be idempotent and must accept handles that already fired.
type Scheduler interface {
	ScheduleNextFrame(fn func(now time.Time)) Handle
	Cancel(h Handle)
}

type frameEntry struct {
	handle    Handle
	fn        func(now time.Time)
	cancelled bool
}

// frameQueue holds callbacks waiting for the next frame. Callbacks
// scheduled while a frame is running wait for the following frame.
type frameQueue struct {
	next    Handle
	pending []*frameEntry
	byID    map[Handle]*frameEntry
}

func (q *frameQueue) schedule(fn func(now time.Time)) Handle {
	if q.byID == nil {
		q.byID = make(map[Handle]*frameEntry)
	}
	q.next++
	e := &frameEntry{handle: q.next, fn: fn}
	q.pending = append(q.pending, e)
	q.byID[e.handle] = e
	return e.handle
}

func (q *frameQueue) cancel(h Handle) {
	if e, ok := q.byID[h]; ok {
		e.cancelled = true
		delete(q.byID, h)
	}
}

// take removes and returns the current batch.
func (q *frameQueue) take() []*frameEntry {
	batch := q.pending
	q.pending = nil
	return batch
}

func (q *frameQueue) size() int {
	return len(q.byID)
}

// ManualScheduler is a deterministic Scheduler driven by explicit frames.
// It keeps its own clock and is not safe for concurrent use.
type ManualScheduler struct {
	now   time.Time
	queue frameQueue
}

// NewManualScheduler returns a scheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

func (s *ManualScheduler) ScheduleNextFrame(fn func(now time.Time)) Handle {
	return s.queue.schedule(fn)
}

func (s *ManualScheduler) Cancel(h Handle) {
	s.queue.cancel(h)
}

// Now returns the scheduler clock.
func (s *ManualScheduler) Now() time.Time {
	return s.now
}

// Pending returns the number of callbacks waiting for a frame.
func (s *ManualScheduler) Pending() int {
	return s.queue.size()
}

// Step advances the clock by d and runs one frame. It returns how many
// callbacks ran.
func (s *ManualScheduler) Step(d time.Duration) int {
	s.now = s.now.Add(d)
	ran := 0
	for _, e := range s.queue.take() {
		if e.cancelled {
			continue
		}
		s.queue.cancel(e.handle)
		e.fn(s.now)
		ran++
	}
	return ran
}

// Run steps frames of length frame until limit has elapsed or nothing is
// pending, and returns the elapsed time.
func (s *ManualScheduler) Run(frame, limit time.Duration) time.Duration {
	var elapsed time.Duration
	for elapsed < limit && s.Pending() > 0 {
		s.Step(frame)
		elapsed += frame
	}
	return elapsed
}
