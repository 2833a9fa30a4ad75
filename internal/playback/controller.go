package playback

import (
	"log/slog"
	"math"
	"time"

	"github.com/dgallion1/typewriter/internal/charseq"
	"github.com/dgallion1/typewriter/internal/duration"
)

// Display draws the first cut characters of a sequence.
type Display interface {
	Render(seq charseq.Sequence, cut int)
}

type nopDisplay struct{}

func (nopDisplay) Render(charseq.Sequence, int) {}

// Controller owns the reveal state of one sequence and advances it from
// scheduler callbacks. It is not safe for concurrent use; callers that
// share one across goroutines serialize through FrameLoop.Do.
type Controller struct {
	seq    charseq.Sequence
	index  int
	phase  Phase
	policy duration.Policy
	delay  time.Duration

	// anchor is the time of the last advance; zero until the first tick
	// after start, resume or seek.
	anchor time.Time

	sched      Scheduler
	pending    Handle
	hasPending bool
	// gen invalidates callbacks that were cancelled but still fire.
	gen uint64

	display   Display
	observers observers
	stats     *FrameStats
	log       *slog.Logger
}

// NewController returns an idle controller with empty content.
func NewController(sched Scheduler, display Display, log *slog.Logger) *Controller {
	if display == nil {
		display = nopDisplay{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	c := &Controller{
		seq:     charseq.Sequence{},
		sched:   sched,
		display: display,
		log:     log,
		policy:  duration.Policy{Speed: 1},
	}
	c.delay = c.policy.Delay(0)
	return c
}

// SetStats records advance lateness into s. Nil disables recording.
func (c *Controller) SetStats(s *FrameStats) {
	c.stats = s
}

// Subscribe registers fn for events of kind and returns a function that
// removes the registration.
func (c *Controller) Subscribe(kind EventKind, fn func(Event)) func() {
	return c.observers.add(kind, fn)
}

// SubscribeAll registers fn for every event.
func (c *Controller) SubscribeAll(fn func(Event)) func() {
	return c.observers.add("", fn)
}

// Load replaces the content. Any running playback is cancelled, the index
// returns to 0, the phase to Idle, and the empty prefix is rendered.
func (c *Controller) Load(seq charseq.Sequence) {
	c.cancel()
	if seq == nil {
		seq = charseq.Sequence{}
	}
	c.seq = seq
	c.index = 0
	c.phase = Idle
	c.anchor = time.Time{}
	c.delay = c.policy.Delay(len(c.seq))
	c.render()
}

// SetPolicy changes timing. The new per-character delay applies from the
// next tick.
func (c *Controller) SetPolicy(p duration.Policy) {
	c.policy = p.Normalize()
	c.delay = c.policy.Delay(len(c.seq))
}

// Start restarts playback from the beginning. It is a no-op while Playing.
func (c *Controller) Start() {
	if c.phase == Playing {
		return
	}
	c.cancel()
	c.index = 0
	c.phase = Playing
	c.anchor = time.Time{}
	c.render()
	c.emit(Event{Kind: EventStart})
	c.scheduleIfPlaying()
}

// Pause stops advancing. It is a no-op unless Playing.
func (c *Controller) Pause() {
	if c.phase != Playing {
		return
	}
	c.cancel()
	c.phase = Paused
	c.emit(Event{Kind: EventPause})
}

// Resume continues from the current index. It is a no-op unless Paused.
func (c *Controller) Resume() {
	if c.phase != Paused {
		return
	}
	c.anchor = time.Time{}
	c.phase = Playing
	c.emit(Event{Kind: EventResume})
	c.scheduleIfPlaying()
}

// Complete reveals everything immediately.
func (c *Controller) Complete() {
	c.cancel()
	c.index = len(c.seq)
	c.phase = Completed
	c.render()
	c.emit(Event{Kind: EventComplete})
}

// Reset returns to Idle with nothing revealed.
func (c *Controller) Reset() {
	c.cancel()
	c.index = 0
	c.phase = Idle
	c.anchor = time.Time{}
	c.render()
	c.emit(Event{Kind: EventReset})
}

// Seek moves the cut point. Positions in [0, 1] are fractions of the
// content; anything else is an absolute index clamped into [0, len].
// The phase is unchanged; if Playing, the loop continues from the new
// index. Seek returns the resulting index.
func (c *Controller) Seek(position float64) int {
	c.cancel()
	wasPlaying := c.phase == Playing
	c.index = seekIndex(position, len(c.seq))
	c.render()
	c.emit(Event{Kind: EventSeek, Position: c.index, Progress: c.Progress()})
	if wasPlaying {
		c.anchor = time.Time{}
		c.scheduleIfPlaying()
	}
	return c.index
}

// Suspend cancels the pending callback without changing the phase. It is
// used when the host surface stops being visible.
func (c *Controller) Suspend() {
	c.cancel()
}

// Wake restarts the callback loop after Suspend if playback is active.
func (c *Controller) Wake() {
	if c.phase != Playing || c.hasPending {
		return
	}
	c.anchor = time.Time{}
	c.schedule()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return c.phase }

// IsPlaying reports whether playback is running (and not paused).
func (c *Controller) IsPlaying() bool { return c.phase == Playing }

// IsPaused reports whether playback is paused.
func (c *Controller) IsPaused() bool { return c.phase == Paused }

// Index returns the number of revealed characters.
func (c *Controller) Index() int { return c.index }

// Len returns the number of characters in the content.
func (c *Controller) Len() int { return len(c.seq) }

// Sequence returns the loaded content.
func (c *Controller) Sequence() charseq.Sequence { return c.seq }

// Delay returns the current per-character delay.
func (c *Controller) Delay() time.Duration { return c.delay }

// Policy returns the current timing policy.
func (c *Controller) Policy() duration.Policy { return c.policy }

// Progress returns index/len, or 0 for empty content.
func (c *Controller) Progress() float64 {
	if len(c.seq) == 0 {
		return 0
	}
	return float64(c.index) / float64(len(c.seq))
}

// HasPending reports whether a frame callback is scheduled.
func (c *Controller) HasPending() bool { return c.hasPending }

func (c *Controller) tick(gen uint64, now time.Time) {
	if gen != c.gen {
		return
	}
	c.hasPending = false
	if c.phase != Playing {
		return
	}
	if c.index >= len(c.seq) {
		c.finish()
		return
	}

	if c.anchor.IsZero() {
		c.anchor = now
	}
	elapsed := now.Sub(c.anchor)
	if elapsed >= c.delay {
		// Exactly one character per satisfied interval, however late.
		// Lateness under one interval is carried into the next anchor so
		// frame rounding does not accumulate over the run.
		c.index++
		if elapsed < 2*c.delay {
			c.anchor = c.anchor.Add(c.delay)
		} else {
			c.anchor = now
		}
		if c.stats != nil {
			c.stats.Record(elapsed - c.delay)
		}
		c.render()
		c.emit(Event{
			Kind:     EventProgress,
			Current:  c.index,
			Total:    len(c.seq),
			Progress: c.Progress(),
		})
		if c.phase != Playing {
			return
		}
		if c.index >= len(c.seq) {
			c.finish()
			return
		}
	}
	c.scheduleIfPlaying()
}

func (c *Controller) finish() {
	c.phase = Completed
	c.log.Debug("playback completed", "chars", len(c.seq))
	c.emit(Event{Kind: EventComplete})
}

// scheduleIfPlaying re-checks the phase because an observer may have
// paused or reset playback while the event was being delivered.
func (c *Controller) scheduleIfPlaying() {
	if c.phase == Playing && !c.hasPending {
		c.schedule()
	}
}

func (c *Controller) schedule() {
	c.gen++
	gen := c.gen
	c.pending = c.sched.ScheduleNextFrame(func(now time.Time) {
		c.tick(gen, now)
	})
	c.hasPending = true
}

// cancel drops the pending callback, if any. Safe to call repeatedly.
func (c *Controller) cancel() {
	if c.hasPending {
		c.sched.Cancel(c.pending)
		c.hasPending = false
	}
	c.gen++
}

func (c *Controller) render() {
	c.display.Render(c.seq, c.index)
}

func (c *Controller) emit(e Event) {
	c.observers.dispatch(e)
}

func seekIndex(position float64, total int) int {
	switch {
	case math.IsNaN(position), position < 0:
		return 0
	case position <= 1:
		return int(math.Floor(position * float64(total)))
	case position >= float64(total):
		return total
	default:
		return int(math.Floor(position))
	}
}
