package element

import (
	"log/slog"

	"github.com/dgallion1/typewriter/internal/charseq"
	"github.com/dgallion1/typewriter/internal/parser"
	"github.com/dgallion1/typewriter/internal/playback"
)

// Lifecycle is the set of hooks a host calls as the element enters and
// leaves the visible surface or has its options changed.
type Lifecycle interface {
	OnAttach()
	OnDetach()
	OnConfigChange(opts Options)
}

// Typewriter is a host element that reveals its content character by
// character. Playback methods are promoted from the embedded Controller.
// Like the Controller, it is not safe for concurrent use.
type Typewriter struct {
	*playback.Controller

	opts     Options
	motion   MotionPreference
	initial  charseq.Sequence
	loaded   bool // content assigned, by first attach or SetContent
	seen     bool // OnAttach has run at least once
	attached bool
	log      *slog.Logger
}

var _ Lifecycle = (*Typewriter)(nil)

// New returns a detached Typewriter whose initial content is initial.
// The content is loaded on the first OnAttach.
func New(sched playback.Scheduler, display playback.Display, initial charseq.Sequence, opts Options, motion MotionPreference, log *slog.Logger) *Typewriter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if motion == nil {
		motion = StaticMotion(false)
	}
	opts = opts.Normalize()
	ctrl := playback.NewController(sched, display, log)
	ctrl.SetPolicy(opts.Policy())
	return &Typewriter{
		Controller: ctrl,
		opts:       opts,
		motion:     motion,
		initial:    initial,
		log:        log,
	}
}

// NewFromMarkup is New with initial content given as HTML markup.
func NewFromMarkup(sched playback.Scheduler, display playback.Display, markup string, opts Options, motion MotionPreference, log *slog.Logger) *Typewriter {
	return New(sched, display, parser.ParseMarkup(markup), opts, motion, log)
}

// OnAttach loads the initial content the first time it is called and starts
// playback, or reveals everything at once when reduced motion is requested
// and respected. Later calls resume a suspended loop.
func (t *Typewriter) OnAttach() {
	if t.attached {
		return
	}
	t.attached = true

	if t.seen {
		t.Wake()
		return
	}
	t.seen = true
	if !t.loaded {
		t.loaded = true
		t.Load(t.initial)
		t.initial = nil
	}

	if t.ReducedMotion() {
		t.log.Debug("reduced motion, revealing immediately", "chars", t.Len())
		t.Complete()
		return
	}
	t.Start()
}

// OnDetach cancels the pending frame callback. Phase and index are kept.
func (t *Typewriter) OnDetach() {
	if !t.attached {
		return
	}
	t.attached = false
	t.Suspend()
}

// OnConfigChange applies new options. A changed timing policy takes effect
// from the next tick.
func (t *Typewriter) OnConfigChange(opts Options) {
	t.opts = opts.Normalize()
	t.SetPolicy(t.opts.Policy())
}

// SetText replaces the content with parsed HTML markup. Playback is
// cancelled and the element returns to Idle; it does not auto-start.
func (t *Typewriter) SetText(markup string) {
	t.SetContent(parser.ParseMarkup(markup))
}

// SetContent replaces the content with an already parsed sequence.
func (t *Typewriter) SetContent(seq charseq.Sequence) {
	t.loaded = true
	t.initial = nil
	t.Load(seq)
}

// ReducedMotion reports whether the reduced-motion short-circuit applies.
func (t *Typewriter) ReducedMotion() bool {
	return t.opts.RespectMotionPreference && t.motion.PrefersReducedMotion()
}

func (t *Typewriter) Options() Options { return t.opts }

func (t *Typewriter) Attached() bool { return t.attached }
