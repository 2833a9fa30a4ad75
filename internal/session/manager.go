package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/typewriter/internal/charseq"
	"github.com/dgallion1/typewriter/internal/element"
	"github.com/dgallion1/typewriter/internal/parser"
	"github.com/dgallion1/typewriter/internal/playback"
	"github.com/dgallion1/typewriter/internal/render"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrLimit          = errors.New("session limit reached")
	ErrInvalidContent = errors.New("invalid content")
	ErrUnknownAction  = errors.New("unknown action")
	ErrOutOfRange     = errors.New("cut index out of range")
)

// Loop is the scheduler sessions run on. Do executes fn on the goroutine
// that fires frame callbacks; every session access goes through it.
type Loop interface {
	playback.Scheduler
	Do(ctx context.Context, fn func()) error
}

// Action is a playback command with no arguments.
type Action string

const (
	ActionStart    Action = "start"
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
	ActionComplete Action = "complete"
	ActionReset    Action = "reset"
)

// Source is raw content plus what is needed to pick a parser.
type Source struct {
	Data     []byte
	Filename string // selects the parser by extension when Format is empty
	Format   string // html, md, txt, csv, pdf or docx; empty means html
}

type parsed struct {
	seq    charseq.Sequence
	format string
	hash   string
}

// Config bounds the manager.
type Config struct {
	MaxSessions int
	TTL         time.Duration
	Parser      parser.Options
}

// Manager is a registry of live sessions with TTL eviction.
type Manager struct {
	loop  Loop
	stats *playback.FrameStats
	cfg   Config
	log   *slog.Logger
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(loop Loop, stats *playback.FrameStats, cfg Config, log *slog.Logger) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		loop:     loop,
		stats:    stats,
		cfg:      cfg,
		log:      log,
		clock:    time.Now,
		sessions: make(map[string]*Session),
	}
}

// Run evicts idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := m.Cleanup(ctx); err != nil {
				m.log.Warn("session cleanup failed", "error", err)
			} else if n > 0 {
				m.log.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Create parses src, registers a session and attaches it, which starts
// playback (or reveals everything at once under reduced motion).
func (m *Manager) Create(ctx context.Context, src Source, opts element.Options, reducedMotion bool) (Snapshot, error) {
	p, err := m.parse(src)
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	var limitErr error
	err = m.loop.Do(ctx, func() {
		m.mu.Lock()
		if len(m.sessions) >= m.cfg.MaxSessions {
			m.mu.Unlock()
			limitErr = fmt.Errorf("%w (%d)", ErrLimit, m.cfg.MaxSessions)
			return
		}
		s := newSession(NewID(), m.loop, p, opts, reducedMotion, m.clock(), m.log)
		m.sessions[s.ID] = s
		m.mu.Unlock()

		s.tw.SetStats(m.stats)
		s.tw.OnAttach()
		s.log.Info("session created", "format", s.Format, "chars", s.tw.Len(), "phase", s.tw.Phase())
		snap = s.snapshot()
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("creating session: %w", err)
	}
	if limitErr != nil {
		return Snapshot{}, limitErr
	}
	return snap, nil
}

// Get returns the current state of a session.
func (m *Manager) Get(ctx context.Context, id string) (Snapshot, error) {
	var snap Snapshot
	err := m.with(ctx, id, false, func(s *Session) { snap = s.snapshot() })
	return snap, err
}

// Delete detaches a session, ends its subscriptions and drops it.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.with(ctx, id, false, func(s *Session) {
		s.close()
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		s.log.Info("session deleted")
	})
}

// Do applies a playback action.
func (m *Manager) Do(ctx context.Context, id string, action Action) (Snapshot, error) {
	var apply func(*element.Typewriter)
	switch action {
	case ActionStart:
		apply = (*element.Typewriter).Start
	case ActionPause:
		apply = (*element.Typewriter).Pause
	case ActionResume:
		apply = (*element.Typewriter).Resume
	case ActionComplete:
		apply = (*element.Typewriter).Complete
	case ActionReset:
		apply = (*element.Typewriter).Reset
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	var snap Snapshot
	err := m.with(ctx, id, true, func(s *Session) {
		apply(s.tw)
		snap = s.snapshot()
	})
	return snap, err
}

// Seek moves the cut point; see playback.Controller.Seek.
func (m *Manager) Seek(ctx context.Context, id string, position float64) (Snapshot, error) {
	var snap Snapshot
	err := m.with(ctx, id, true, func(s *Session) {
		s.tw.Seek(position)
		snap = s.snapshot()
	})
	return snap, err
}

// SetText replaces a session's content. Playback returns to Idle.
func (m *Manager) SetText(ctx context.Context, id string, src Source) (Snapshot, error) {
	p, err := m.parse(src)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	err = m.with(ctx, id, true, func(s *Session) {
		s.tw.SetContent(p.seq)
		s.Format = p.format
		s.ContentHash = p.hash
		snap = s.snapshot()
	})
	return snap, err
}

// Configure passes the session's options through update and applies the
// result.
func (m *Manager) Configure(ctx context.Context, id string, update func(element.Options) element.Options) (Snapshot, error) {
	var snap Snapshot
	err := m.with(ctx, id, true, func(s *Session) {
		s.tw.OnConfigChange(update(s.tw.Options()))
		snap = s.snapshot()
	})
	return snap, err
}

// Frame renders the first cut characters of the session's content without
// touching its playback state.
func (m *Manager) Frame(ctx context.Context, id string, cut int) (string, error) {
	var seq charseq.Sequence
	if err := m.with(ctx, id, false, func(s *Session) { seq = s.tw.Sequence() }); err != nil {
		return "", err
	}
	if cut < 0 || cut > seq.Len() {
		return "", fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, cut, seq.Len())
	}
	return render.Frame(seq, cut), nil
}

// Events returns the most recent events of a session, oldest first.
func (m *Manager) Events(ctx context.Context, id string) ([]playback.Event, error) {
	var events []playback.Event
	err := m.with(ctx, id, false, func(s *Session) { events = s.events() })
	return events, err
}

// Subscribe streams a session's events along with a snapshot taken on the
// same loop turn, so every event on the channel happened after the
// snapshot. The channel is closed when cancel is called or the session goes
// away.
func (m *Manager) Subscribe(ctx context.Context, id string) (Snapshot, <-chan playback.Event, func(), error) {
	var (
		snap  Snapshot
		subID int
		ch    <-chan playback.Event
		sess  *Session
	)
	err := m.with(ctx, id, false, func(s *Session) {
		snap = s.snapshot()
		subID, ch = s.subscribe()
		sess = s
	})
	if err != nil {
		return Snapshot{}, nil, nil, err
	}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = m.loop.Do(context.Background(), func() { sess.unsubscribe(subID) })
		})
	}
	return snap, ch, cancel, nil
}

// Cleanup drops sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	removed := 0
	err := m.loop.Do(ctx, func() {
		now := m.clock()
		m.mu.Lock()
		defer m.mu.Unlock()
		for id, s := range m.sessions {
			if now.Sub(s.UpdatedAt) > m.cfg.TTL {
				s.close()
				delete(m.sessions, id)
				removed++
			}
		}
	})
	return removed, err
}

// Close detaches every session. The manager is empty afterwards.
func (m *Manager) Close(ctx context.Context) error {
	return m.loop.Do(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for id, s := range m.sessions {
			s.close()
			delete(m.sessions, id)
		}
	})
}

// with runs fn on the loop goroutine against session id. touch marks the
// session as recently used.
func (m *Manager) with(ctx context.Context, id string, touch bool, fn func(*Session)) error {
	found := false
	err := m.loop.Do(ctx, func() {
		m.mu.Lock()
		s := m.sessions[id]
		m.mu.Unlock()
		if s == nil {
			return
		}
		found = true
		if touch {
			s.UpdatedAt = m.clock()
		}
		fn(s)
	})
	if err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (m *Manager) parse(src Source) (parsed, error) {
	format := strings.ToLower(strings.TrimPrefix(src.Format, "."))
	var (
		p   parser.Parser
		err error
	)
	switch {
	case format != "":
		p, err = parser.ForFormat(format, m.cfg.Parser)
	case src.Filename != "":
		p, err = parser.ForFile(src.Filename, m.cfg.Parser)
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(src.Filename), "."))
	default:
		format = "html"
		p, err = parser.ForFormat(format, m.cfg.Parser)
	}
	if err != nil {
		return parsed{}, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}

	seq, err := p.Parse(bytes.NewReader(src.Data), src.Filename)
	if err != nil {
		return parsed{}, fmt.Errorf("%w: parsing %s: %v", ErrInvalidContent, format, err)
	}
	return parsed{seq: seq, format: format, hash: ContentHashHex(src.Data)}, nil
}
