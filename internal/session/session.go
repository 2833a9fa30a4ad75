package session

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/typewriter/internal/element"
	"github.com/dgallion1/typewriter/internal/playback"
	"github.com/dgallion1/typewriter/internal/render"
	"golang.org/x/net/html"
)

// historySize is how many recent events a session keeps.
const historySize = 64

// subscriberBuffer is the per-subscriber channel depth. Events are dropped
// for subscribers that fall further behind.
const subscriberBuffer = 64

// Session is one hosted typewriter. All fields are owned by the frame loop
// goroutine; the Manager only touches them inside Loop.Do.
type Session struct {
	ID          string
	Format      string
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	tw   *element.Typewriter
	view *render.Renderer[*html.Node]
	log  *slog.Logger

	history []playback.Event
	subs    map[int]chan playback.Event
	nextSub int
}

func newSession(id string, loop playback.Scheduler, src parsed, opts element.Options, reduced bool, now time.Time, log *slog.Logger) *Session {
	log = log.With("session_id", id)
	s := &Session{
		ID:          id,
		Format:      src.format,
		ContentHash: src.hash,
		CreatedAt:   now,
		UpdatedAt:   now,
		view:        render.NewHTMLRenderer(),
		log:         log,
		subs:        make(map[int]chan playback.Event),
	}
	s.tw = element.New(loop, s.view, src.seq, opts, element.StaticMotion(reduced), log)
	s.tw.SubscribeAll(s.record)
	return s
}

func (s *Session) record(e playback.Event) {
	if len(s.history) == historySize {
		copy(s.history, s.history[1:])
		s.history = s.history[:historySize-1]
	}
	s.history = append(s.history, e)

	for id, ch := range s.subs {
		select {
		case ch <- e:
		default:
			s.log.Warn("dropping event for slow subscriber", "subscriber", id, "event", e.Kind)
		}
	}
}

func (s *Session) subscribe() (int, <-chan playback.Event) {
	s.nextSub++
	ch := make(chan playback.Event, subscriberBuffer)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

func (s *Session) unsubscribe(id int) {
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// close detaches the element and ends every subscription.
func (s *Session) close() {
	s.tw.OnDetach()
	for id := range s.subs {
		s.unsubscribe(id)
	}
}

func (s *Session) events() []playback.Event {
	return append([]playback.Event{}, s.history...)
}

// OptionsView is the JSON form of element.Options.
type OptionsView struct {
	Speed                   float64 `json:"speed"`
	MinDurationMs           int64   `json:"min_duration_ms"`
	MaxDurationMs           int64   `json:"max_duration_ms"`
	RespectMotionPreference bool    `json:"respect_motion_preference"`
}

func viewOptions(o element.Options) OptionsView {
	return OptionsView{
		Speed:                   o.Speed,
		MinDurationMs:           o.MinDuration.Milliseconds(),
		MaxDurationMs:           o.MaxDuration.Milliseconds(),
		RespectMotionPreference: o.RespectMotionPreference,
	}
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID          string         `json:"id"`
	Phase       playback.Phase `json:"phase"`
	Index       int            `json:"index"`
	Total       int            `json:"total"`
	Progress    float64        `json:"progress"`
	HTML        string         `json:"html"`
	ContentHash string         `json:"content_hash"`
	Format      string         `json:"format"`
	Options     OptionsView    `json:"options"`
	DelayMs     float64        `json:"delay_ms"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:          s.ID,
		Phase:       s.tw.Phase(),
		Index:       s.tw.Index(),
		Total:       s.tw.Len(),
		Progress:    s.tw.Progress(),
		HTML:        render.HTML(s.view),
		ContentHash: s.ContentHash,
		Format:      s.Format,
		Options:     viewOptions(s.tw.Options()),
		DelayMs:     float64(s.tw.Delay()) / float64(time.Millisecond),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
