package playback

import "encoding/json"

// EventKind names a lifecycle or progress notification.
type EventKind string

const (
	EventStart    EventKind = "start"
	EventPause    EventKind = "pause"
	EventResume   EventKind = "resume"
	EventComplete EventKind = "complete"
	EventReset    EventKind = "reset"
	EventProgress EventKind = "progress"
	EventSeek     EventKind = "seek"
)

// Event is delivered to subscribers. Current and Total are set for
// progress events; Position (the resulting absolute index) for seek
// events; Progress for both.
type Event struct {
	Kind     EventKind
	Current  int
	Total    int
	Position int
	Progress float64
}

// MarshalJSON emits only the payload fields that belong to the kind.
func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": e.Kind}
	switch e.Kind {
	case EventProgress:
		out["current"] = e.Current
		out["total"] = e.Total
		out["progress"] = e.Progress
	case EventSeek:
		out["position"] = e.Position
		out["progress"] = e.Progress
	}
	return json.Marshal(out)
}

type subscription struct {
	id   int
	kind EventKind // empty for all kinds
	fn   func(Event)
}

// observers is an ordered subscriber list. Dispatch iterates over a copy,
// so callbacks may subscribe or unsubscribe while an event is delivered.
type observers struct {
	next int
	subs []subscription
}

func (o *observers) add(kind EventKind, fn func(Event)) func() {
	o.next++
	id := o.next
	o.subs = append(o.subs, subscription{id: id, kind: kind, fn: fn})
	return func() { o.remove(id) }
}

func (o *observers) remove(id int) {
	for i, s := range o.subs {
		if s.id == id {
			o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
			return
		}
	}
}

func (o *observers) dispatch(e Event) {
	subs := append([]subscription(nil), o.subs...)
	for _, s := range subs {
		if s.kind == "" || s.kind == e.Kind {
			s.fn(e)
		}
	}
}
