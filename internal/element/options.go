package element

import (
	"time"

	"github.com/dgallion1/typewriter/internal/duration"
)

// Options are the host-configurable settings of a Typewriter.
type Options struct {
	Speed                   float64
	MinDuration             time.Duration
	MaxDuration             time.Duration // <= 0 means unbounded
	RespectMotionPreference bool
}

// DefaultOptions returns speed 1 with no duration bounds.
func DefaultOptions() Options {
	return Options{Speed: 1}
}

// Normalize clamps invalid values: speed <= 0 becomes 1, a negative
// minimum becomes 0 and a negative maximum becomes unbounded.
func (o Options) Normalize() Options {
	p := o.Policy()
	o.Speed = p.Speed
	o.MinDuration = p.MinDuration
	o.MaxDuration = p.MaxDuration
	return o
}

// Policy returns the timing policy the options describe.
func (o Options) Policy() duration.Policy {
	return duration.Policy{
		Speed:       o.Speed,
		MinDuration: o.MinDuration,
		MaxDuration: o.MaxDuration,
	}.Normalize()
}

// MotionPreference reports the platform's reduced-motion setting.
type MotionPreference interface {
	PrefersReducedMotion() bool
}

// StaticMotion is a MotionPreference with a fixed answer.
type StaticMotion bool

func (m StaticMotion) PrefersReducedMotion() bool { return bool(m) }
