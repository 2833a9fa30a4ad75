package duration

import (
	"math"
	"time"
)

// BaseDelay is the per-character cadence at speed 1.
const BaseDelay = 50 * time.Millisecond

// Policy bounds how long a full reveal may take.
type Policy struct {
	Speed       float64       // Reveal rate multiplier; <= 0 means 1
	MinDuration time.Duration // Floor on total reveal time; <= 0 means none
	MaxDuration time.Duration // Ceiling on total reveal time; <= 0 means unbounded
}

// Normalize clamps invalid values into their neutral settings.
func (p Policy) Normalize() Policy {
	if p.Speed <= 0 || p.Speed != p.Speed {
		p.Speed = 1
	}
	if p.MinDuration < 0 {
		p.MinDuration = 0
	}
	if p.MaxDuration < 0 {
		p.MaxDuration = 0
	}
	return p
}

// Bounded reports whether the policy has a ceiling.
func (p Policy) Bounded() bool {
	return p.MaxDuration > 0
}

// Delay returns the per-character delay for content of totalChars.
func (p Policy) Delay(totalChars int) time.Duration {
	return DelayPerChar(totalChars, p.Speed, p.MinDuration, p.MaxDuration)
}

// Total returns the projected wall-clock time to reveal totalChars.
// It saturates at the largest representable duration.
func (p Policy) Total(totalChars int) time.Duration {
	return clamp(float64(p.Delay(totalChars)) * float64(max(totalChars, 0)))
}

// DelayPerChar computes the per-character reveal delay. The base cadence is
// BaseDelay/speed; a projected total below minDuration is stretched to it
// and one above a bounded maxDuration is compressed to it. Empty content
// has no delay.
func DelayPerChar(totalChars int, speed float64, minDuration, maxDuration time.Duration) time.Duration {
	if totalChars <= 0 {
		return 0
	}
	if speed <= 0 || speed != speed {
		speed = 1
	}
	// Float math: tiny speeds push the projection past int64 nanoseconds.
	base := float64(BaseDelay) / speed
	projected := base * float64(totalChars)
	n := time.Duration(totalChars)

	switch {
	case minDuration > 0 && projected < float64(minDuration):
		return minDuration / n
	case maxDuration > 0 && projected > float64(maxDuration):
		return maxDuration / n
	default:
		return clamp(base)
	}
}

func clamp(ns float64) time.Duration {
	if ns >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(ns)
}
