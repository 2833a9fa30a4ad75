package playback

import (
	"math"
	"slices"
	"sync"
	"time"
)

// DefaultStatsWindow is how many recent advances FrameStats keeps.
const DefaultStatsWindow = 1024

// StatsSnapshot summarises advance lateness. Lateness is how far past its
// delay a character advance landed; anything under one frame is scheduler
// rounding, anything at or above it is a missed frame.
type StatsSnapshot struct {
	Advances     uint64  `json:"advances"`
	MissedFrames uint64  `json:"missed_frames"`
	Window       int     `json:"window"`
	MeanMs       float64 `json:"mean_ms"`
	P50Ms        float64 `json:"p50_ms"`
	P95Ms        float64 `json:"p95_ms"`
	MaxMs        float64 `json:"max_ms"`
	MaxFrames    float64 `json:"max_frames"`
}

// FrameStats aggregates lateness across every controller sharing a frame
// loop. Totals cover the process lifetime; the distribution covers the
// last window advances. Safe for concurrent use.
type FrameStats struct {
	frame time.Duration

	mu       sync.Mutex
	ring     []time.Duration
	next     int
	advances uint64
	missed   uint64
}

// NewFrameStats returns stats for a loop ticking every frame.
func NewFrameStats(frame time.Duration, window int) *FrameStats {
	if window <= 0 {
		window = DefaultStatsWindow
	}
	return &FrameStats{
		frame: frame,
		ring:  make([]time.Duration, 0, window),
	}
}

// Record notes one advance that landed lateness past its delay.
func (s *FrameStats) Record(lateness time.Duration) {
	lateness = max(lateness, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.advances++
	if s.frame > 0 && lateness >= s.frame {
		s.missed++
	}
	if len(s.ring) < cap(s.ring) {
		s.ring = append(s.ring, lateness)
		return
	}
	s.ring[s.next] = lateness
	s.next = (s.next + 1) % len(s.ring)
}

func (s *FrameStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	snap := StatsSnapshot{
		Advances:     s.advances,
		MissedFrames: s.missed,
		Window:       len(s.ring),
	}
	window := slices.Clone(s.ring)
	s.mu.Unlock()

	if len(window) == 0 {
		return snap
	}
	slices.Sort(window)

	var sum time.Duration
	for _, d := range window {
		sum += d
	}
	worst := window[len(window)-1]
	snap.MeanMs = ms(sum) / float64(len(window))
	snap.P50Ms = ms(nearestRank(window, 50))
	snap.P95Ms = ms(nearestRank(window, 95))
	snap.MaxMs = ms(worst)
	if s.frame > 0 {
		snap.MaxFrames = float64(worst) / float64(s.frame)
	}
	return snap
}

// nearestRank picks the smallest sample with at least pct percent of the
// window at or below it.
func nearestRank(sorted []time.Duration, pct float64) time.Duration {
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	return sorted[min(max(rank, 1), len(sorted))-1]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
