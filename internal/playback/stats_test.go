package playback

import (
	"testing"
	"time"
)

func TestFrameStats_Snapshot(t *testing.T) {
	stats := NewFrameStats(16*time.Millisecond, 0)
	for _, n := range []int{10, 20, 30, 40, 50} {
		stats.Record(time.Duration(n) * time.Millisecond)
	}

	snap := stats.Snapshot()
	if snap.Advances != 5 || snap.Window != 5 {
		t.Fatalf("expected 5 advances in window, got %+v", snap)
	}
	// 20, 30, 40 and 50 all missed at least one 16ms frame.
	if snap.MissedFrames != 4 {
		t.Errorf("expected 4 missed frames, got %d", snap.MissedFrames)
	}
	if snap.MeanMs != 30 {
		t.Errorf("expected mean=30, got %v", snap.MeanMs)
	}
	if snap.P50Ms != 30 || snap.P95Ms != 50 || snap.MaxMs != 50 {
		t.Errorf("expected p50=30 p95=50 max=50, got %+v", snap)
	}
	if snap.MaxFrames != 3.125 {
		t.Errorf("expected max_frames=3.125, got %v", snap.MaxFrames)
	}
}

func TestFrameStats_WindowKeepsNewest(t *testing.T) {
	stats := NewFrameStats(time.Millisecond, 3)
	for n := 1; n <= 5; n++ {
		stats.Record(time.Duration(n*100) * time.Millisecond)
	}

	snap := stats.Snapshot()
	if snap.Advances != 5 {
		t.Errorf("expected lifetime advances=5, got %d", snap.Advances)
	}
	if snap.Window != 3 {
		t.Fatalf("expected window=3, got %d", snap.Window)
	}
	// 100ms and 200ms were overwritten.
	if snap.MeanMs != 400 || snap.P50Ms != 400 || snap.MaxMs != 500 {
		t.Errorf("expected mean=400 p50=400 max=500, got %+v", snap)
	}
}

func TestFrameStats_RoundingIsNotAMissedFrame(t *testing.T) {
	stats := NewFrameStats(16*time.Millisecond, 0)
	stats.Record(-5 * time.Millisecond)
	stats.Record(15 * time.Millisecond)
	stats.Record(16 * time.Millisecond)

	snap := stats.Snapshot()
	if snap.MissedFrames != 1 {
		t.Errorf("expected 1 missed frame, got %d", snap.MissedFrames)
	}
	if snap.P50Ms != 15 {
		t.Errorf("expected p50=15, got %v", snap.P50Ms)
	}
	if snap.MeanMs != float64(31)/3 {
		t.Errorf("expected negative lateness clamped to 0, got mean=%v", snap.MeanMs)
	}
}

func TestFrameStats_EmptySnapshot(t *testing.T) {
	if snap := NewFrameStats(0, 0).Snapshot(); snap != (StatsSnapshot{}) {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}
