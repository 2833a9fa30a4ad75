package api

import (
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/dgallion1/typewriter/internal/element"
	"github.com/stretchr/testify/assert"
)

func TestOptionsRequest_ApplySaturatesDurations(t *testing.T) {
	huge := int64(math.MaxInt64)
	tiny := int64(math.MinInt64)
	two := int64(2000)

	tests := []struct {
		name    string
		req     optionsRequest
		wantMin time.Duration
		wantMax time.Duration
	}{
		{"plain millis", optionsRequest{MinDurationMs: &two, MaxDurationMs: &two}, 2 * time.Second, 2 * time.Second},
		{"huge max stays bounded", optionsRequest{MaxDurationMs: &huge}, 0, msDuration(huge)},
		{"huge min stays positive", optionsRequest{MinDurationMs: &huge}, msDuration(huge), 0},
		{"very negative clamps to zero", optionsRequest{MinDurationMs: &tiny, MaxDurationMs: &tiny}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.apply(element.Options{Speed: 1})
			assert.Equal(t, tt.wantMin, got.MinDuration)
			assert.Equal(t, tt.wantMax, got.MaxDuration)
		})
	}

	assert.Greater(t, msDuration(huge), 290*365*24*time.Hour)
}

func TestCreateSession_HugeMaxDurationIsBounded(t *testing.T) {
	s := newTestServer(t, 10)
	rec, out := do(t, s, http.MethodPost, "/api/sessions",
		`{"markup":"abc","options":{"speed":0.001,"max_duration_ms":9223372036854775807}}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	opts, _ := out["options"].(map[string]any)
	maxMs, _ := opts["max_duration_ms"].(float64)
	assert.Greater(t, maxMs, 0.0, "max duration must not wrap to unbounded")
}
