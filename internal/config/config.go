package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Playback defaults for new sessions
	DefaultSpeed            float64
	DefaultMinDuration      time.Duration
	DefaultMaxDuration      time.Duration
	RespectMotionPreference bool

	// Frame loop
	FrameInterval time.Duration

	// Session state
	MaxSessions int
	SessionTTL  time.Duration

	// Upload limits
	MaxUploadBytes int64

	// PDF
	PDFFallbackPdftotext bool

	LogLevel slog.Level
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("TYPEWRITER_API_KEY"),

		DefaultSpeed:            envFloat("DEFAULT_SPEED", 1),
		DefaultMinDuration:      envDuration("DEFAULT_MIN_DURATION", 0),
		DefaultMaxDuration:      envDuration("DEFAULT_MAX_DURATION", 0),
		RespectMotionPreference: envBool("RESPECT_MOTION_PREFERENCE", false),

		FrameInterval: envDuration("FRAME_INTERVAL", 16*time.Millisecond),

		MaxSessions: envInt("MAX_SESSIONS", 1000),
		SessionTTL:  envDuration("SESSION_TTL", 1*time.Hour),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.DefaultSpeed <= 0 {
		cfg.DefaultSpeed = 1
	}
	if cfg.DefaultMinDuration < 0 {
		cfg.DefaultMinDuration = 0
	}
	if cfg.DefaultMaxDuration < 0 {
		cfg.DefaultMaxDuration = 0
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 16 * time.Millisecond
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1 * time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("TYPEWRITER_API_KEY is required")
	}
	if c.DefaultMaxDuration > 0 && c.DefaultMinDuration > c.DefaultMaxDuration {
		return fmt.Errorf("DEFAULT_MIN_DURATION (%s) exceeds DEFAULT_MAX_DURATION (%s)", c.DefaultMinDuration, c.DefaultMaxDuration)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.TrimSpace(v))); err == nil {
			return l
		}
	}
	return fallback
}
