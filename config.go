package cromwell

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is used when no base URL is configured on the client or
// in the environment.
const DefaultBaseURL = "http://localhost:8000"

const (
	envBaseURL  = "CROMWELL_BASE"
	envTimeout  = "CROMWELL_TIMEOUT"
	envLogLevel = "CROMWELL_LOG_LEVEL"
)

// Config holds client configuration loaded from environment variables.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	LogLevel slog.Level
}

// LoadConfig reads configuration from environment variables with sensible
// defaults. A zero Timeout means no client-imposed timeout.
func LoadConfig() Config {
	cfg := Config{
		BaseURL:  DefaultBaseURL,
		LogLevel: slog.LevelInfo,
	}

	if v := os.Getenv(envBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(envTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}

	return cfg
}

// ResolveBaseURL returns the engine base URL from CROMWELL_BASE, falling
// back to DefaultBaseURL. The value is not validated as a URL; a malformed
// value surfaces as a transport failure on the first request.
func ResolveBaseURL() string {
	if v := os.Getenv(envBaseURL); v != "" {
		return v
	}
	return DefaultBaseURL
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
