// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to zerolog.Level. Unknown names map to
// Info.
func ParseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component names used as the "component" field.
const (
	ComponentPagination = "pagination"
	ComponentClient     = "lazylist-client"
	ComponentRateLimit  = "ratelimit"
	ComponentCache      = "cache"
)

// NewLogger returns a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithPage tags logger with the page window being loaded. A negative total
// means the total is not known yet and is omitted.
func WithPage(logger zerolog.Logger, endpoint string, offset, limit, total int) zerolog.Logger {
	ctx := logger.With().
		Str("endpoint", endpoint).
		Int("offset", offset).
		Int("limit", limit)
	if total >= 0 {
		ctx = ctx.Int("total", total)
	}
	return ctx.Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Page requests (endpoint, offset, limit)
//   - Cache operations (hit/miss, key, TTL)
//   - Continuation dispatch and completion
//   - Dropped "load more" requests while busy
//
// Info: Normal operation events
//   - First page loaded
//   - Collection fully loaded
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Failed page fetches (Next returns false)
//   - Rate limit budget low (throttling active)
//   - Cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Rate limit budget critical (requests blocked)
//   - HTTP transport failures
//   - Configuration errors
//
// Context Fields:
//   - component: pagination, lazylist-client, ratelimit, cache
//   - endpoint: page server path
//   - offset, limit, total, loaded: paging window and progress
//   - continuation_id: correlates dispatch and completion of one continuation
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network
//   - remaining: request budget left
