// Package logging provides structured logging using bolt.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/felixgeelhaar/bolt/v3"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
)

var current atomic.Pointer[bolt.Logger]

// Config configures the logger.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is the output format (json or console).
	Format string

	// Output is the output destination. Nil means stderr.
	Output io.Writer
}

// DefaultConfig returns console logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stderr,
	}
}

// ConfigFrom maps the logging section of the service configuration.
// The production profile always logs JSON so log shippers can parse it.
func ConfigFrom(cfg *domainconfig.AppConfig) Config {
	c := DefaultConfig()
	if cfg.Logging.Level != "" {
		c.Level = cfg.Logging.Level
	}
	switch {
	case cfg.Profile.IsProduction():
		c.Format = "json"
	case cfg.Logging.Format != "":
		c.Format = cfg.Logging.Format
	}
	return c
}

func parseLevel(s string) bolt.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "warn", "warning":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// New builds a logger without installing it.
func New(config Config) *bolt.Logger {
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	var handler bolt.Handler
	if config.Format == "json" {
		handler = bolt.NewJSONHandler(output)
	} else {
		handler = bolt.NewConsoleHandler(output)
	}
	return bolt.New(handler).SetLevel(parseLevel(config.Level))
}

// Init installs the process-wide logger. Later calls replace it.
func Init(config Config) {
	current.Store(New(config))
}

// Get returns the process-wide logger, installing the default one if needed.
func Get() *bolt.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	current.CompareAndSwap(nil, New(DefaultConfig()))
	return current.Load()
}

// SetLevel changes the level of the process-wide logger.
func SetLevel(level string) {
	Get().SetLevel(parseLevel(level))
}

// LogEvent wraps a bolt.Event so Fields can be chained onto it.
type LogEvent struct {
	event *bolt.Event
}

// NewEvent wraps a bolt.Event for field application.
func NewEvent(e *bolt.Event) *LogEvent {
	return &LogEvent{event: e}
}

// Add applies a field and returns the wrapper for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

// Msg sends the event with a message.
func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}

// Send sends the event without a message.
func (l *LogEvent) Send() {
	l.event.Send()
}

// Debug starts a debug level event.
func Debug() *LogEvent { return NewEvent(Get().Debug()) }

// Info starts an info level event.
func Info() *LogEvent { return NewEvent(Get().Info()) }

// Warn starts a warn level event.
func Warn() *LogEvent { return NewEvent(Get().Warn()) }

// Error starts an error level event.
func Error() *LogEvent { return NewEvent(Get().Error()) }
