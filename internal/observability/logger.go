package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// NewLogger builds the process logger. level is a zerolog level name
// ("debug", "info", ...); format is FormatConsole or FormatJSON. A nil w
// writes to stderr.
func NewLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("observability: log level %q: %w", level, err)
		}
		lvl = parsed
	}

	switch strings.ToLower(format) {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("observability: unknown log format %q", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("app", "otl").Logger(), nil
}

// InitLogger builds the logger and installs it as the zerolog global.
func InitLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	logger, err := NewLogger(w, level, format)
	if err != nil {
		return logger, err
	}
	log.Logger = logger
	return logger, nil
}
