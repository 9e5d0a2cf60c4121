package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger     = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	loggerLock sync.RWMutex
)

// Options controls the global logger.
type Options struct {
	Level  string
	Pretty bool
	Output io.Writer
}

// Configure replaces the global logger. Pretty selects a console writer for
// interactive use; otherwise output is JSON.
func Configure(opts Options) {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	if opts.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.Kitchen,
		}
	}

	loggerLock.Lock()
	defer loggerLock.Unlock()
	logger = zerolog.New(output).
		Level(parseLogLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
}

// SetLevel sets the global log level at runtime
func SetLevel(levelStr string) {
	level := parseLogLevel(levelStr)
	loggerLock.Lock()
	logger = logger.Level(level)
	loggerLock.Unlock()
}

func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func current() *zerolog.Logger {
	loggerLock.RLock()
	defer loggerLock.RUnlock()
	l := logger
	return &l
}

func Debug() *zerolog.Event {
	return current().Debug()
}

func Info() *zerolog.Event {
	return current().Info()
}

func Warn() *zerolog.Event {
	return current().Warn()
}

func Error() *zerolog.Event {
	return current().Error()
}

// Logger returns the underlying zerolog.Logger for integrations
func Logger() zerolog.Logger {
	return *current()
}
