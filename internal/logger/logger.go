// Package logger wraps zerolog with the constructors and context helpers the
// rest of the application uses.
//
// The Logger type embeds zerolog.Logger, so Debug/Info/Warn/Error/Err are all
// available directly. Request handlers never build their own logger: the
// request middleware attaches a child logger (carrying the request ID) to the
// request context, and code further down pulls it back out with FromContext.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// Options controls where and how verbosely logs are written.
type Options struct {
	Level  string // "debug", "info", "warn", "error"; defaults to info
	Pretty bool   // human-readable console output instead of JSON

	// File, when set, additionally writes JSON logs to a size-rotated file.
	File           string
	MaxFileSizeMB  int
	MaxBackupCount int
}

// New builds the process-wide logger.
//
// Output always goes to stdout (JSON, or ConsoleWriter when Pretty is set).
// When Options.File is non-empty, lumberjack rotates a second copy on disk.
func New(opts Options) (*Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("logger: invalid level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var stdout io.Writer = os.Stdout
	if opts.Pretty {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{stdout}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxFileSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackupCount, 3),
		})
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zl := zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("service", "catchme").
		Logger()

	return &Logger{zl}, nil
}

// Nop returns a *Logger that discards all output. Used in tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// With returns a child logger with an extra string field, e.g. a component
// name. The parent is not modified.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{l.Logger.With().Str(key, value).Logger()}
}

// WithContext stores the logger in ctx so FromContext can find it later.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}

// Fatalf logs at fatal level and exits. Together with the embedded Printf it
// lets *Logger serve as goose's migration logger.
func (l *Logger) Fatalf(format string, v ...any) {
	l.Fatal().Msgf(format, v...)
}

// FromContext returns the logger attached to ctx by the request middleware.
//
// If nothing was attached, zerolog falls back to its global logger (or a
// disabled one), so this never returns nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}

// FromContextOr is FromContext for code that also runs outside a request,
// such as the scheduled jobs. When ctx carries no logger, fallback is used
// instead of the disabled one.
func FromContextOr(ctx context.Context, fallback *Logger) *Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled || fallback == nil {
		return &Logger{*l}
	}
	return fallback
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
