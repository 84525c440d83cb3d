// Package logging configures the process-wide [log/slog] logger and scopes
// child loggers to the stages of the migration pipeline, so diagnostics
// from parsing, lowering, and generation are distinguishable in one stream.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/dsx2talend/internal/config"
)

// Phase names the pipeline stage a log record belongs to.
type Phase string

// Pipeline phases, in execution order.
const (
	PhaseParse    Phase = "parse"
	PhaseASG      Phase = "asg"
	PhaseLower    Phase = "lower"
	PhaseGenerate Phase = "generate"
	PhasePackage  Phase = "package"
)

// Option adjusts logger construction.
type Option func(*settings)

type settings struct {
	w io.Writer
}

// WithWriter redirects log output, e.g. to a buffer in tests. The default
// is stderr.
func WithWriter(w io.Writer) Option {
	return func(s *settings) { s.w = w }
}

// Setup creates a *slog.Logger configured according to cfg and installs it
// as the process-wide default via slog.SetDefault.
func Setup(cfg *config.Config, opts ...Option) *slog.Logger {
	s := settings{w: os.Stderr}
	for _, opt := range opts {
		opt(&s)
	}

	hopts := &slog.HandlerOptions{Level: parseLevel(cfg.EffectiveLogLevel())}

	var handler slog.Handler

	switch cfg.LogFormat {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(s.w, hopts)
	default: // text
		handler = slog.NewTextHandler(s.w, hopts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// ForPhase returns a child logger that tags every record with the pipeline
// phase it came from.
func ForPhase(logger *slog.Logger, phase Phase) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}

	return logger.With(slog.String("phase", string(phase)))
}

// parseLevel converts a configured log level to slog.Level, defaulting to
// info for anything unrecognized.
func parseLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey struct{}

// NewContext returns a child context carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from ctx, falling back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}

	return slog.Default()
}
