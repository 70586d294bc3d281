// Package log provides the process-wide leveled logger used by storyflow.
// Messages take alternating key/value pairs, e.g.
//
//	log.Info("pushed branch", "branch", name, "remote", remote)
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// LevelProgress sits between info and warn. It is used for step-by-step
// progress of multi-step commands (publish, finish).
const LevelProgress = slog.Level(2)

// Level names accepted by ParseLevel and the --log-level flag.
const (
	LevelNameDebug    = "debug"
	LevelNameInfo     = "info"
	LevelNameProgress = "progress"
	LevelNameMinimal  = "minimal"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = LevelNameProgress

var (
	level   = new(slog.LevelVar)
	current atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(LevelProgress)
	current.Store(newLogger(os.Stderr))
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelProgress {
					a.Value = slog.StringValue("PROGRESS")
				}
			}
			return a
		},
	}))
}

// ParseLevel converts a level name into a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case LevelNameDebug:
		return slog.LevelDebug, nil
	case LevelNameInfo:
		return slog.LevelInfo, nil
	case LevelNameProgress, "":
		return LevelProgress, nil
	case LevelNameMinimal:
		return slog.LevelWarn, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (expected debug, info, progress or minimal)", name)
	}
}

// SetLevel changes the minimum level of the process logger.
func SetLevel(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// SetOutput redirects log output. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	current.Store(newLogger(w))
}

func Debug(msg string, args ...any) {
	current.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	current.Load().Info(msg, args...)
}

// Progress logs a step of a multi-step command.
func Progress(msg string, args ...any) {
	current.Load().Log(context.Background(), LevelProgress, msg, args...)
}

func Warn(msg string, args ...any) {
	current.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	current.Load().Error(msg, args...)
}
