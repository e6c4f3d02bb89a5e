package settings

import (
	"fmt"
	"log/slog"
	"strings"
)

// Verbosity of the wrapper and verifier output.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
	LevelTrace Level = "trace"
)

// Level one step more verbose than debug.
const slogLevelTrace = slog.LevelDebug - 4

// Parses a log level name. Matching is case-insensitive; "warning" is
// accepted as an alias of "warn".
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace:
		return l, nil
	case "warning":
		return LevelWarn, nil
	default:
		return "", fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
	}
}

// Returns the equivalent [slog.Level].
func (l Level) Slog() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelInfo:
		return slog.LevelInfo
	case LevelDebug:
		return slog.LevelDebug
	case LevelTrace:
		return slogLevelTrace
	default:
		return slog.LevelWarn
	}
}
