package internal

import (
	"log/slog"
	"strconv"
	"sync/atomic"
)

var (
	quietMode atomic.Bool // Only warnings and errors are logged.
	debugMode atomic.Bool // Debug records are logged regardless of PRUSTI_LOG_LEVEL.

	logLevel slog.LevelVar // Level of the process logger.
)

// Seeds the verbosity toggles from linker flags. Unparsable values are ignored.
func init() {
	if v, err := strconv.ParseBool(rawQuiet); err == nil {
		quietMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawDebug); err == nil {
		debugMode.Store(v)
	}
}

// Enables or disables quiet mode.
func SetQuiet(enabled bool) {
	quietMode.Store(enabled)
}

// Returns true if quiet mode is enabled.
func IsQuiet() bool {
	return quietMode.Load()
}

// Enables or disables debug mode.
func SetDebug(enabled bool) {
	debugMode.Store(enabled)
}

// Returns true if debug mode is enabled.
func IsDebug() bool {
	return debugMode.Load()
}

// Returns the level shared by the process logger. Adjusting it takes effect
// on the next record.
func LogLevel() *slog.LevelVar {
	return &logLevel
}
