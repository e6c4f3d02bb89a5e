package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/cruciblehq/playground/internal"
	"github.com/cruciblehq/playground/internal/cli"
	"github.com/cruciblehq/playground/internal/wrapper"
)

// The entry point for the playground binary.
//
// Invoked under a launcher name, the binary acts as that launcher and exits
// with the wrapped tool's exit code. Otherwise it runs the command tree and
// exits non-zero on error.
func main() {
	slog.SetDefault(logger())

	if name := filepath.Base(os.Args[0]); wrapper.IsLauncher(name) {
		os.Exit(cli.Launch(name, os.Args[1:]))
	}

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("playground is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			if exit.Err != nil {
				slog.Error(exit.Err.Error())
			}
			os.Exit(exit.Code)
		}
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// Creates a stderr logger seeded from build-time linker flags.
//
// The level is adjusted after flag parsing via cli.Execute.
func logger() *slog.Logger {
	internal.LogLevel().Set(logLevel())
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      internal.LogLevel(),
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

// Returns the log level derived from build-time linker flags.
func logLevel() slog.Level {
	if internal.IsDebug() {
		return slog.LevelDebug
	}
	if internal.IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
