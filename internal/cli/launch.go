package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cruciblehq/playground/internal/settings"
	"github.com/cruciblehq/playground/internal/wrapper"
)

// Runs the binary as the launcher called name and returns the exit code.
func Launch(name string, args []string) int {
	configureLogger(false)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	environ := os.Environ()
	cfg, err := settings.FromEnviron(environ)
	if err != nil {
		slog.Error(err.Error())
		return 1
	}

	dir, err := os.Getwd()
	if err != nil {
		slog.Error(err.Error())
		return 1
	}

	l := &wrapper.Launcher{
		Config:  cfg,
		Environ: environ,
		Dir:     dir,
	}
	code, err := l.Run(ctx, name, args)
	if err != nil {
		slog.Error(err.Error(), "launcher", name)
		return 1
	}
	return code
}
