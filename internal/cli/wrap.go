package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/cruciblehq/playground/internal/settings"
	"github.com/cruciblehq/playground/internal/wrapper"
)

// Represents the 'playground wrap' command.
type WrapCmd struct {
	Compiler []string `arg:"" passthrough:"" help:"Compiler and its arguments."`
}

// Executes the wrap command and exits with the verdict's exit code.
func (c *WrapCmd) Run(ctx context.Context) error {
	cfg, err := settings.FromEnviron(os.Environ())
	if err != nil {
		return err
	}

	args := c.Compiler
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: missing compiler", wrapper.ErrUsage)
	}

	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	runner := &wrapper.Runner{Interceptor: &wrapper.Policy{Config: cfg}}
	code, err := runner.Run(ctx, wrapper.Invocation{
		Compiler: args[0],
		Args:     args[1:],
		Env:      os.Environ(),
		Dir:      dir,
	})
	if err != nil {
		return err
	}
	return exitWith(code)
}
