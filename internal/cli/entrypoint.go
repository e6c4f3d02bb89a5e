package cli

import (
	"context"
	"errors"

	"github.com/cruciblehq/playground/internal/entrypoint"
)

// Exit codes for a failed handoff, as shells report them.
const (
	exitNotFound      = 127
	exitNotExecutable = 126
)

// Represents the 'playground entrypoint' command.
type EntrypointCmd struct {
	Command []string `arg:"" optional:"" passthrough:"" help:"Command to run in the session (default: login shell)."`
}

// Executes the entrypoint command. On success the process is replaced and
// Run does not return.
func (c *EntrypointCmd) Run(ctx context.Context) error {
	s, err := entrypoint.Bootstrap(ctx, entrypoint.Options{Args: c.Command})
	if err != nil {
		return err
	}

	err = s.Handoff()
	switch {
	case errors.Is(err, entrypoint.ErrCommandNotFound):
		return &ExitError{Code: exitNotFound, Err: err}
	case err != nil:
		return &ExitError{Code: exitNotExecutable, Err: err}
	}
	return nil
}
