package runtime

import (
	"context"
	"io"
)

// Creates dir and its parents inside the container.
func (c *Container) MkdirAll(ctx context.Context, dir string) error {
	return c.MustRun(ctx, Command{Args: []string{"mkdir", "-p", dir}})
}

// Extracts the tar stream r into dir inside the container.
func (c *Container) CopyTo(ctx context.Context, r io.Reader, dir string) error {
	return c.MustRun(ctx, Command{Args: []string{"tar", "xf", "-", "-C", dir}, Stdin: r})
}

// Deletes path and everything below it inside the container.
func (c *Container) RemoveAll(ctx context.Context, path string) error {
	return c.MustRun(ctx, Command{Args: []string{"rm", "-rf", path}})
}
