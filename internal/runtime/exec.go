package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

var execSeq atomic.Uint64

// A process to run inside the build container.
type Command struct {
	Args   []string  // Executable and arguments. Not passed through a shell.
	Env    []string  // Overlaid on the container's environment.
	Dir    string    // Working directory. Defaults to the image's.
	Stdin  io.Reader // Optional.
	Stdout io.Writer // Discarded when nil.
	Stderr io.Writer // Discarded when nil.
}

// Runs cmd and returns its exit code. A non-zero exit is not an error.
func (c *Container) Run(ctx context.Context, cmd Command) (int, error) {
	if len(cmd.Args) == 0 {
		return 0, fmt.Errorf("%w: empty command", ErrRuntime)
	}

	proc, err := c.processSpec(ctx, cmd)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := c.task(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	stdout, stderr := cmd.Stdout, cmd.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	var (
		stdin    io.Reader
		stdinEOF <-chan struct{}
	)
	if cmd.Stdin != nil {
		r := &eofReader{r: cmd.Stdin, eof: make(chan struct{})}
		stdin, stdinEOF = r, r.eof
	}

	slog.Debug("container exec", "id", c.id, "args", cmd.Args)

	process, err := task.Exec(ctx, fmt.Sprintf("exec-%d", execSeq.Add(1)), proc, cio.NewCreator(
		cio.WithStreams(stdin, stdout, stderr),
	))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return wait(ctx, process, stdinEOF)
}

// Runs cmd and fails with ErrCommand when it exits non-zero. Captured
// stderr is included in the error unless cmd.Stderr is set.
func (c *Container) MustRun(ctx context.Context, cmd Command) error {
	var stderr bytes.Buffer
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}

	code, err := c.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		msg := strings.TrimSpace(stderr.String())
		return fmt.Errorf("%w: %s: exit code %d: %s", ErrCommand, strings.Join(cmd.Args, " "), code, msg)
	}
	return nil
}

// Derives the exec process spec from the container's own spec.
func (c *Container) processSpec(ctx context.Context, cmd Command) (*specs.Process, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, err
	}
	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	proc := *spec.Process
	proc.Terminal = false
	proc.Args = cmd.Args
	proc.Env = overlayEnv(proc.Env, cmd.Env)
	if cmd.Dir != "" {
		proc.Cwd = cmd.Dir
	}
	return &proc, nil
}

func (c *Container) task(ctx context.Context) (containerd.Task, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, err
	}
	return ctr.Task(ctx, nil)
}

// Starts process, waits for it and deletes it.
//
// The shim keeps both ends of the stdin FIFO open, so stdin is closed
// explicitly once the caller's reader is drained.
func wait(ctx context.Context, process containerd.Process, stdinEOF <-chan struct{}) (int, error) {
	statusC, err := process.Wait(ctx)
	if err != nil {
		process.Delete(ctx)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := process.Start(ctx); err != nil {
		process.Delete(ctx)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if stdinEOF != nil {
		go func() {
			<-stdinEOF
			process.CloseIO(ctx, containerd.WithStdinCloser)
		}()
	}

	status := <-statusC
	process.Delete(ctx)

	code, _, err := status.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return int(code), nil
}

// Overlays KEY=value entries on base. Later entries win and malformed ones
// are dropped. The result is sorted.
func overlayEnv(base, overrides []string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	for _, list := range [][]string{base, overrides} {
		for _, kv := range list {
			if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
				merged[k] = v
			}
		}
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	slices.Sort(env)
	return env
}

// Closes eof when the wrapped reader first reports io.EOF.
type eofReader struct {
	r    io.Reader
	once sync.Once
	eof  chan struct{}
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		e.once.Do(func() { close(e.eof) })
	}
	return n, err
}
