package image

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cruciblehq/playground/internal"
	"github.com/cruciblehq/playground/internal/paths"
	"github.com/cruciblehq/playground/internal/runtime"
	"github.com/cruciblehq/playground/internal/settings"
)

// Controls an image build.
type Options struct {
	Base     string          // OCI archive of the base image.
	Output   string          // Path of the OCI archive to write.
	Source   string          // Host directory holding the toolchain artifacts.
	Binary   string          // Host path of a playground binary built for the target platform.
	Platform string          // Target platform. Defaults to the host's.
	Config   settings.Config // Configuration baked into the image.
	Debug    bool            // Run assembly with debug logging.
	Log      io.Writer       // Receives assembly output. Defaults to os.Stderr.
}

// Returned after a successful build.
type Result struct {
	Output string // Path of the written archive.
	Size   int64  // Archive size in bytes.
}

// Builds the playground image.
func Build(ctx context.Context, rt *runtime.Runtime, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Platform == "" {
		opts.Platform = runtime.DefaultPlatform()
	}
	if opts.Log == nil {
		opts.Log = os.Stderr
	}

	slog.Info("building image",
		"base", opts.Base,
		"output", opts.Output,
		"platform", opts.Platform,
		"wrapper", opts.Config.Wrapper(),
	)
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(opts.Output), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	ctr, err := rt.Launch(ctx, opts.Base, containerID(opts.Platform), opts.Platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	defer ctr.Destroy(context.WithoutCancel(ctx))

	if err := stage(ctx, ctr, opts); err != nil {
		return nil, err
	}

	slog.Info("assembling image filesystem")
	if err := ctr.MustRun(ctx, runtime.Command{
		Args:   assembleArgs(opts),
		Env:    opts.Config.Environ(),
		Stdout: opts.Log,
		Stderr: opts.Log,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	if err := ctr.RemoveAll(ctx, paths.StagingDir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	if err := ctr.Stop(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	if err := ctr.Export(ctx, opts.Output, imageConfig(opts.Config)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	info, err := os.Stat(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	slog.Info("image built",
		"output", opts.Output,
		"size", humanize.Bytes(uint64(info.Size())),
		"took", time.Since(start).Round(time.Second),
	)
	return &Result{Output: opts.Output, Size: info.Size()}, nil
}

// Copies the binary and the artifacts into the container.
func stage(ctx context.Context, ctr *runtime.Container, opts Options) error {
	binDir := filepath.Dir(paths.Binary)
	stagingParent := filepath.Dir(paths.StagingDir)

	for _, dir := range []string{binDir, stagingParent} {
		if err := ctr.MkdirAll(ctx, dir); err != nil {
			return fmt.Errorf("%w: %w", ErrCopy, err)
		}
	}

	binary := tarStream(func(tw *tar.Writer) error {
		return writeFile(tw, opts.Binary, filepath.Base(paths.Binary), paths.DefaultExecMode)
	})
	defer binary.Close()
	if err := ctr.CopyTo(ctx, binary, binDir); err != nil {
		return fmt.Errorf("%w: binary: %w", ErrCopy, err)
	}

	artifacts := tarStream(func(tw *tar.Writer) error {
		return writeTree(tw, opts.Source, filepath.Base(paths.StagingDir))
	})
	defer artifacts.Close()
	if err := ctr.CopyTo(ctx, artifacts, stagingParent); err != nil {
		return fmt.Errorf("%w: artifacts: %w", ErrCopy, err)
	}

	slog.Debug("staged build inputs", "binary", paths.Binary, "artifacts", paths.StagingDir)
	return nil
}

// Returns the command that assembles the image filesystem in the container.
//
// The wrapper is always passed, so an empty one disables interception instead
// of falling back to the assemble default.
func assembleArgs(opts Options) []string {
	args := []string{paths.Binary}
	if opts.Debug {
		args = append(args, "--debug")
	}
	return append(args, "assemble",
		"--source", paths.StagingDir,
		"--wrapper="+opts.Config.Wrapper(),
	)
}

// Returns the runtime configuration of the built image.
func imageConfig(cfg settings.Config) runtime.ImageConfig {
	return runtime.ImageConfig{
		Entrypoint: []string{paths.Binary, "entrypoint"},
		Env:        cfg.Environ(),
		WorkingDir: cfg.ScaffoldDir(),
		User:       cfg.User(),
		Labels: map[string]string{
			"org.opencontainers.image.title":   internal.Name,
			"org.opencontainers.image.version": internal.Version(),
		},
	}
}

func containerID(platform string) string {
	return internal.Name + "-build-" + strings.ReplaceAll(platform, "/", "-")
}

func (o Options) validate() error {
	for name, path := range map[string]string{"base": o.Base, "binary": o.Binary} {
		if path == "" {
			return fmt.Errorf("%w: missing %s", ErrOptions, name)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrOptions, name, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s %s is a directory", ErrOptions, name, path)
		}
	}

	if info, err := os.Stat(o.Source); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: source %q is not a directory", ErrOptions, o.Source)
	}
	if o.Output == "" {
		return fmt.Errorf("%w: missing output", ErrOptions)
	}
	return nil
}
