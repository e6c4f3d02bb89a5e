package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/cruciblehq/playground/internal/paths"
	"github.com/cruciblehq/playground/internal/prewarm"
	"github.com/cruciblehq/playground/internal/scaffold"
	"github.com/cruciblehq/playground/internal/toolchain"
	"github.com/cruciblehq/playground/internal/wrapper"
)

// Step names.
const (
	StepToolchain   = "install toolchain"
	StepWrapper     = "install wrapper"
	StepEnvironment = "write environment"
	StepScaffold    = "generate scaffold"
	StepPrewarm     = "pre-warm cache"
)

// Installs the toolchain artifact set into the configured install root.
type InstallToolchain struct{}

func (InstallToolchain) Name() string { return StepToolchain }

func (InstallToolchain) Run(ctx context.Context, pc *Context) error {
	artifacts := pc.Artifacts
	if len(artifacts) == 0 {
		artifacts = toolchain.DefaultArtifacts
	}

	inst := toolchain.Installer{
		Source:    pc.Source,
		Root:      pc.Path(pc.Config.InstallRoot()),
		Artifacts: artifacts,
	}
	receipt, err := inst.Install(ctx)
	if err != nil {
		return err
	}
	pc.Receipt = receipt
	return nil
}

// Installs the playground binary and the launchers pointing at it.
type InstallWrapper struct{}

func (InstallWrapper) Name() string { return StepWrapper }

func (InstallWrapper) Run(ctx context.Context, pc *Context) error {
	binDir := pc.Path(pc.Config.BinDir())
	binary := filepath.Join(binDir, filepath.Base(paths.Binary))

	if pc.Binary != "" {
		if err := copyExecutable(pc.Binary, binary); err != nil {
			return fmt.Errorf("%w: %w", wrapper.ErrInstall, err)
		}
		slog.Debug("installed playground binary", "path", binary)
	}

	installed, err := wrapper.Install(binDir, filepath.Base(binary))
	if err != nil {
		return err
	}

	for _, path := range installed {
		if err := wrapper.CheckRouting(pc.Config.WithWrapper(path)); err != nil {
			return err
		}
	}
	slog.Info("installed launchers", "dir", binDir, "count", len(installed))
	return nil
}

// Persists the configuration as the image's environment file.
type WriteEnvironment struct{}

func (WriteEnvironment) Name() string { return StepEnvironment }

func (WriteEnvironment) Run(ctx context.Context, pc *Context) error {
	path := pc.Path(paths.EnvFile)
	if err := pc.Config.Save(path); err != nil {
		return err
	}
	slog.Info("wrote environment", "path", path, "wrapper", pc.Config.Wrapper())
	return nil
}

// Generates the default scaffold in the configured scaffold directory.
type GenerateScaffold struct{}

func (GenerateScaffold) Name() string { return StepScaffold }

func (GenerateScaffold) Run(ctx context.Context, pc *Context) error {
	dir := pc.Path(pc.Config.ScaffoldDir())
	res, err := scaffold.Generate(dir, scaffold.Default())
	if err != nil {
		return err
	}
	slog.Info("generated scaffold", "dir", dir, "written", len(res.Written))
	return nil
}

// Builds the scaffold through the wrapper and strips its sources.
//
// Pre-warm builds route through the installed wrapper, so the toolchain,
// the launchers and the environment must be in place first. Under a root
// prefix the build environment points at the tools installed below it.
type Prewarm struct{}

func (Prewarm) Name() string { return StepPrewarm }

func (Prewarm) Run(ctx context.Context, pc *Context) error {
	if err := pc.Require(StepToolchain, StepWrapper, StepEnvironment, StepScaffold); err != nil {
		return err
	}

	cfg := pc.Config.Rooted(pc.Root)
	if err := wrapper.CheckRouting(cfg); err != nil {
		return err
	}

	builder := pc.Builder
	if builder == nil {
		builder = &prewarm.CargoBuilder{Env: cfg.Overlay(pc.Environ)}
	}

	report, err := prewarm.Run(ctx, prewarm.Options{
		Dir:     cfg.ScaffoldDir(),
		Builder: builder,
	})
	if err != nil {
		return err
	}
	pc.Report = report

	slog.Info("pre-warm finished",
		"cache", humanize.Bytes(uint64(report.Cache.Size)),
		"files", report.Cache.Files,
	)
	return nil
}

// Copies src to dst with executable permissions, replacing dst atomically.
func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), paths.DefaultDirMode); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(paths.DefaultExecMode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
