package wrapper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cruciblehq/playground/internal/settings"
)

const (

	// Single-file launcher; also the RUSTC_WRAPPER target.
	SingleFile = "prusti-rustc"

	// Manifest-driven launcher, usable as "cargo prusti".
	Manifest = "cargo-prusti"

	// Compiler used when the single-file launcher is given a source file.
	defaultCompiler = "rustc"

	// Build tool driven by the manifest launcher.
	defaultCargo = "cargo"

	// Cargo subcommand run when the manifest launcher gets no arguments.
	defaultCargoCommand = "build"
)

// Returns the launcher names in installation order.
func Launchers() []string {
	return []string{SingleFile, Manifest}
}

// Reports whether name (typically filepath.Base(os.Args[0])) is a launcher.
func IsLauncher(name string) bool {
	return name == SingleFile || name == Manifest
}

// Runs launcher invocations.
type Launcher struct {
	Config  settings.Config
	Environ []string    // Environment of the launching process.
	Dir     string      // Working directory.
	Cargo   string      // Build tool executable. Defaults to "cargo".
	Policy  Interceptor // Defaults to a [Policy] over Config.
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// Runs the named launcher with its arguments and returns the exit code.
func (l *Launcher) Run(ctx context.Context, name string, args []string) (int, error) {
	switch name {
	case SingleFile:
		return l.runSingleFile(ctx, args)
	case Manifest:
		return l.runManifest(ctx, args)
	default:
		return 1, fmt.Errorf("%w: unknown launcher %q", ErrUsage, name)
	}
}

// Handles both "prusti-rustc rustc ARGS" (as called by Cargo through
// RUSTC_WRAPPER) and "prusti-rustc FILE.rs ARGS" (direct use). Running the
// launcher asks for verification, so routing is enabled even when
// RUSTC_WRAPPER is unset.
func (l *Launcher) runSingleFile(ctx context.Context, args []string) (int, error) {
	inv := Invocation{
		Compiler: defaultCompiler,
		Args:     args,
		Env:      l.Environ,
		Dir:      l.Dir,
	}
	if len(args) > 0 && isCompiler(args[0]) {
		inv.Compiler = args[0]
		inv.Args = args[1:]
	}

	runner := &Runner{
		Interceptor: l.interceptor(l.routed()),
		Stdin:       l.Stdin,
		Stdout:      l.Stdout,
		Stderr:      l.Stderr,
	}
	return runner.Run(ctx, inv)
}

// Runs Cargo with routing enabled. Accepts the "cargo prusti ARGS" form,
// where Cargo passes the subcommand name as the first argument.
func (l *Launcher) runManifest(ctx context.Context, args []string) (int, error) {
	if len(args) > 0 && args[0] == "prusti" {
		args = args[1:]
	}
	if len(args) == 0 {
		args = []string{defaultCargoCommand}
	}

	cfg := l.routed()
	if err := CheckRouting(cfg); err != nil {
		return 1, err
	}

	cargo := l.Cargo
	if cargo == "" {
		cargo = defaultCargo
	}

	cmd := exec.CommandContext(ctx, resolve(cargo, Invocation{Env: l.Environ}), args...)
	cmd.Dir = l.Dir
	cmd.Env = cfg.Overlay(l.Environ)
	cmd.Stdin = readerOr(l.Stdin, os.Stdin)
	cmd.Stdout = writerOr(l.Stdout, os.Stdout)
	cmd.Stderr = writerOr(l.Stderr, os.Stderr)

	slog.Debug("running cargo", "args", args, "wrapper", cfg.Wrapper())

	code, err := exitCode(cmd.Run(), ErrCompiler, cargo)
	if err != nil {
		return 1, err
	}
	return code, nil
}

func (l *Launcher) interceptor(cfg settings.Config) Interceptor {
	if l.Policy != nil {
		return l.Policy
	}
	return &Policy{Config: cfg, Stdout: l.Stdout, Stderr: l.Stderr}
}

// Returns the configuration with the installed single-file launcher as the
// wrapper when none is configured.
func (l *Launcher) routed() settings.Config {
	if l.Config.Intercepting() {
		return l.Config
	}
	return l.Config.WithWrapper(filepath.Join(l.Config.BinDir(), SingleFile))
}

// Whether arg names a rustc executable rather than a source file or flag.
func isCompiler(arg string) bool {
	if strings.HasPrefix(arg, "-") || isSourceFile(arg) {
		return false
	}
	base := strings.TrimSuffix(filepath.Base(arg), ".exe")
	return base == "rustc" || strings.HasPrefix(base, "rustc-") || strings.HasSuffix(base, "-rustc")
}
