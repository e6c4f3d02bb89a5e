package wrapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/cruciblehq/playground/internal/settings"
	"github.com/cruciblehq/playground/internal/toolchain"
)

// Default [Interceptor]: verify first, then apply the full-compilation flag.
type Policy struct {
	Config   settings.Config // Routing and continuation settings.
	Verifier string          // Verifier executable. Defaults to prusti-driver in the install root.
	Stdout   io.Writer       // Verifier output. Defaults to os.Stdout.
	Stderr   io.Writer       // Verifier diagnostics. Defaults to os.Stderr.
}

// Intercepts a compiler invocation.
//
// Disabled routing, compiler probes and Cargo dependencies proceed without
// verification. When routing is configured but the wrapper is unreachable an
// [ErrWrapperUnreachable] error is returned instead of falling back to the
// unwrapped compiler. Otherwise the verifier runs with the original
// arguments plus the contracts crate from the install root; a failure halts
// with the verifier's exit code and a success either delegates to the
// compiler with the same arguments or halts cleanly, depending on the
// full-compilation flag.
func (p *Policy) Intercept(ctx context.Context, inv Invocation) (Verdict, error) {
	if !p.Config.Intercepting() {
		return Verdict{Decision: Proceed, Reason: "routing disabled"}, nil
	}
	if err := CheckRouting(p.Config); err != nil {
		return Verdict{}, err
	}
	if inv.IsProbe() {
		return Verdict{Decision: Proceed, Reason: "compiler probe"}, nil
	}
	if inv.IsDependency() {
		return Verdict{Decision: Proceed, Reason: "dependency crate"}, nil
	}

	inv.Args = p.linkContracts(inv.Args)

	code, err := p.verify(ctx, inv)
	if err != nil {
		return Verdict{}, err
	}

	switch {
	case code != 0:
		return Verdict{Decision: Halt, ExitCode: code, Reason: "verification failed"}, nil
	case p.Config.FullCompilation():
		return Verdict{Decision: Delegate, Reason: "verification succeeded", Args: inv.Args}, nil
	default:
		return Verdict{Decision: Halt, Reason: "verification succeeded, full compilation disabled"}, nil
	}
}

// Runs the verifier and returns its exit code.
//
// The verifier is told not to compile: continuation is decided here, and
// passing the flag through would compile twice on success.
func (p *Policy) verify(ctx context.Context, inv Invocation) (int, error) {
	verifier := p.verifier()

	cmd := exec.CommandContext(ctx, verifier, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = p.Config.WithFullCompilation(false).Overlay(inv.Env)
	cmd.Stdout = writerOr(p.Stdout, os.Stdout)
	cmd.Stderr = writerOr(p.Stderr, os.Stderr)

	slog.Debug("running verifier", "verifier", verifier, "args", inv.Args)

	return exitCode(cmd.Run(), ErrVerifier, verifier)
}

// Appends the search path and extern entry that resolve
// "extern crate prusti_contracts" to the library in the install root.
// Arguments that already name the crate are returned unchanged.
func (p *Policy) linkContracts(args []string) []string {
	prefix := toolchain.ContractsCrate + "="
	for _, a := range args {
		if strings.HasPrefix(strings.TrimPrefix(a, "--extern="), prefix) {
			return args
		}
	}

	root := p.Config.InstallRoot()
	return append(slices.Clip(args),
		"-L", "dependency="+root,
		"--extern", prefix+filepath.Join(root, toolchain.ContractsLibrary),
	)
}

func (p *Policy) verifier() string {
	if p.Verifier != "" {
		return p.Verifier
	}
	return filepath.Join(p.Config.InstallRoot(), toolchain.VerifierName)
}

// Converts the result of exec.Cmd.Run into an exit code. Errors other than
// a non-zero exit are wrapped in sentinel.
func exitCode(err error, sentinel error, name string) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %s: %w", sentinel, name, err)
}

func writerOr(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
