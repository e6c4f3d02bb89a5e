package wrapper

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Carries out interception verdicts.
type Runner struct {
	Interceptor Interceptor
	Stdin       io.Reader // Defaults to os.Stdin.
	Stdout      io.Writer // Defaults to os.Stdout.
	Stderr      io.Writer // Defaults to os.Stderr.
}

// Intercepts inv and, unless halted, runs the original compiler invocation.
//
// Returns the exit code the wrapper process should exit with: the halt code,
// or the compiler's own exit code.
func (r *Runner) Run(ctx context.Context, inv Invocation) (int, error) {
	verdict, err := r.Interceptor.Intercept(ctx, inv)
	if err != nil {
		return 1, err
	}

	slog.Debug("intercepted", "compiler", inv.Compiler, "decision", verdict.Decision, "reason", verdict.Reason)

	if verdict.Decision == Halt {
		return verdict.ExitCode, nil
	}
	if verdict.Decision == Delegate && verdict.Args != nil {
		inv.Args = verdict.Args
	}
	return r.compile(ctx, inv)
}

func (r *Runner) compile(ctx context.Context, inv Invocation) (int, error) {
	cmd := exec.CommandContext(ctx, resolve(inv.Compiler, inv), inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.Stdin = readerOr(r.Stdin, os.Stdin)
	cmd.Stdout = writerOr(r.Stdout, os.Stdout)
	cmd.Stderr = writerOr(r.Stderr, os.Stderr)

	code, err := exitCode(cmd.Run(), ErrCompiler, inv.Compiler)
	if err != nil {
		return 1, err
	}
	return code, nil
}

func readerOr(r, def io.Reader) io.Reader {
	if r == nil {
		return def
	}
	return r
}

// Resolves a bare executable name against the invocation's PATH rather than
// the wrapper's own. Names containing a separator, and names not found, are
// returned unchanged.
func resolve(name string, inv Invocation) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	search, ok := inv.Getenv("PATH")
	if !ok {
		return name
	}
	for _, dir := range filepath.SplitList(search) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Mode().Perm()&0111 != 0 {
			return candidate
		}
	}
	return name
}
