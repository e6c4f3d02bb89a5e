package wrapper

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// What to do with an intercepted compiler invocation.
type Decision int

const (

	// Run the original invocation untouched; no verification took place.
	Proceed Decision = iota

	// Verification succeeded; continue to the original invocation.
	Delegate

	// Stop here and exit with the verdict's exit code.
	Halt
)

// Returns the decision name.
func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Delegate:
		return "delegate"
	case Halt:
		return "halt"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Outcome of intercepting an invocation.
type Verdict struct {
	Decision Decision
	ExitCode int      // Meaningful for Halt only.
	Reason   string   // Short explanation, for logs.
	Args     []string // Compiler arguments for Delegate. Nil keeps the invocation's.
}

// A compiler invocation as received by the wrapper.
type Invocation struct {
	Compiler string   // Compiler executable, e.g. "rustc" or an absolute path.
	Args     []string // Arguments, without the compiler itself.
	Env      []string // Environment of the invoking process.
	Dir      string   // Working directory. Empty uses the current one.
}

// Returns the value of an environment variable of the invocation.
func (inv Invocation) Getenv(key string) (string, bool) {
	for i := len(inv.Env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(inv.Env[i], "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// Whether the invocation only queries the compiler (version, target info,
// or a probe compiled from stdin) rather than compiling a crate.
func (inv Invocation) IsProbe() bool {
	if len(inv.Args) == 0 {
		return true
	}
	for _, a := range inv.Args {
		switch {
		case a == "-vV", a == "-V", a == "--version", a == "-":
			return true
		case a == "--print", strings.HasPrefix(a, "--print="):
			return true
		}
	}
	return !slices.ContainsFunc(inv.Args, isSourceFile)
}

// Whether Cargo is compiling a dependency rather than a workspace member.
func (inv Invocation) IsDependency() bool {
	if _, cargo := inv.Getenv("CARGO_PKG_NAME"); !cargo {
		return false
	}
	_, primary := inv.Getenv("CARGO_PRIMARY_PACKAGE")
	return !primary
}

// Decides what happens to a compiler invocation.
type Interceptor interface {
	Intercept(ctx context.Context, inv Invocation) (Verdict, error)
}

// Function adapter for [Interceptor].
type InterceptorFunc func(ctx context.Context, inv Invocation) (Verdict, error)

// Calls f.
func (f InterceptorFunc) Intercept(ctx context.Context, inv Invocation) (Verdict, error) {
	return f(ctx, inv)
}

func isSourceFile(arg string) bool {
	return !strings.HasPrefix(arg, "-") && filepath.Ext(arg) == ".rs"
}
