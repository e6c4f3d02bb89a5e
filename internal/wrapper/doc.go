// Package wrapper routes compiler invocations through the verifier.
//
// Two launchers are installed on the executable search path as symlinks to
// the playground binary: prusti-rustc for single-file invocations (it is also
// what RUSTC_WRAPPER points at, so Cargo calls it once per crate) and
// cargo-prusti for manifest-driven builds. Both end up in a [Runner], which
// asks an [Interceptor] for a [Verdict] and carries it out.
//
// The default interceptor is [Policy]. It passes invocations through
// untouched when routing is disabled, fails when routing is configured but
// broken, and otherwise runs the verifier and decides from its result and the
// full-compilation flag whether to continue to the real compiler.
//
// Output of the verifier and the compiler is streamed unmodified and their
// exit codes are returned as is.
//
//	runner := &wrapper.Runner{Interceptor: &wrapper.Policy{Config: cfg}}
//	code, err := runner.Run(ctx, wrapper.Invocation{
//	    Compiler: "rustc",
//	    Args:     []string{"src/main.rs"},
//	    Env:      os.Environ(),
//	})
package wrapper
