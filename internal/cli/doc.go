// Parses flags and runs the playground commands.
//
// Global flags:
//
//	-q, --quiet     Only report warnings and errors.
//	-d, --debug     Enable debug output.
//
// Operator commands (assemble, image, scaffold, version) log at info level
// unless told otherwise. Commands that sit in the path of a user's build
// (entrypoint, wrap, check and the launchers) follow PRUSTI_LOG_LEVEL, so
// compiler output is not interleaved with orchestration noise.
//
// The binary is also invoked through its launcher names. [Launch] handles
// those invocations; they take no playground flags, since every argument
// belongs to the wrapped tool.
package cli
