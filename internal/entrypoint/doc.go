// Package entrypoint bootstraps a playground session when the container
// starts.
//
// Bootstrap merges the persisted environment under the launch environment,
// enters the scaffold directory, switches to the session user when running
// as root, and decides what to run: the command given at launch, or an
// interactive login shell. Handoff then replaces the entrypoint process with
// that command, so the session's exit code is the container's.
//
// Entering the scaffold directory is the only step that fails a bootstrap.
// A broken wrapper is reported but does not stop the session, because every
// build routed through it fails on its own.
package entrypoint
