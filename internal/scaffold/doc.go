// Package scaffold generates the playground project.
//
// A [Project] is a typed model of the two files the playground needs: the
// Cargo manifest and the crate entry point. [Default] returns the model used
// in the image, which declares the contracts crate and replaces the usual
// hello-world print with a trivially true assertion so that a first build
// verifies cleanly. [Generate] renders the model and writes only the files
// whose content changed, so regenerating is safe.
//
// After dependencies are pre-warmed, [Strip] removes the Rust sources and
// leaves the manifest for the user to build on.
package scaffold
