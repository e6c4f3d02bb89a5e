// Package prewarm populates the build cache of the playground scaffold.
//
// A pre-warm runs a debug build and a release build of the scaffold so the
// resulting image carries a populated target directory, then deletes the
// scaffold sources. Later builds inside the container only pay for the
// user's own crate.
//
// The target directory is guarded by a file lock for the duration of the
// run. Each pass is bracketed by a fingerprint of the target tree, which the
// report uses to tell fresh builds from cache hits.
//
//	report, err := prewarm.Run(ctx, prewarm.Options{
//	    Dir:     "/playground",
//	    Builder: &prewarm.CargoBuilder{Env: cfg.Overlay(os.Environ())},
//	})
package prewarm
