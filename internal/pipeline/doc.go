// Package pipeline assembles the playground image filesystem.
//
// Assembly is a linear sequence of steps: install the toolchain, install
// the launchers, persist the environment configuration, generate the
// scaffold, and pre-warm its build cache. Steps run strictly in order and
// the first failure aborts the run, naming the step that failed. Steps
// declare the steps they depend on, so a pipeline assembled in the wrong
// order fails before it touches anything that depends on missing state.
//
// All paths are resolved under a root prefix. Inside the build container
// the root is "/"; tests assemble into a temporary directory.
//
//	p := pipeline.Standard()
//	err := p.Run(ctx, &pipeline.Context{
//	    Config: cfg,
//	    Source: "/tmp/playground-artifacts",
//	})
package pipeline
