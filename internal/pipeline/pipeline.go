package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cruciblehq/playground/internal/paths"
	"github.com/cruciblehq/playground/internal/prewarm"
	"github.com/cruciblehq/playground/internal/settings"
	"github.com/cruciblehq/playground/internal/toolchain"
)

// One assembly step.
type Step interface {
	Name() string
	Run(ctx context.Context, pc *Context) error
}

// State shared by the steps of one run.
type Context struct {
	Config    settings.Config // Configuration baked into the image.
	Root      string          // Filesystem root prefix. Empty means "/".
	Source    string          // Directory holding the toolchain artifacts.
	Artifacts []string        // Artifact names. Defaults to toolchain.DefaultArtifacts.
	Binary    string          // Playground binary to install. Empty if already in place.
	Environ   []string        // Base environment for pre-warm builds.
	Builder   prewarm.Builder // Pre-warm builder. Defaults to Cargo with the routed environment.

	Receipt *toolchain.Receipt // Set by the toolchain step.
	Report  *prewarm.Report    // Set by the pre-warm step.

	completed []string
}

// Resolves an image path under the root prefix.
func (pc *Context) Path(path string) string {
	return paths.Under(pc.Root, path)
}

// Fails with ErrOrder unless every named step has completed.
func (pc *Context) Require(names ...string) error {
	for _, name := range names {
		if !slices.Contains(pc.completed, name) {
			return fmt.Errorf("%w: requires %q", ErrOrder, name)
		}
	}
	return nil
}

// Returns the names of the completed steps in completion order.
func (pc *Context) Completed() []string {
	return slices.Clone(pc.completed)
}

// An ordered list of steps.
type Pipeline struct {
	Steps []Step
}

// Runs the steps in order, stopping at the first failure.
//
// The returned error wraps ErrStep and the step's own error, and names the
// step by its 1-based position and name.
func (p *Pipeline) Run(ctx context.Context, pc *Context) error {
	start := time.Now()

	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: step %d (%s): %w", ErrStep, i+1, step.Name(), err)
		}

		slog.Info(fmt.Sprintf("step %d/%d: %s", i+1, len(p.Steps), step.Name()))
		stepStart := time.Now()

		if err := step.Run(ctx, pc); err != nil {
			return fmt.Errorf("%w: step %d (%s): %w", ErrStep, i+1, step.Name(), err)
		}
		pc.completed = append(pc.completed, step.Name())

		slog.Debug("step complete", "step", step.Name(), "took", time.Since(stepStart).Round(time.Millisecond))
	}

	slog.Info("image filesystem assembled", "root", rootLabel(pc.Root), "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// Returns the standard assembly pipeline.
func Standard() *Pipeline {
	return &Pipeline{Steps: []Step{
		InstallToolchain{},
		InstallWrapper{},
		WriteEnvironment{},
		GenerateScaffold{},
		Prewarm{},
	}}
}

func rootLabel(root string) string {
	if root == "" {
		return "/"
	}
	return root
}
