package cli

import (
	"context"
	"os"

	"github.com/cruciblehq/playground/internal/pipeline"
	"github.com/cruciblehq/playground/internal/settings"
)

// Represents the 'playground assemble' command.
type AssembleCmd struct {
	Source    string   `help:"Directory holding the toolchain artifacts." default:"${source}" type:"existingdir"`
	Root      string   `help:"Filesystem root to assemble into." default:"/" type:"path"`
	Binary    string   `help:"Playground binary to install. Omit when it is already in place." type:"existingfile"`
	Wrapper   string   `help:"Compiler wrapper baked into the image. Empty disables interception." default:"${wrapper}" env:"RUSTC_WRAPPER"`
	Artifacts []string `help:"Artifact names to install (default: the full toolchain)." sep:","`
}

// Executes the assemble command.
//
// The configuration comes from the process environment, with the wrapper
// taken from --wrapper. The pipeline installs the toolchain and launchers,
// writes the environment file, generates the scaffold and pre-warms it.
func (c *AssembleCmd) Run(ctx context.Context) error {
	cfg, err := settings.FromEnviron(os.Environ())
	if err != nil {
		return err
	}
	cfg = cfg.WithWrapper(c.Wrapper)

	return pipeline.Standard().Run(ctx, &pipeline.Context{
		Config:    cfg,
		Root:      c.Root,
		Source:    c.Source,
		Artifacts: c.Artifacts,
		Binary:    c.Binary,
		Environ:   os.Environ(),
	})
}
