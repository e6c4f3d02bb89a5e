package cli

import (
	"context"
	"fmt"

	"github.com/cruciblehq/playground/internal/scaffold"
)

// Represents the 'playground scaffold' command.
type ScaffoldCmd struct {
	Dir     string `arg:"" help:"Target directory." type:"path"`
	Name    string `help:"Package name." default:"playground"`
	Edition string `help:"Rust edition." default:"2018"`
}

// Executes the scaffold command. Prints the files that were written.
func (c *ScaffoldCmd) Run(ctx context.Context) error {
	p := scaffold.Default()
	p.Name = c.Name
	p.Edition = c.Edition

	res, err := scaffold.Generate(c.Dir, p)
	if err != nil {
		return err
	}
	for _, path := range res.Written {
		fmt.Println(path)
	}
	return nil
}
