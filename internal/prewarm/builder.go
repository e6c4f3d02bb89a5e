package prewarm

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

const defaultCargo = "cargo"

// Builds the scaffold in one profile.
type Builder interface {
	Build(ctx context.Context, dir string, profile Profile) error
}

// Builds with Cargo.
type CargoBuilder struct {
	Cargo  string    // Cargo executable. Defaults to "cargo" on PATH.
	Env    []string  // Complete build environment, including routing variables.
	Stdout io.Writer // Defaults to os.Stderr so build output stays off stdout.
	Stderr io.Writer // Defaults to os.Stderr.
}

// Runs cargo build for the profile in dir.
func (b *CargoBuilder) Build(ctx context.Context, dir string, profile Profile) error {
	cargo := b.Cargo
	if cargo == "" {
		cargo = defaultCargo
	}

	cmd := exec.CommandContext(ctx, cargo, profile.Args()...)
	cmd.Dir = dir
	cmd.Env = b.Env
	cmd.Stdout = b.Stdout
	cmd.Stderr = b.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stderr
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", cargo, profile, err)
	}
	return nil
}
