package scaffold

import (
	"fmt"
	"regexp"
	"strings"
)

const (

	// Manifest file name.
	ManifestFile = "Cargo.toml"

	// Directory holding the crate sources.
	SourceDir = "src"

	// Entry point file name, relative to SourceDir.
	EntryFile = "main.rs"
)

var (
	packageName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	crateIdent  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// A dependency entry of the manifest.
type Dependency struct {
	Name    string // Package name, e.g. "prusti-contracts".
	Version string // Version requirement. Optional when Path is set.
	Path    string // Local path dependency. Optional.
}

// Typed model of the scaffold.
type Project struct {
	Name         string       // Package name.
	Version      string       // Package version.
	Edition      string       // Rust edition.
	Dependencies []Dependency // Manifest dependencies.
	ExternCrates []string     // Crates declared at the top of the entry file.
	Statements   []string     // Body of main.
}

// Returns the playground scaffold: a binary crate declaring the contracts
// crate, whose main only asserts true.
func Default() Project {
	return Project{
		Name:         "playground",
		Version:      "0.1.0",
		Edition:      "2018",
		ExternCrates: []string{"prusti_contracts"},
		Statements:   []string{"assert!(true);"},
	}
}

// Checks that the project renders to a valid crate.
func (p Project) Validate() error {
	if !packageName.MatchString(p.Name) {
		return fmt.Errorf("%w: package name %q", ErrInvalidProject, p.Name)
	}
	if p.Version == "" {
		return fmt.Errorf("%w: empty version", ErrInvalidProject)
	}
	if p.Edition == "" {
		return fmt.Errorf("%w: empty edition", ErrInvalidProject)
	}
	for _, c := range p.ExternCrates {
		if !crateIdent.MatchString(c) {
			return fmt.Errorf("%w: extern crate %q", ErrInvalidProject, c)
		}
	}
	for _, d := range p.Dependencies {
		if !packageName.MatchString(d.Name) {
			return fmt.Errorf("%w: dependency name %q", ErrInvalidProject, d.Name)
		}
		if d.Version == "" && d.Path == "" {
			return fmt.Errorf("%w: dependency %q needs a version or a path", ErrInvalidProject, d.Name)
		}
	}
	if len(p.Statements) == 0 {
		return fmt.Errorf("%w: main has no statements", ErrInvalidProject)
	}
	for _, s := range p.Statements {
		if strings.TrimSpace(s) == "" || strings.ContainsRune(s, '\n') {
			return fmt.Errorf("%w: statement %q", ErrInvalidProject, s)
		}
	}
	return nil
}
