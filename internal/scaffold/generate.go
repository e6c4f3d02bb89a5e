package scaffold

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml"

	"github.com/cruciblehq/playground/internal/paths"
)

// Files written by Generate.
type Result struct {
	Manifest string   // Path to the manifest.
	Entry    string   // Path to the entry source file.
	Written  []string // Files whose content changed.
}

// Renders the project into dir, creating it if needed.
//
// Files already holding the rendered content are left untouched, so running
// Generate twice writes nothing the second time.
func Generate(dir string, p Project) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	manifest, err := p.RenderManifest()
	if err != nil {
		return nil, err
	}
	entry, err := p.RenderEntry()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Manifest: filepath.Join(dir, ManifestFile),
		Entry:    filepath.Join(dir, SourceDir, EntryFile),
	}

	for path, data := range map[string][]byte{res.Manifest: manifest, res.Entry: entry} {
		changed, err := writeIfChanged(path, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGenerate, err)
		}
		if changed {
			res.Written = append(res.Written, path)
		}
	}
	slices.Sort(res.Written)

	slog.Debug("scaffold generated", "dir", dir, "written", len(res.Written))
	return res, nil
}

// Reads the manifest in dir and returns the project it describes. Only the
// manifest is consulted; ExternCrates and Statements are left empty.
func LoadManifest(dir string) (Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Project{}, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Project{}, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	if m.Package.Name == "" {
		return Project{}, fmt.Errorf("%w: missing package name", ErrManifest)
	}

	p := Project{
		Name:    m.Package.Name,
		Version: m.Package.Version,
		Edition: m.Package.Edition,
	}
	for _, name := range sortedKeys(m.Dependencies) {
		d := Dependency{Name: name}
		switch v := m.Dependencies[name].(type) {
		case string:
			d.Version = v
		case map[string]interface{}:
			d.Path, _ = v["path"].(string)
			d.Version, _ = v["version"].(string)
		}
		p.Dependencies = append(p.Dependencies, d)
	}
	return p, nil
}

// Lists the Rust source files under dir's source directory.
func Sources(dir string) ([]string, error) {
	var sources []string
	root := filepath.Join(dir, SourceDir)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".rs" {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// Removes every Rust source file, keeping the manifest and the source
// directory itself. Returns the removed paths.
func Strip(dir string) ([]string, error) {
	sources, err := Sources(dir)
	if err != nil {
		return nil, err
	}
	for _, path := range sources {
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}
	slog.Debug("scaffold sources stripped", "dir", dir, "removed", len(sources))
	return sources, nil
}

// Writes data to path through a temporary file unless path already holds it.
func writeIfChanged(path string, data []byte) (bool, error) {
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, data) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return false, err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, paths.DefaultFileMode); err != nil {
		return false, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return false, err
	}
	return true, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
