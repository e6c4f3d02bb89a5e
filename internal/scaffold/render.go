package scaffold

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/pelletier/go-toml"
)

var entryTemplate = template.Must(template.New(EntryFile).Parse(heredoc.Doc(`
	{{- range .ExternCrates}}extern crate {{.}};
	{{end}}{{if .ExternCrates}}
	{{end}}fn main() {
	{{- range .Statements}}
	    {{.}}
	{{- end}}
	}
`)))

// Cargo manifest as written by Generate.
type manifest struct {
	Package      manifestPackage        `toml:"package"`
	Dependencies map[string]interface{} `toml:"dependencies"`
}

type manifestPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Edition string `toml:"edition"`
}

// Renders the Cargo manifest.
func (p Project) RenderManifest() ([]byte, error) {
	m := manifest{
		Package: manifestPackage{
			Name:    p.Name,
			Version: p.Version,
			Edition: p.Edition,
		},
		Dependencies: make(map[string]interface{}, len(p.Dependencies)),
	}

	for _, d := range p.Dependencies {
		if d.Path == "" {
			m.Dependencies[d.Name] = d.Version
			continue
		}
		entry := map[string]interface{}{"path": d.Path}
		if d.Version != "" {
			entry["version"] = d.Version
		}
		m.Dependencies[d.Name] = entry
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Order(toml.OrderPreserve).Encode(m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerate, err)
	}
	return buf.Bytes(), nil
}

// Renders the entry source file.
func (p Project) RenderEntry() ([]byte, error) {
	var buf bytes.Buffer
	if err := entryTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerate, err)
	}
	return buf.Bytes(), nil
}
