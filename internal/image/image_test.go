package image

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cruciblehq/playground/internal/paths"
	"github.com/cruciblehq/playground/internal/settings"
)

type entry struct {
	Name string
	Mode int64
	Link string
	Body string
}

func readTar(t *testing.T, r io.Reader) []entry {
	t.Helper()
	var entries []entry
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return entries
		}
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(tr)
		entries = append(entries, entry{hdr.Name, hdr.Mode, hdr.Linkname, string(body)})
	}
}

func chmod(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	if err := os.Chmod(path, mode); err != nil {
		t.Fatal(err)
	}
}

func TestWriteTree(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "release")
	os.MkdirAll(filepath.Join(dir, "lib"), 0755)
	os.WriteFile(filepath.Join(dir, "prusti-driver"), []byte("driver"), 0755)
	os.WriteFile(filepath.Join(dir, "lib", "libprusti_contracts.rlib"), []byte("rlib"), 0644)
	os.Symlink("prusti-driver", filepath.Join(dir, "driver"))
	chmod(t, dir, 0755)
	chmod(t, filepath.Join(dir, "lib"), 0755)
	chmod(t, filepath.Join(dir, "prusti-driver"), 0755)
	chmod(t, filepath.Join(dir, "lib", "libprusti_contracts.rlib"), 0644)

	stream := tarStream(func(tw *tar.Writer) error {
		return writeTree(tw, dir, "playground-artifacts")
	})
	defer stream.Close()

	want := []entry{
		{Name: "playground-artifacts/", Mode: 0755},
		{Name: "playground-artifacts/driver", Mode: 0777, Link: "prusti-driver"},
		{Name: "playground-artifacts/lib/", Mode: 0755},
		{Name: "playground-artifacts/lib/libprusti_contracts.rlib", Mode: 0644, Body: "rlib"},
		{Name: "playground-artifacts/prusti-driver", Mode: 0755, Body: "driver"},
	}
	if diff := cmp.Diff(want, readTar(t, stream)); diff != "" {
		t.Fatalf("archive mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFileSetsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playground-linux-amd64")
	os.WriteFile(path, []byte("elf"), 0600)
	chmod(t, path, 0600)

	stream := tarStream(func(tw *tar.Writer) error {
		return writeFile(tw, path, "playground", 0755)
	})
	defer stream.Close()

	want := []entry{{Name: "playground", Mode: 0755, Body: "elf"}}
	if diff := cmp.Diff(want, readTar(t, stream)); diff != "" {
		t.Fatalf("archive mismatch (-want +got):\n%s", diff)
	}
}

func TestTarStreamPropagatesErrors(t *testing.T) {
	stream := tarStream(func(tw *tar.Writer) error {
		return writeFile(tw, filepath.Join(t.TempDir(), "missing"), "x", 0644)
	})
	defer stream.Close()

	if _, err := io.ReadAll(stream); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestAssembleArgs(t *testing.T) {
	got := assembleArgs(Options{Config: settings.Default()})
	want := []string{paths.Binary, "assemble", "--source", paths.StagingDir, "--wrapper=" + paths.BinDir + "/prusti-rustc"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	got = assembleArgs(Options{Config: settings.Default(), Debug: true})
	if got[1] != "--debug" {
		t.Fatalf("debug args = %v", got)
	}
}

func TestAssembleArgsDisabledWrapper(t *testing.T) {
	cfg := settings.Default().WithWrapper("")

	got := assembleArgs(Options{Config: cfg})
	if last := got[len(got)-1]; last != "--wrapper=" {
		t.Fatalf("wrapper flag = %q, want an explicit empty value", last)
	}
	for _, kv := range cfg.Environ() {
		if strings.HasPrefix(kv, settings.VarWrapper+"=") {
			t.Fatalf("disabled wrapper still in environment: %q", kv)
		}
	}
}

func TestImageConfig(t *testing.T) {
	cfg, err := settings.New(settings.Options{
		Wrapper:         "/usr/local/bin/prusti-rustc",
		FullCompilation: true,
		User:            "playground",
	})
	if err != nil {
		t.Fatal(err)
	}

	ic := imageConfig(cfg)
	if diff := cmp.Diff([]string{paths.Binary, "entrypoint"}, ic.Entrypoint); diff != "" {
		t.Fatalf("entrypoint mismatch (-want +got):\n%s", diff)
	}
	if ic.WorkingDir != paths.ScaffoldDir || ic.User != "playground" {
		t.Fatalf("workdir %q user %q", ic.WorkingDir, ic.User)
	}
	if diff := cmp.Diff(cfg.Environ(), ic.Env); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestContainerID(t *testing.T) {
	if got := containerID("linux/arm64"); got != "playground-build-linux-arm64" {
		t.Fatalf("containerID = %q", got)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.tar")
	binary := filepath.Join(dir, "playground")
	os.WriteFile(base, nil, 0644)
	os.WriteFile(binary, nil, 0755)

	valid := Options{Base: base, Binary: binary, Source: dir, Output: filepath.Join(dir, "out.tar")}
	if err := valid.validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"missing base", func(o *Options) { o.Base = "" }},
		{"base not found", func(o *Options) { o.Base = filepath.Join(dir, "nope.tar") }},
		{"binary is dir", func(o *Options) { o.Binary = dir }},
		{"source is file", func(o *Options) { o.Source = base }},
		{"missing output", func(o *Options) { o.Output = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			if err := o.validate(); !errors.Is(err, ErrOptions) {
				t.Fatalf("err = %v, want ErrOptions", err)
			}
		})
	}
}
