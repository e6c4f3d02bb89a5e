package entrypoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cruciblehq/playground/internal/settings"
)

type fixture struct {
	dir     string
	bin     string
	envFile string
	chdirs  []string
	execs   [][]string
	opts    Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		dir:     filepath.Join(root, "playground"),
		bin:     filepath.Join(root, "bin"),
		envFile: filepath.Join(root, "environment"),
	}
	os.MkdirAll(f.dir, 0755)
	os.MkdirAll(f.bin, 0755)
	writeExec(t, filepath.Join(f.bin, "cargo"))
	writeExec(t, filepath.Join(f.bin, "prusti-rustc"))

	cfg, err := settings.New(settings.Options{
		Wrapper:         filepath.Join(f.bin, "prusti-rustc"),
		FullCompilation: true,
		ScaffoldDir:     f.dir,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Save(f.envFile); err != nil {
		t.Fatal(err)
	}

	f.opts = Options{
		Environ: []string{"PATH=" + f.bin},
		EnvFile: f.envFile,
		chdir: func(dir string) error {
			f.chdirs = append(f.chdirs, dir)
			return nil
		},
		exec: func(path string, argv, env []string) error {
			f.execs = append(f.execs, append([]string{path}, argv...))
			return nil
		},
	}
	return f
}

func writeExec(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
}

func lookup(env []string, key string) string {
	v, _ := getenv(env, key)
	return v
}

func TestBootstrapRunsCommandInScaffold(t *testing.T) {
	f := newFixture(t)
	f.opts.Args = []string{"cargo", "build"}

	s, err := Bootstrap(context.Background(), f.opts)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if s.State() != Ready {
		t.Fatalf("state = %s, want ready", s.State())
	}
	if diff := cmp.Diff([]string{f.dir}, f.chdirs); diff != "" {
		t.Fatalf("chdir mismatch (-want +got):\n%s", diff)
	}
	if s.Path != filepath.Join(f.bin, "cargo") || s.Interactive {
		t.Fatalf("path = %q, interactive = %v", s.Path, s.Interactive)
	}
	if lookup(s.Env, settings.VarWrapper) != filepath.Join(f.bin, "prusti-rustc") {
		t.Fatalf("wrapper not in session env: %v", s.Env)
	}
	if lookup(s.Env, "PWD") != f.dir {
		t.Fatalf("PWD = %q", lookup(s.Env, "PWD"))
	}

	if err := s.Handoff(); err != nil {
		t.Fatal(err)
	}
	want := [][]string{{filepath.Join(f.bin, "cargo"), "cargo", "build"}}
	if diff := cmp.Diff(want, f.execs); diff != "" {
		t.Fatalf("exec mismatch (-want +got):\n%s", diff)
	}
}

func TestBootstrapLaunchEnvOverridesFile(t *testing.T) {
	f := newFixture(t)
	f.opts.Environ = append(f.opts.Environ, settings.VarFullCompilation+"=false")
	f.opts.Args = []string{"cargo"}

	s, err := Bootstrap(context.Background(), f.opts)
	if err != nil {
		t.Fatal(err)
	}
	if s.Config.FullCompilation() {
		t.Fatal("launch override ignored")
	}
	if lookup(s.Env, settings.VarFullCompilation) != "false" {
		t.Fatalf("session env = %v", s.Env)
	}
}

func TestBootstrapSplitsSingleCommandString(t *testing.T) {
	f := newFixture(t)
	f.opts.Args = []string{`cargo build --features "a b"`}

	s, err := Bootstrap(context.Background(), f.opts)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"cargo", "build", "--features", "a b"}
	if diff := cmp.Diff(want, s.Argv); diff != "" {
		t.Fatalf("argv mismatch (-want +got):\n%s", diff)
	}
}

func TestBootstrapRejectsUnbalancedQuotes(t *testing.T) {
	f := newFixture(t)
	f.opts.Args = []string{`cargo "build`}

	if _, err := Bootstrap(context.Background(), f.opts); !errors.Is(err, ErrBootstrap) {
		t.Fatalf("err = %v, want ErrBootstrap", err)
	}
}

func TestBootstrapStartsLoginShell(t *testing.T) {
	f := newFixture(t)
	sh := filepath.Join(f.bin, "zsh")
	writeExec(t, sh)
	f.opts.Environ = append(f.opts.Environ, "SHELL="+sh)

	s, err := Bootstrap(context.Background(), f.opts)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Interactive || s.Path != sh {
		t.Fatalf("path = %q, interactive = %v", s.Path, s.Interactive)
	}
	if diff := cmp.Diff([]string{"-zsh"}, s.Argv); diff != "" {
		t.Fatalf("argv mismatch (-want +got):\n%s", diff)
	}
}

func TestShellFallsBack(t *testing.T) {
	got := shell([]string{"SHELL=/nonexistent/shell"})
	if !slices.Contains(fallbackShells, got) {
		t.Fatalf("shell = %q, want one of %v", got, fallbackShells)
	}
}

func TestBootstrapFailsWhenDirectoryUnavailable(t *testing.T) {
	f := newFixture(t)
	f.opts.chdir = func(string) error { return os.ErrNotExist }

	_, err := Bootstrap(context.Background(), f.opts)
	if !errors.Is(err, ErrBootstrap) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrBootstrap wrapping ErrNotExist", err)
	}
}

func TestBootstrapToleratesBrokenRouting(t *testing.T) {
	f := newFixture(t)
	os.Remove(filepath.Join(f.bin, "prusti-rustc"))
	f.opts.Args = []string{"cargo"}

	s, err := Bootstrap(context.Background(), f.opts)
	if err != nil {
		t.Fatalf("broken routing failed the bootstrap: %v", err)
	}
	if s.Config.Wrapper() == "" {
		t.Fatal("wrapper dropped from the session")
	}
}

func TestBootstrapInvalidEnvironment(t *testing.T) {
	f := newFixture(t)
	f.opts.Environ = append(f.opts.Environ, settings.VarLogLevel+"=loud")

	if _, err := Bootstrap(context.Background(), f.opts); !errors.Is(err, ErrBootstrap) {
		t.Fatalf("err = %v, want ErrBootstrap", err)
	}
}

func TestHandoffCommandNotFound(t *testing.T) {
	f := newFixture(t)
	f.opts.Args = []string{"rustup"}

	s, err := Bootstrap(context.Background(), f.opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Handoff(); !errors.Is(err, ErrCommandNotFound) {
		t.Fatalf("err = %v, want ErrCommandNotFound", err)
	}
	if len(f.execs) != 0 {
		t.Fatal("exec attempted for an unresolved command")
	}
}

func TestHandoffBeforeReady(t *testing.T) {
	if err := (&Session{}).Handoff(); !errors.Is(err, ErrHandoff) {
		t.Fatalf("err = %v, want ErrHandoff", err)
	}
}

func TestSetenv(t *testing.T) {
	got := setenv([]string{"A=1", "HOME=/root", "B=2", "HOME=/x"}, "HOME", "/home/p")
	want := []string{"A=1", "B=2", "HOME=/home/p"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("setenv mismatch (-want +got):\n%s", diff)
	}
}
