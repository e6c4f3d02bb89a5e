package entrypoint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/shlex"

	"github.com/cruciblehq/playground/internal/paths"
	"github.com/cruciblehq/playground/internal/settings"
	"github.com/cruciblehq/playground/internal/wrapper"
)

// Shells tried, in order, when $SHELL is unset or unusable.
var fallbackShells = []string{"/bin/bash", "/bin/sh"}

// Controls a bootstrap. Zero values select the process defaults.
type Options struct {
	Args    []string // Command to run. Empty starts a login shell.
	Environ []string // Launch environment. Defaults to os.Environ.
	EnvFile string   // Persisted environment. Defaults to paths.EnvFile.

	Identity Identity // Resolves and assumes the session user.

	chdir func(string) error
	exec  func(path string, argv, env []string) error
}

// Session lifecycle state.
type State int

const (
	Bootstrapping State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "bootstrapping"
}

// A bootstrapped session, ready to hand off.
type Session struct {
	Config      settings.Config
	Dir         string   // Working directory.
	Path        string   // Executable to run.
	Argv        []string // Argument vector, argv[0] included.
	Env         []string // Environment of the handed-off process.
	Interactive bool     // Argv is a login shell.
	User        *Account // Session user, nil when unchanged.

	state State
	exec  func(path string, argv, env []string) error
}

// Prepares the session.
//
// Returns an error wrapping ErrBootstrap when the persisted environment is
// unreadable or invalid, or the scaffold directory cannot be entered.
func Bootstrap(ctx context.Context, opts Options) (*Session, error) {
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = paths.EnvFile
	}

	merged, err := settings.MergeFile(envFile, environ)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}
	cfg, err := settings.FromEnviron(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}

	s := &Session{
		Config: cfg,
		Dir:    cfg.ScaffoldDir(),
		exec:   opts.exec,
	}

	chdir := opts.chdir
	if chdir == nil {
		chdir = os.Chdir
	}
	if err := chdir(s.Dir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}

	env := setenv(merged, "PWD", s.Dir)

	if cfg.User() != "" {
		account, err := opts.Identity.assume(cfg.User())
		if err != nil {
			slog.Warn("keeping current user", "user", cfg.User(), "error", err)
		} else if account != nil {
			s.User = account
			env = setenv(env, "HOME", account.Home)
			env = setenv(env, "USER", account.Name)
		}
	}

	if err := wrapper.CheckRouting(cfg); err != nil {
		slog.Warn("compiler wrapper unreachable; builds will fail until it is fixed", "error", err)
	}

	argv, interactive, err := command(opts.Args, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}
	s.Argv = argv
	s.Interactive = interactive
	s.Env = env

	if interactive {
		s.Path = argv[0]
		s.Argv = append([]string{"-" + filepath.Base(argv[0])}, argv[1:]...)
	} else {
		s.Path = lookPath(argv[0], env)
	}

	s.state = Ready
	slog.Debug("session ready",
		"dir", s.Dir,
		"command", s.Argv,
		"interactive", interactive,
		"wrapper", cfg.Wrapper(),
	)
	return s, nil
}

// Returns the session state.
func (s *Session) State() State {
	return s.state
}

// Replaces the current process with the session command. Returns only on
// failure.
func (s *Session) Handoff() error {
	if s.state != Ready {
		return fmt.Errorf("%w: session is %s", ErrHandoff, s.state)
	}
	if !filepath.IsAbs(s.Path) {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, s.Path)
	}

	exec := s.exec
	if exec == nil {
		exec = syscall.Exec
	}
	if err := exec(s.Path, s.Argv, s.Env); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrCommandNotFound, s.Path)
		}
		return fmt.Errorf("%w: %s: %w", ErrHandoff, s.Path, err)
	}
	return nil
}

// Returns the argv to run and whether it is an interactive shell.
//
// A single argument containing whitespace is split with shell quoting
// rules, so a command passed as one string behaves like it does in a
// Dockerfile CMD.
func command(args []string, env []string) ([]string, bool, error) {
	if len(args) == 1 && strings.ContainsAny(args[0], " \t") {
		split, err := shlex.Split(args[0])
		if err != nil {
			return nil, false, fmt.Errorf("parse command %q: %w", args[0], err)
		}
		args = split
	}
	if len(args) > 0 {
		return args, false, nil
	}
	return []string{shell(env)}, true, nil
}

// Returns the login shell: $SHELL when it is an executable, otherwise the
// first fallback present.
func shell(env []string) string {
	candidates := fallbackShells
	if sh, ok := getenv(env, "SHELL"); ok && filepath.IsAbs(sh) {
		candidates = append([]string{sh}, candidates...)
	}
	for _, sh := range candidates {
		if isExecutable(sh) {
			return sh
		}
	}
	return fallbackShells[len(fallbackShells)-1]
}

// Resolves name against the PATH in env. Names with a separator are
// returned as given; unresolved names are returned unchanged.
func lookPath(name string, env []string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		if abs, err := filepath.Abs(name); err == nil {
			return abs
		}
		return name
	}
	search, _ := getenv(env, "PATH")
	for _, dir := range filepath.SplitList(search) {
		if dir == "" {
			continue
		}
		if candidate := filepath.Join(dir, name); isExecutable(candidate) {
			return candidate
		}
	}
	return name
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode().Perm()&0111 != 0
}

func getenv(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(env[i], "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// Sets key in env, replacing every earlier entry for it.
func setenv(env []string, key, value string) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if k, _, _ := strings.Cut(kv, "="); k != key {
			out = append(out, kv)
		}
	}
	return append(out, key+"="+value)
}
