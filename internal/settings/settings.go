package settings

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/cruciblehq/playground/internal/paths"
)

// Variables recognized by the playground and the toolchain it wraps.
const (
	VarWrapper         = "RUSTC_WRAPPER"
	VarFullCompilation = "PRUSTI_FULL_COMPILATION"
	VarEncodeUnsigned  = "PRUSTI_ENCODE_UNSIGNED_NUM_CONSTRAINT"
	VarLogLevel        = "PRUSTI_LOG_LEVEL"
	VarUser            = "PLAYGROUND_USER"
	VarInstallRoot     = "PLAYGROUND_INSTALL_ROOT"
	VarBinDir          = "PLAYGROUND_BIN_DIR"
	VarScaffoldDir     = "PLAYGROUND_DIR"
)

// Name of the single-file launcher, which doubles as the wrapper target.
const launcherName = "prusti-rustc"

// Process-wide playground configuration.
//
// Values are fixed at construction. The zero value is not useful; use
// [Default] or [FromEnviron].
type Config struct {
	wrapper         string
	fullCompilation bool
	encodeUnsigned  bool
	logLevel        Level
	user            string
	installRoot     string
	binDir          string
	scaffoldDir     string
}

// Options for [New]. Empty strings select defaults.
type Options struct {
	Wrapper         string // Compiler wrapper path. Empty disables interception.
	FullCompilation bool   // Continue to real compilation after verification.
	EncodeUnsigned  bool   // Verifier encoding toggle, passed through.
	LogLevel        Level  // Defaults to [LevelWarn].
	User            string // Session user. Empty keeps the current user.
	InstallRoot     string // Defaults to [paths.InstallRoot].
	BinDir          string // Defaults to [paths.BinDir].
	ScaffoldDir     string // Defaults to [paths.ScaffoldDir].
}

// Creates a configuration from explicit options.
func New(opts Options) (Config, error) {
	cfg := Config{
		wrapper:         strings.TrimSpace(opts.Wrapper),
		fullCompilation: opts.FullCompilation,
		encodeUnsigned:  opts.EncodeUnsigned,
		logLevel:        opts.LogLevel,
		user:            strings.TrimSpace(opts.User),
		installRoot:     orDefault(opts.InstallRoot, paths.InstallRoot),
		binDir:          orDefault(opts.BinDir, paths.BinDir),
		scaffoldDir:     orDefault(opts.ScaffoldDir, paths.ScaffoldDir),
	}

	if cfg.logLevel == "" {
		cfg.logLevel = LevelWarn
	} else if _, err := ParseLevel(string(cfg.logLevel)); err != nil {
		return Config{}, err
	}

	for name, p := range map[string]string{
		VarInstallRoot: cfg.installRoot,
		VarBinDir:      cfg.binDir,
		VarScaffoldDir: cfg.scaffoldDir,
	} {
		if !filepath.IsAbs(p) {
			return Config{}, fmt.Errorf("%w: %s must be absolute, got %q", ErrInvalidConfig, name, p)
		}
	}

	return cfg, nil
}

// Returns the configuration baked into the playground image: interception
// through the single-file launcher, full compilation, unsigned constraint
// encoding, and warn-level output.
func Default() Config {
	cfg, _ := New(Options{
		Wrapper:         filepath.Join(paths.BinDir, launcherName),
		FullCompilation: true,
		EncodeUnsigned:  true,
		LogLevel:        LevelWarn,
	})
	return cfg
}

// Builds a configuration from a "KEY=value" list such as [os.Environ].
//
// Variables absent from environ take their [Default] values, except the
// wrapper: an environment without RUSTC_WRAPPER has interception disabled.
// Malformed booleans and levels are rejected rather than defaulted.
func FromEnviron(environ []string) (Config, error) {
	env := parseEnviron(environ)
	def := Default()

	opts := Options{
		Wrapper:     env[VarWrapper],
		LogLevel:    def.logLevel,
		User:        env[VarUser],
		InstallRoot: env[VarInstallRoot],
		BinDir:      env[VarBinDir],
		ScaffoldDir: env[VarScaffoldDir],
	}

	var err error
	if opts.FullCompilation, err = lookupBool(env, VarFullCompilation, def.fullCompilation); err != nil {
		return Config{}, err
	}
	if opts.EncodeUnsigned, err = lookupBool(env, VarEncodeUnsigned, def.encodeUnsigned); err != nil {
		return Config{}, err
	}
	if v, ok := env[VarLogLevel]; ok && strings.TrimSpace(v) != "" {
		if opts.LogLevel, err = ParseLevel(v); err != nil {
			return Config{}, err
		}
	}

	return New(opts)
}

// Path to the compiler wrapper. Empty when interception is disabled.
func (c Config) Wrapper() string { return c.wrapper }

// Whether compiler invocations are routed through the wrapper.
func (c Config) Intercepting() bool { return c.wrapper != "" }

// Whether verification success continues to real compilation.
func (c Config) FullCompilation() bool { return c.fullCompilation }

// Verifier numeric-constraint encoding toggle.
func (c Config) EncodeUnsigned() bool { return c.encodeUnsigned }

// Output verbosity.
func (c Config) LogLevel() Level { return c.logLevel }

// Session user identity. Empty means the current user.
func (c Config) User() string { return c.user }

// Toolchain installation root.
func (c Config) InstallRoot() string { return c.installRoot }

// Directory holding the launchers.
func (c Config) BinDir() string { return c.binDir }

// Scaffold and runtime working directory.
func (c Config) ScaffoldDir() string { return c.scaffoldDir }

// Returns a copy with the wrapper replaced.
func (c Config) WithWrapper(path string) Config {
	c.wrapper = strings.TrimSpace(path)
	return c
}

// Returns a copy whose paths are prefixed with root, for running tools
// against a filesystem assembled below root. A wrapper given as a bare name
// is kept, since it resolves through PATH.
func (c Config) Rooted(root string) Config {
	if filepath.IsAbs(c.wrapper) {
		c.wrapper = paths.Under(root, c.wrapper)
	}
	c.installRoot = paths.Under(root, c.installRoot)
	c.binDir = paths.Under(root, c.binDir)
	c.scaffoldDir = paths.Under(root, c.scaffoldDir)
	return c
}

// Returns a copy with full compilation toggled.
func (c Config) WithFullCompilation(enabled bool) Config {
	c.fullCompilation = enabled
	return c
}

// Returns the configuration as a variable map.
//
// The wrapper and user entries are omitted when empty so that exporting the
// map never enables interception with an empty path.
func (c Config) Map() map[string]string {
	m := map[string]string{
		VarFullCompilation: strconv.FormatBool(c.fullCompilation),
		VarEncodeUnsigned:  strconv.FormatBool(c.encodeUnsigned),
		VarLogLevel:        string(c.logLevel),
		VarInstallRoot:     c.installRoot,
		VarBinDir:          c.binDir,
		VarScaffoldDir:     c.scaffoldDir,
	}
	if c.wrapper != "" {
		m[VarWrapper] = c.wrapper
	}
	if c.user != "" {
		m[VarUser] = c.user
	}
	return m
}

// Returns the configuration as a sorted "KEY=value" list.
func (c Config) Environ() []string {
	m := c.Map()
	env := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		env = append(env, k+"="+m[k])
	}
	return env
}

// Overlays the configuration onto a base environment.
//
// Entries for variables the configuration manages are replaced. When
// interception is disabled, any inherited RUSTC_WRAPPER is removed so child
// processes cannot pick up a stale wrapper.
func (c Config) Overlay(base []string) []string {
	managed := c.Map()
	out := make([]string, 0, len(base)+len(managed))
	for _, entry := range base {
		k, _, _ := strings.Cut(entry, "=")
		if _, ok := managed[k]; ok || k == VarWrapper || k == VarUser {
			continue
		}
		out = append(out, entry)
	}
	return append(out, c.Environ()...)
}

// Splits an environ list into a map. Later entries win; malformed entries
// are skipped.
func parseEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, entry := range environ {
		if k, v, ok := strings.Cut(entry, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}

func lookupBool(env map[string]string, key string, def bool) (bool, error) {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, v)
	}
	return b, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
