package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/cruciblehq/playground/internal"
	"github.com/cruciblehq/playground/internal/paths"
	"github.com/cruciblehq/playground/internal/settings"
)

// Represents the root command of the playground binary.
var RootCmd struct {
	Quiet bool `short:"q" help:"Only report warnings and errors."`
	Debug bool `short:"d" help:"Enable debug output."`

	Assemble   AssembleCmd   `cmd:"" help:"Assemble the playground filesystem (runs inside the image build)."`
	Image      ImageCmd      `cmd:"" help:"Build the playground image with containerd."`
	Scaffold   ScaffoldCmd   `cmd:"" help:"Generate a playground scaffold project."`
	Entrypoint EntrypointCmd `cmd:"" help:"Bootstrap a playground session (container entrypoint)."`
	Wrap       WrapCmd       `cmd:"" help:"Run a compiler invocation through the verifier."`
	Check      CheckCmd      `cmd:"" help:"Check compiler routing and the toolchain install."`
	Version    VersionCmd    `cmd:"" help:"Show version information."`
}

// Commands that log at info level by default.
var operatorCommands = map[string]bool{
	"assemble": true,
	"image":    true,
	"scaffold": true,
	"version":  true,
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Verifier playground orchestration.\n\nBuilds the playground image and routes compiler invocations through the verifier."),
		kong.UsageOnError(),
		kong.Vars{
			"version":     internal.VersionString(),
			"wrapper":     paths.BinDir + "/prusti-rustc",
			"source":      paths.StagingDir,
			"images":      paths.Images(),
			"containerd":  "/run/containerd/containerd.sock",
			"installRoot": paths.InstallRoot,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger(operatorCommands[commandName(kongCtx)])

	return kongCtx.Run()
}

// Returns the first word of the selected command.
func commandName(kongCtx *kong.Context) string {
	name, _, _ := strings.Cut(kongCtx.Command(), " ")
	return name
}

// Sets the process log level from the flags and the environment.
//
// Flags win and are recorded in the process toggles. Otherwise operator
// commands log at info, and everything else follows PRUSTI_LOG_LEVEL.
func configureLogger(operator bool) {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	internal.SetDebug(debug)
	internal.SetQuiet(quiet)

	level := envLevel()
	if operator && level > slog.LevelInfo {
		level = slog.LevelInfo
	}

	switch {
	case debug:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	internal.LogLevel().Set(level)
}

// Returns the level PRUSTI_LOG_LEVEL asks for. Invalid values fall back to
// the default level; the commands that load the configuration report them.
func envLevel() slog.Level {
	if v, ok := os.LookupEnv(settings.VarLogLevel); ok {
		if l, err := settings.ParseLevel(v); err == nil {
			return l.Slog()
		}
	}
	return settings.LevelWarn.Slog()
}

// Loads the configuration from the persisted environment file merged under
// the process environment.
func loadConfig() (settings.Config, error) {
	cfg, err := settings.LoadFile(paths.EnvFile, os.Environ())
	if err != nil {
		return settings.Config{}, err
	}
	slog.Debug("configuration loaded", "env", cfg.Environ())
	return cfg, nil
}
