package cli

import (
	"log/slog"
	"testing"

	"github.com/cruciblehq/playground/internal"
)

func resetToggles(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		RootCmd.Debug, RootCmd.Quiet = false, false
		internal.SetDebug(false)
		internal.SetQuiet(false)
		internal.LogLevel().Set(slog.LevelInfo)
	})
}

func TestConfigureLoggerRecordsFlags(t *testing.T) {
	resetToggles(t)
	RootCmd.Debug = true

	configureLogger(false)

	if !internal.IsDebug() {
		t.Fatal("debug flag not recorded")
	}
	if got := internal.LogLevel().Level(); got != slog.LevelDebug {
		t.Fatalf("level = %v, want debug", got)
	}
}

func TestConfigureLoggerLevels(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		operator bool
		quiet    bool
		want     slog.Level
	}{
		{"default", "", false, false, slog.LevelWarn},
		{"operator default", "", true, false, slog.LevelInfo},
		{"env debug", "debug", false, false, slog.LevelDebug},
		{"operator keeps lower env level", "debug", true, false, slog.LevelDebug},
		{"quiet", "debug", true, true, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetToggles(t)
			t.Setenv("PRUSTI_LOG_LEVEL", tt.env)
			RootCmd.Quiet = tt.quiet

			configureLogger(tt.operator)

			if got := internal.LogLevel().Level(); got != tt.want {
				t.Fatalf("level = %v, want %v", got, tt.want)
			}
			if internal.IsQuiet() != tt.quiet {
				t.Fatalf("IsQuiet() = %v, want %v", internal.IsQuiet(), tt.quiet)
			}
		})
	}
}
