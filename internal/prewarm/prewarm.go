package prewarm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"github.com/cruciblehq/playground/internal/paths"
	"github.com/cruciblehq/playground/internal/scaffold"
)

const (

	// Build output directory, relative to the scaffold.
	TargetDir = "target"

	// Lock file guarding the target directory.
	lockFile = ".prewarm.lock"

	// Interval between lock attempts while another writer holds it.
	lockRetry = 250 * time.Millisecond
)

// Controls a pre-warm run.
type Options struct {
	Dir         string    // Scaffold directory.
	Builder     Builder   // Performs the builds.
	Profiles    []Profile // Defaults to Profiles.
	KeepSources bool      // Skip stripping the scaffold sources.
}

// One build pass.
type Pass struct {
	Profile  Profile
	Before   Fingerprint
	After    Fingerprint
	Duration time.Duration
}

// Returns true when the pass added nothing to the cache.
func (p Pass) CacheHit() bool {
	return p.Before.Equal(p.After)
}

// Outcome of a pre-warm run.
type Report struct {
	Passes   []Pass
	Cache    Fingerprint // Fingerprint of the target directory after all passes.
	Stripped []string    // Source files removed after the builds.
}

// Builds the scaffold in every profile and strips its sources.
//
// The run stops at the first failed build and leaves the sources in place,
// so the failure can be reproduced.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if _, err := scaffold.LoadManifest(opts.Dir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoManifest, err)
	}

	profiles := opts.Profiles
	if len(profiles) == 0 {
		profiles = Profiles
	}

	target := filepath.Join(opts.Dir, TargetDir)
	if err := os.MkdirAll(target, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLock, err)
	}

	lock := flock.New(filepath.Join(target, lockFile))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLock, err)
	}
	if !locked {
		return nil, ErrLock
	}
	defer lock.Unlock()

	report := &Report{}
	for _, profile := range profiles {
		pass, err := build(ctx, opts, target, profile)
		if err != nil {
			return nil, err
		}
		report.Passes = append(report.Passes, pass)

		slog.Info("pre-warm pass complete",
			"profile", profile,
			"cache_hit", pass.CacheHit(),
			"files", pass.After.Files,
			"size", humanize.Bytes(uint64(pass.After.Size)),
			"took", pass.Duration.Round(time.Millisecond),
		)
	}

	if n := len(report.Passes); n > 0 {
		report.Cache = report.Passes[n-1].After
	}

	if !opts.KeepSources {
		stripped, err := scaffold.Strip(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStrip, err)
		}
		report.Stripped = stripped
	}

	slog.Info("build cache pre-warmed",
		"dir", opts.Dir,
		"size", humanize.Bytes(uint64(report.Cache.Size)),
		"stripped", len(report.Stripped),
	)
	return report, nil
}

func build(ctx context.Context, opts Options, target string, profile Profile) (Pass, error) {
	pass := Pass{Profile: profile}

	before, err := Measure(target)
	if err != nil {
		return pass, fmt.Errorf("%w: %s: %w", ErrBuild, profile, err)
	}
	pass.Before = before

	slog.Debug("pre-warm pass", "profile", profile, "dir", opts.Dir)

	start := time.Now()
	if err := opts.Builder.Build(ctx, opts.Dir, profile); err != nil {
		return pass, fmt.Errorf("%w: %s: %w", ErrBuild, profile, err)
	}
	pass.Duration = time.Since(start)

	after, err := Measure(target)
	if err != nil {
		return pass, fmt.Errorf("%w: %s: %w", ErrBuild, profile, err)
	}
	pass.After = after
	return pass, nil
}
