package prewarm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/cruciblehq/playground/internal/scaffold"
)

// Writes one artifact per profile and dependency, the way Cargo reuses
// unchanged outputs.
type fakeBuilder struct {
	calls []Profile
	fail  Profile
	err   error
}

func (b *fakeBuilder) Build(ctx context.Context, dir string, profile Profile) error {
	b.calls = append(b.calls, profile)
	if b.err != nil && b.fail == profile {
		return b.err
	}
	out := filepath.Join(dir, TargetDir, profile.String(), "deps")
	if err := os.MkdirAll(out, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(out, "libprusti_contracts.rlib"), []byte(profile.String()), 0644)
}

func newScaffold(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if _, err := scaffold.Generate(dir, scaffold.Default()); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunBuildsBothProfilesAndStrips(t *testing.T) {
	dir := newScaffold(t)
	b := &fakeBuilder{}

	report, err := Run(context.Background(), Options{Dir: dir, Builder: b})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(b.calls) != 2 || b.calls[0] != Debug || b.calls[1] != Release {
		t.Fatalf("calls = %v, want [debug release]", b.calls)
	}
	if report.Passes[0].CacheHit() || report.Passes[1].CacheHit() {
		t.Fatal("first builds reported as cache hits")
	}
	if report.Cache.Files != 2 {
		t.Fatalf("cache files = %d, want 2", report.Cache.Files)
	}
	if len(report.Stripped) != 1 {
		t.Fatalf("stripped = %v", report.Stripped)
	}

	sources, _ := scaffold.Sources(dir)
	if len(sources) != 0 {
		t.Fatalf("sources left: %v", sources)
	}
	if _, err := os.Stat(filepath.Join(dir, scaffold.ManifestFile)); err != nil {
		t.Fatal("manifest removed")
	}
}

func TestRunSecondTimeHitsCache(t *testing.T) {
	dir := newScaffold(t)
	opts := Options{Dir: dir, Builder: &fakeBuilder{}, KeepSources: true}

	first, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range second.Passes {
		if !p.CacheHit() {
			t.Errorf("%s pass rebuilt an unchanged dependency", p.Profile)
		}
	}
	if !first.Cache.Equal(second.Cache) {
		t.Fatal("cache fingerprint changed between identical runs")
	}
}

func TestRunStopsAtFailedBuild(t *testing.T) {
	dir := newScaffold(t)
	b := &fakeBuilder{fail: Debug, err: errors.New("boom")}

	_, err := Run(context.Background(), Options{Dir: dir, Builder: b})
	if !errors.Is(err, ErrBuild) {
		t.Fatalf("err = %v, want ErrBuild", err)
	}
	if len(b.calls) != 1 {
		t.Fatalf("calls = %v, want release skipped", b.calls)
	}

	sources, _ := scaffold.Sources(dir)
	if len(sources) == 0 {
		t.Fatal("sources stripped after a failed build")
	}
}

func TestRunWithoutManifest(t *testing.T) {
	_, err := Run(context.Background(), Options{Dir: t.TempDir(), Builder: &fakeBuilder{}})
	if !errors.Is(err, ErrNoManifest) {
		t.Fatalf("err = %v, want ErrNoManifest", err)
	}
}

func TestRunWaitsForLock(t *testing.T) {
	dir := newScaffold(t)
	target := filepath.Join(dir, TargetDir)
	os.MkdirAll(target, 0755)

	held := flock.New(filepath.Join(target, lockFile))
	if err := held.Lock(); err != nil {
		t.Fatal(err)
	}
	defer held.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &fakeBuilder{}
	if _, err := Run(ctx, Options{Dir: dir, Builder: b}); !errors.Is(err, ErrLock) {
		t.Fatalf("err = %v, want ErrLock", err)
	}
	if len(b.calls) != 0 {
		t.Fatal("built without holding the lock")
	}
}

func TestMeasure(t *testing.T) {
	dir := t.TempDir()

	empty, err := Measure(filepath.Join(dir, "missing"))
	if err != nil || empty.Files != 0 {
		t.Fatalf("Measure(missing) = %+v, %v", empty, err)
	}

	os.WriteFile(filepath.Join(dir, "a"), []byte("12345"), 0644)
	os.WriteFile(filepath.Join(dir, lockFile), []byte(""), 0644)

	fp, err := Measure(dir)
	if err != nil {
		t.Fatal(err)
	}
	if fp.Files != 1 || fp.Size != 5 {
		t.Fatalf("fingerprint = %+v, want 1 file of 5 bytes", fp)
	}
	if err := fp.Digest.Validate(); err != nil {
		t.Fatalf("invalid digest: %v", err)
	}

	os.WriteFile(filepath.Join(dir, "b"), []byte("x"), 0644)
	grown, _ := Measure(dir)
	if grown.Equal(fp) {
		t.Fatal("new entry not reflected in fingerprint")
	}
}

func TestProfileArgs(t *testing.T) {
	if got := strings.Join(Debug.Args(), " "); got != "build" {
		t.Errorf("debug args = %q", got)
	}
	if got := strings.Join(Release.Args(), " "); got != "build --release" {
		t.Errorf("release args = %q", got)
	}
	if Profile(9).String() != "unknown" {
		t.Error("unexpected name for unknown profile")
	}
}

func TestCargoBuilder(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "cargo.log")
	cargo := filepath.Join(dir, "cargo")
	script := "#!/bin/sh\necho \"$* wrapper=$RUSTC_WRAPPER\" >> " + log + "\n"
	if err := os.WriteFile(cargo, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	b := &CargoBuilder{Cargo: cargo, Env: []string{"RUSTC_WRAPPER=/usr/local/bin/prusti-rustc"}}
	for _, p := range Profiles {
		if err := b.Build(context.Background(), dir, p); err != nil {
			t.Fatalf("Build(%s): %v", p, err)
		}
	}

	data, _ := os.ReadFile(log)
	want := "build wrapper=/usr/local/bin/prusti-rustc\nbuild --release wrapper=/usr/local/bin/prusti-rustc\n"
	if string(data) != want {
		t.Fatalf("cargo log = %q, want %q", data, want)
	}
}

func TestCargoBuilderFailure(t *testing.T) {
	dir := t.TempDir()
	cargo := filepath.Join(dir, "cargo")
	os.WriteFile(cargo, []byte("#!/bin/sh\nexit 101\n"), 0755)

	b := &CargoBuilder{Cargo: cargo}
	if err := b.Build(context.Background(), dir, Debug); err == nil {
		t.Fatal("expected error from failing cargo")
	}
}
