package runtime

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestOverlayEnv(t *testing.T) {
	tests := []struct {
		name      string
		base      []string
		overrides []string
		want      []string
	}{
		{"override", []string{"A=1", "B=2"}, []string{"A=x"}, []string{"A=x", "B=2"}},
		{"add", []string{"A=1"}, []string{"B=2"}, []string{"A=1", "B=2"}},
		{"empty base", nil, []string{"A=1"}, []string{"A=1"}},
		{"both empty", nil, nil, []string{}},
		{"value with equals", []string{"FLAGS=-C opt-level=3"}, nil, []string{"FLAGS=-C opt-level=3"}},
		{"malformed dropped", []string{"NOEQ", "=v", "A=1"}, []string{"BAD", "B=2"}, []string{"A=1", "B=2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overlayEnv(tt.base, tt.overrides)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("overlayEnv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImageConfigApply(t *testing.T) {
	cfg := ocispec.ImageConfig{
		Entrypoint: []string{"/docker-entrypoint.sh"},
		Cmd:        []string{"bash"},
		Env:        []string{"PATH=/usr/bin", "RUSTC_WRAPPER=/old"},
		WorkingDir: "/",
		Labels:     map[string]string{"base": "debian"},
	}

	ImageConfig{
		Entrypoint: []string{"/usr/local/bin/playground", "entrypoint"},
		Env:        []string{"RUSTC_WRAPPER=/usr/local/bin/prusti-rustc"},
		WorkingDir: "/playground",
		User:       "playground",
		Labels:     map[string]string{"org.opencontainers.image.title": "playground"},
	}.apply(&cfg)

	want := ocispec.ImageConfig{
		Entrypoint: []string{"/usr/local/bin/playground", "entrypoint"},
		Env:        []string{"PATH=/usr/bin", "RUSTC_WRAPPER=/usr/local/bin/prusti-rustc"},
		WorkingDir: "/playground",
		User:       "playground",
		Labels: map[string]string{
			"base":                           "debian",
			"org.opencontainers.image.title": "playground",
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestImageConfigApplyEmptyKeepsBase(t *testing.T) {
	cfg := ocispec.ImageConfig{Cmd: []string{"bash"}, User: "root", WorkingDir: "/"}
	want := cfg

	ImageConfig{}.apply(&cfg)
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("empty ImageConfig changed base (-want +got):\n%s", diff)
	}
}

func TestManifestGCLabels(t *testing.T) {
	m := ocispec.Manifest{
		Config: ocispec.Descriptor{Digest: digest.FromString("config")},
		Layers: []ocispec.Descriptor{
			{Digest: digest.FromString("layer0")},
			{Digest: digest.FromString("layer1")},
		},
	}

	labels := manifestGCLabels(m)
	if len(labels) != 3 {
		t.Fatalf("len(labels) = %d, want 3", len(labels))
	}
	if labels["containerd.io/gc.ref.content.config"] != m.Config.Digest.String() {
		t.Fatal("config label mismatch")
	}
	for i, l := range m.Layers {
		key := fmt.Sprintf("containerd.io/gc.ref.content.l.%d", i)
		if labels[key] != l.Digest.String() {
			t.Fatalf("labels[%q] = %q, want %q", key, labels[key], l.Digest)
		}
	}
}

func TestIndexGCLabels(t *testing.T) {
	idx := ocispec.Index{Manifests: []ocispec.Descriptor{{Digest: digest.FromString("m0")}}}
	labels := indexGCLabels(idx)
	if labels["containerd.io/gc.ref.content.m.0"] != idx.Manifests[0].Digest.String() {
		t.Fatalf("labels = %v", labels)
	}
}

func TestArchiveRef(t *testing.T) {
	ref := archiveRef("/build/base.tar")
	if !strings.HasPrefix(ref, "playground/base-") || !strings.HasSuffix(ref, ":latest") {
		t.Fatalf("ref = %q", ref)
	}
	if archiveRef("/build/base.tar") != ref {
		t.Fatal("archiveRef is not deterministic")
	}
	if archiveRef("/build/other.tar") == ref {
		t.Fatal("different archives share a reference")
	}
}

func TestDefaultPlatform(t *testing.T) {
	os, arch, ok := strings.Cut(DefaultPlatform(), "/")
	if !ok || os != "linux" || arch == "" {
		t.Fatalf("DefaultPlatform = %q", DefaultPlatform())
	}
}

func TestEOFReaderSignalsOnce(t *testing.T) {
	r := &eofReader{r: strings.NewReader("abc"), eof: make(chan struct{})}

	data, err := io.ReadAll(r)
	if err != nil || string(data) != "abc" {
		t.Fatalf("ReadAll = %q, %v", data, err)
	}
	if _, err := r.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("second read err = %v", err)
	}

	select {
	case <-r.eof:
	default:
		t.Fatal("eof channel not closed")
	}
}
