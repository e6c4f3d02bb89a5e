package paths

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestUnder(t *testing.T) {
	tests := []struct {
		root string
		path string
		want string
	}{
		{"", InstallRoot, InstallRoot},
		{"/", ScaffoldDir, ScaffoldDir},
		{"/tmp/rootfs", InstallRoot, "/tmp/rootfs/usr/local/prusti"},
		{"rel", EnvFile, filepath.Join("rel", "etc", "playground", "environment")},
	}

	for _, tt := range tests {
		if got := Under(tt.root, tt.path); got != tt.want {
			t.Errorf("Under(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}

func TestHostDirs(t *testing.T) {
	if !strings.Contains(Images(), programName) {
		t.Fatalf("Images() = %q, want %q in the path", Images(), programName)
	}
	if filepath.Base(Images()) != "images" {
		t.Fatalf("Images() = %q, want images leaf", Images())
	}
}
