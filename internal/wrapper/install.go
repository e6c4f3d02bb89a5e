package wrapper

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cruciblehq/playground/internal/paths"
)

// Installs the launchers into binDir as symlinks to target.
//
// target is the playground binary, which dispatches on the name it was
// invoked as. A relative target is resolved from binDir, which keeps the
// links valid when binDir is populated under a root prefix. Existing
// launchers are replaced atomically. Returns the installed launcher paths.
func Install(binDir, target string) ([]string, error) {
	if target == "" || strings.ContainsRune(target, '\x00') {
		return nil, fmt.Errorf("%w: invalid target %q", ErrInstall, target)
	}

	if err := os.MkdirAll(binDir, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstall, err)
	}

	installed := make([]string, 0, len(Launchers()))
	for _, name := range Launchers() {
		dst := filepath.Join(binDir, name)
		if err := link(target, dst); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInstall, name, err)
		}
		slog.Debug("installed launcher", "path", dst, "target", target)
		installed = append(installed, dst)
	}

	return installed, nil
}

// Points dst at target, leaving an already correct link alone.
func link(target, dst string) error {
	if current, err := os.Readlink(dst); err == nil && current == target {
		return nil
	}

	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp")
	os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
