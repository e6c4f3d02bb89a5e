package wrapper

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cruciblehq/playground/internal/settings"
)

// Verifies that the configured compiler wrapper can be executed.
//
// Returns nil when routing is disabled. A relative wrapper is resolved on
// the search path.
func CheckRouting(cfg settings.Config) error {
	if !cfg.Intercepting() {
		return nil
	}
	return checkExecutable(cfg.Wrapper())
}

func checkExecutable(path string) error {
	if !filepath.IsAbs(path) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return fmt.Errorf("%w: %s not found on PATH", ErrWrapperUnreachable, path)
		}
		path = resolved
	}

	info, err := os.Stat(path)
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", ErrWrapperUnreachable, err)
	case info.IsDir():
		return fmt.Errorf("%w: %s is a directory", ErrWrapperUnreachable, path)
	case info.Mode().Perm()&0111 == 0:
		return fmt.Errorf("%w: %s is not executable", ErrWrapperUnreachable, path)
	}
	return nil
}
