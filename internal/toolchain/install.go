package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cruciblehq/playground/internal/paths"
)

// Artifacts produced by the verifier's release build that make up the
// toolchain. The verifier driver is what the wrapper invokes.
var DefaultArtifacts = []string{
	"prusti-driver",
	"prusti-server-driver",
	"prusti-server",
	"prusti-rustc",
	"cargo-prusti",
	ContractsLibrary,
}

const (

	// Name of the verifier executable inside the installation root.
	VerifierName = "prusti-driver"

	// Crate name user code imports contracts under.
	ContractsCrate = "prusti_contracts"

	// Compiled contracts crate inside the installation root.
	ContractsLibrary = "lib" + ContractsCrate + ".rlib"
)

// Copies a named artifact set from a build output directory into an
// installation root.
type Installer struct {
	Source    string   // Directory containing the built artifacts.
	Root      string   // Installation root, created if absent.
	Artifacts []string // Artifact names relative to Source. Files or directories.
}

// Installs the artifact set.
//
// Fails with [ErrMissingArtifact] before writing anything if any artifact is
// absent. When the root already holds an identical install, the returned
// receipt has Unchanged set and the root is left as is.
func (i *Installer) Install(ctx context.Context) (*Receipt, error) {
	if len(i.Artifacts) == 0 {
		return nil, fmt.Errorf("%w: empty artifact set", ErrInstall)
	}
	if err := i.checkArtifacts(); err != nil {
		return nil, err
	}

	parent := filepath.Dir(i.Root)
	if err := os.MkdirAll(parent, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstall, err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(i.Root)+".staging-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstall, err)
	}
	defer os.RemoveAll(staging)

	if err := os.Chmod(staging, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstall, err)
	}

	for _, name := range i.Artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src := filepath.Join(i.Source, name)
		dst := filepath.Join(staging, name)
		slog.Debug("copying artifact", "src", src, "dest", dst)
		if err := copyPath(src, dst); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInstall, name, err)
		}
	}

	receipt, err := scan(staging)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstall, err)
	}

	existing, err := readReceipt(i.Root)
	if err == nil && receipt.Equal(existing) {
		if current, err := scan(i.Root); err == nil && receipt.Equal(current) {
			slog.Info("toolchain up to date", "root", i.Root, "digest", receipt.Digest())
			receipt.Unchanged = true
			return receipt, nil
		}
	}

	if err := os.WriteFile(filepath.Join(staging, receiptName), receipt.marshal(), paths.DefaultFileMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstall, err)
	}

	if err := swap(staging, i.Root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstall, err)
	}

	slog.Info("installed toolchain",
		"root", i.Root,
		"files", len(receipt.Entries),
		"size", humanize.Bytes(uint64(receipt.Size())),
		"digest", receipt.Digest(),
	)

	return receipt, nil
}

// Verifies that root still matches its receipt.
func Verify(root string) (*Receipt, error) {
	stored, err := readReceipt(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptInstall, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: no receipt in %s", ErrCorruptInstall, root)
	}

	current, err := scan(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptInstall, err)
	}
	if !stored.Equal(current) {
		return nil, fmt.Errorf("%w: %s", ErrCorruptInstall, root)
	}
	return stored, nil
}

// Reports every missing artifact at once.
func (i *Installer) checkArtifacts() error {
	var missing []string
	for _, name := range i.Artifacts {
		if name == "" || filepath.IsAbs(name) || strings.HasPrefix(filepath.Clean(name), "..") {
			return fmt.Errorf("%w: invalid artifact name %q", ErrInstall, name)
		}
		if _, err := os.Stat(filepath.Join(i.Source, name)); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %w", ErrInstall, err)
			}
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s (in %s)", ErrMissingArtifact, strings.Join(missing, ", "), i.Source)
	}
	return nil
}

// Moves staging into place at root. An existing root is moved aside first
// and removed only after the new one is in place; on failure it is restored.
func swap(staging, root string) error {
	old := root + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}

	hadRoot := true
	if err := os.Rename(root, old); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		hadRoot = false
	}

	if err := os.Rename(staging, root); err != nil {
		if hadRoot {
			os.Rename(old, root)
		}
		return err
	}

	if hadRoot {
		return os.RemoveAll(old)
	}
	return nil
}

// Copies a file or directory tree, preserving permission bits.
func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode().Perm())
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return nil
		}
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), paths.DefaultDirMode); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// OpenFile applies the umask; set the exact bits.
	return os.Chmod(dst, mode)
}
