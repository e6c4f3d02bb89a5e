package prewarm

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/opencontainers/go-digest"
)

// Summary of a build cache tree.
type Fingerprint struct {
	Files  int           // Number of regular files.
	Size   int64         // Total size of regular files in bytes.
	Digest digest.Digest // Digest of the sorted path and size listing.
}

// Returns true when both fingerprints describe the same set of entries.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Digest == o.Digest
}

// Fingerprints the tree under dir. Modification times are ignored, and the
// pre-warm lock file is excluded. A missing dir yields the empty fingerprint.
func Measure(dir string) (Fingerprint, error) {
	var (
		fp      Fingerprint
		entries []string
	)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return fs.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() || d.Name() == lockFile {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		fp.Files++
		fp.Size += info.Size()
		entries = append(entries, fmt.Sprintf("%s %d\n", filepath.ToSlash(rel), info.Size()))
		return nil
	})
	if err != nil {
		return Fingerprint{}, err
	}

	slices.Sort(entries)
	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e))
	}
	fp.Digest = digest.NewDigest(digest.SHA256, h)
	return fp, nil
}
