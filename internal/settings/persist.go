package settings

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"

	"github.com/cruciblehq/playground/internal/paths"
)

// Writes the configuration to a dotenv file, creating parent directories.
//
// The file is written to a temporary sibling and renamed into place. godotenv
// sorts keys, so identical configurations produce identical files.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	tmp := path + ".tmp"
	if err := godotenv.Write(c.Map(), tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := os.Chmod(tmp, paths.DefaultFileMode); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Reads a dotenv file and merges it under environ.
//
// Variables present in environ win over the file, which matches how values
// passed at container launch override those baked into the image. Baked
// entries come first, sorted by key. A missing file is not an error; environ
// is returned unchanged.
func MergeFile(path string, environ []string) ([]string, error) {
	baked, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return environ, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrPersist, path, err)
	}

	present := parseEnviron(environ)
	merged := make([]string, 0, len(baked)+len(environ))
	for _, k := range slices.Sorted(maps.Keys(baked)) {
		if _, ok := present[k]; !ok {
			merged = append(merged, k+"="+baked[k])
		}
	}
	return append(merged, environ...), nil
}

// Builds a configuration from a dotenv file merged under environ.
func LoadFile(path string, environ []string) (Config, error) {
	merged, err := MergeFile(path, environ)
	if err != nil {
		return Config{}, err
	}
	return FromEnviron(merged)
}
