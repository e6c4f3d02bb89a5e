package toolchain

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Name of the receipt file inside the installation root.
const receiptName = ".receipt"

// One installed file.
type Entry struct {
	Path   string        // Slash-separated path relative to the root.
	Mode   fs.FileMode   // Permission bits.
	Size   int64         // Size in bytes.
	Digest digest.Digest // Content digest.
}

// Inventory of an installation root.
type Receipt struct {
	Entries   []Entry // Sorted by path.
	Unchanged bool    // Set by Install when the existing root already matched.
}

// Total size of all entries in bytes.
func (r *Receipt) Size() int64 {
	var n int64
	for _, e := range r.Entries {
		n += e.Size
	}
	return n
}

// Digest over the whole receipt, identifying the installed set.
func (r *Receipt) Digest() digest.Digest {
	return digest.FromBytes(r.marshal())
}

// Equal reports whether two receipts describe the same files.
func (r *Receipt) Equal(o *Receipt) bool {
	return o != nil && slices.Equal(r.Entries, o.Entries)
}

// Encodes the receipt as one "<digest> <mode> <size> <path>" line per entry.
func (r *Receipt) marshal() []byte {
	var buf bytes.Buffer
	for _, e := range r.Entries {
		fmt.Fprintf(&buf, "%s %04o %d %s\n", e.Digest, e.Mode.Perm(), e.Size, e.Path)
	}
	return buf.Bytes()
}

// Parses a receipt written by marshal.
func parseReceipt(r io.Reader) (*Receipt, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		var (
			e    Entry
			d    string
			mode uint32
		)
		if _, err := fmt.Sscanf(line, "%s %o %d", &d, &mode, &e.Size); err != nil {
			return nil, fmt.Errorf("malformed receipt line %q: %w", line, err)
		}
		fields := strings.SplitN(line, " ", 4)
		if len(fields) != 4 {
			return nil, fmt.Errorf("malformed receipt line %q", line)
		}
		e.Digest = digest.Digest(d)
		if err := e.Digest.Validate(); err != nil {
			return nil, fmt.Errorf("malformed receipt digest %q: %w", d, err)
		}
		e.Mode = fs.FileMode(mode)
		e.Path = fields[3]
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &Receipt{Entries: entries}, nil
}

// Reads the receipt stored in root. Returns nil without error when the root
// has no receipt.
func readReceipt(root string) (*Receipt, error) {
	f, err := os.Open(filepath.Join(root, receiptName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return parseReceipt(f)
}

// Walks dir and digests every regular file, skipping the receipt itself.
func scan(dir string) (*Receipt, error) {
	var entries []Entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == receiptName && filepath.Dir(path) == dir {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		dg, err := digestFile(path)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		entries = append(entries, Entry{
			Path:   filepath.ToSlash(rel),
			Mode:   info.Mode().Perm(),
			Size:   info.Size(),
			Digest: dg,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })
	return &Receipt{Entries: entries}, nil
}

func digestFile(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return digest.Canonical.FromReader(f)
}
