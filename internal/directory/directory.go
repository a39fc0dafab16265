// Package directory loads the recipient directory: a two-column reference
// table mapping a normalized group key (business unit, origin site or
// restaurant) to a raw comma-separated address list.
//
// The directory is loaded once per process and read-only afterwards; it is
// constructed explicitly and passed into the dispatch pipeline rather than
// kept as package state.
package directory

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/input"
)

// LoadError means the reference table is missing or malformed. It is fatal:
// no send is attempted without a directory.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("recipient directory %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Directory is an immutable mapping from normalized group key to a raw
// comma-separated address list.
type Directory struct {
	entries map[string]string
}

// Load reads the first sheet of the reference table. The first two columns
// are taken positionally regardless of header text: column one is the key
// (trimmed + upper-cased), column two the address list (trimmed only).
// Addresses are not validated or deduplicated here.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	rows, err := input.ReadRows(path, data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if len(rows) == 0 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("reference table is empty")}
	}
	if len(rows[0]) < 2 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("reference table has fewer than two columns")}
	}

	entries := make(map[string]string, len(rows)-1)
	// Row one holds the (ignored) header text.
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		key := input.Normalize(row[0])
		if key == "" {
			continue
		}
		addresses := ""
		if len(row) > 1 {
			addresses = strings.TrimSpace(row[1])
		}
		entries[key] = addresses
	}

	return &Directory{entries: entries}, nil
}

// Resolve looks up the raw address list for an already-normalized key.
// Exact match only: callers must normalize before calling, and must branch
// on the second return value rather than expect an error.
func (d *Directory) Resolve(key string) (string, bool) {
	addresses, ok := d.entries[key]
	return addresses, ok
}

// Len returns the number of directory entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// Loader loads a directory lazily on first use and caches it for the
// lifetime of the process. The backing file is not watched: edits made
// mid-session are ignored, matching the original behavior.
type Loader struct {
	path string

	once sync.Once
	dir  *Directory
	err  error
}

// NewLoader returns a Loader for the given reference table path. Nothing is
// read until Directory is first called.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Directory returns the cached directory, loading it on the first call.
func (l *Loader) Directory() (*Directory, error) {
	l.once.Do(func() {
		l.dir, l.err = Load(l.path)
	})
	return l.dir, l.err
}
