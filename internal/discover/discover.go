// Package discover locates a native library's public headers.
package discover

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kbolino/go-cgobind/internal/stageerr"
)

// HeaderExt is the extension of files registered as translation roots.
const HeaderExt = ".h"

// HeaderTree is the set of files found directly inside a library include
// directory.
type HeaderTree struct {
	Root    string   // Source include root, e.g. <project>/include
	Subpath string   // Library subpath below Root, slash separated
	Headers []string // Header file names, sorted
	Files   []string // Every regular file name (headers included), sorted
}

// Dir returns the library include directory.
func (t *HeaderTree) Dir() string {
	return Join(t.Root, t.Subpath)
}

// HeaderPaths returns the absolute paths of the headers.
func (t *HeaderTree) HeaderPaths() []string {
	paths := make([]string, len(t.Headers))
	for i, name := range t.Headers {
		paths[i] = filepath.Join(t.Dir(), name)
	}
	return paths
}

// IncludeNames returns the headers as they are named relative to Root, for
// use in #include directives.
func (t *HeaderTree) IncludeNames() []string {
	names := make([]string, len(t.Headers))
	for i, name := range t.Headers {
		names[i] = path.Join(t.Subpath, name)
	}
	return names
}

// Join appends a slash separated subpath to dir one element at a time.
func Join(dir, subpath string) string {
	result := dir
	for _, elem := range strings.Split(subpath, "/") {
		if elem != "" {
			result = filepath.Join(result, elem)
		}
	}
	return result
}

// Discover lists the regular files directly inside root/subpath. Files ending
// in HeaderExt become headers; every regular file is kept for copying.
func Discover(root, subpath string) (*HeaderTree, error) {
	tree := &HeaderTree{Root: root, Subpath: subpath}
	dir := tree.Dir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, stageerr.New(stageerr.ErrDiscovery, dir, fmt.Errorf("listing header files: %w", err))
	}
	for _, entry := range entries {
		name := entry.Name()
		entryPath := filepath.Join(dir, name)
		regular, err := isRegular(entryPath, entry)
		if err != nil {
			return nil, stageerr.New(stageerr.ErrDiscovery, entryPath, fmt.Errorf("reading file type: %w", err))
		}
		if !regular {
			slog.Debug("skipping non-regular entry", "path", entryPath)
			continue
		}
		tree.Files = append(tree.Files, name)
		// only .h files are translated; .inl and friends are just copied
		if strings.HasSuffix(name, HeaderExt) {
			slog.Debug("found header", "path", entryPath)
			tree.Headers = append(tree.Headers, name)
		}
	}
	if len(tree.Headers) == 0 {
		return nil, stageerr.Newf(stageerr.ErrDiscovery, dir, "no header files found")
	}
	return tree, nil
}

func isRegular(entryPath string, entry fs.DirEntry) (bool, error) {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(entryPath)
		if err != nil {
			return false, err
		}
		return info.Mode().IsRegular(), nil
	}
	return entry.Type().IsRegular(), nil
}
