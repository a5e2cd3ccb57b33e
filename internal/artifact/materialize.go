// Package artifact builds the output include tree and writes generated
// files so that downstream build steps never observe a partial result.
package artifact

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kbolino/go-cgobind/internal/discover"
	"github.com/kbolino/go-cgobind/internal/stageerr"
)

// Materialize mirrors tree under outInclude: every discovered file is copied
// to outInclude/<subpath>/<name>. The tree is assembled in a staging
// directory beside outInclude and swapped in only once complete. It returns
// the library include directory inside outInclude.
func Materialize(tree *discover.HeaderTree, outInclude string) (string, error) {
	parent := filepath.Dir(outInclude)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", stageerr.New(stageerr.ErrMaterialization, parent, fmt.Errorf("creating directory: %w", err))
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(outInclude)+".tmp-")
	if err != nil {
		return "", stageerr.New(stageerr.ErrMaterialization, parent, fmt.Errorf("creating staging directory: %w", err))
	}
	// removes the staging directory on failure; after the swap it no longer exists
	defer os.RemoveAll(staging)

	if err := os.Chmod(staging, 0o755); err != nil {
		return "", stageerr.New(stageerr.ErrMaterialization, staging, err)
	}
	stagingLib := discover.Join(staging, tree.Subpath)
	if err := os.MkdirAll(stagingLib, 0o755); err != nil {
		return "", stageerr.New(stageerr.ErrMaterialization, stagingLib, fmt.Errorf("creating directory: %w", err))
	}
	for _, name := range tree.Files {
		src := filepath.Join(tree.Dir(), name)
		dst := filepath.Join(stagingLib, name)
		if err := copyFile(src, dst); err != nil {
			return "", stageerr.New(stageerr.ErrMaterialization, src, fmt.Errorf("copying to %s: %w", dst, err))
		}
		slog.Debug("copied header", "src", src)
	}

	if err := os.RemoveAll(outInclude); err != nil {
		return "", stageerr.New(stageerr.ErrMaterialization, outInclude, fmt.Errorf("removing previous tree: %w", err))
	}
	if err := os.Rename(staging, outInclude); err != nil {
		return "", stageerr.New(stageerr.ErrMaterialization, outInclude, fmt.Errorf("installing tree: %w", err))
	}
	return discover.Join(outInclude, tree.Subpath), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// WriteFile writes data to path through a temporary file in the same
// directory followed by a rename, creating the directory if needed.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
