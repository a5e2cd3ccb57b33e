package artifact

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbolino/go-cgobind/internal/discover"
	"github.com/kbolino/go-cgobind/internal/stageerr"
)

func sourceTree(t *testing.T) *discover.HeaderTree {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "aws", "sdkutils")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	files := map[string]string{
		"sdkutils.h":         "#ifndef AWS_SDKUTILS_H\n#define AWS_SDKUTILS_H\nvoid aws_sdkutils_library_init(void);\n#endif\n",
		"aws_profile.h":      "struct aws_profile;\n",
		"endpoints_util.inl": "/* inline helpers */\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	tree, err := discover.Discover(root, "aws/sdkutils")
	require.NoError(t, err)
	return tree
}

// snapshot returns every regular file below dir keyed by slash path.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestMaterialize(t *testing.T) {
	tree := sourceTree(t)
	out := filepath.Join(t.TempDir(), "out", "include")

	libDir, err := Materialize(tree, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "aws", "sdkutils"), libDir)

	assert.Equal(t, snapshot(t, tree.Dir()), snapshot(t, libDir))
	assert.Len(t, snapshot(t, out), 3)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	require.Len(t, entries, 1, "staging directory left behind")
}

func TestMaterializeIdempotent(t *testing.T) {
	tree := sourceTree(t)
	out := filepath.Join(t.TempDir(), "include")

	_, err := Materialize(tree, out)
	require.NoError(t, err)
	first := snapshot(t, out)

	// stale files from an earlier build must not survive
	require.NoError(t, os.WriteFile(filepath.Join(out, "aws", "sdkutils", "stale.h"), []byte("old"), 0o644))

	_, err = Materialize(tree, out)
	require.NoError(t, err)
	assert.Equal(t, first, snapshot(t, out))
}

func TestMaterializeCopyFailure(t *testing.T) {
	tree := sourceTree(t)
	out := filepath.Join(t.TempDir(), "include")
	_, err := Materialize(tree, out)
	require.NoError(t, err)
	previous := snapshot(t, out)

	tree.Files = append(tree.Files, "vanished.h")
	_, err = Materialize(tree, out)
	require.ErrorIs(t, err, stageerr.ErrMaterialization)
	assert.Contains(t, err.Error(), "vanished.h")

	assert.Equal(t, previous, snapshot(t, out))
	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging directory left behind")
}

func TestMaterializeUnwritableParent(t *testing.T) {
	tree := sourceTree(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Materialize(tree, filepath.Join(blocker, "include"))
	require.ErrorIs(t, err, stageerr.ErrMaterialization)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen", "bindings.go")

	require.NoError(t, WriteFile(path, []byte("package a\n")))
	require.NoError(t, WriteFile(path, []byte("package b\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package b\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
