package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbolino/go-cgobind/internal/stageerr"
)

const demoConfig = `
package: demo
link_libs: [demo]
include_path: demo
allowlist:
  functions: [demo_.*]
  types: [demo_point]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func demoProject(t *testing.T) (root, out string) {
	t.Helper()
	root, out = t.TempDir(), t.TempDir()
	lib := filepath.Join(root, "include", "demo")
	require.NoError(t, os.MkdirAll(lib, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "demo.h"), []byte(
		"struct demo_point { int x; int y; };\nint demo_area(const struct demo_point *p);\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cgobind.yaml"), []byte(demoConfig), 0o644))
	t.Setenv("AWS_CRT_PREFIX", "")
	return root, out
}

func TestRootCommand(t *testing.T) {
	root, out := demoProject(t)
	stdout, err := execute(t, "--root", root, "--out-dir", out, "--target-os", "linux", "--cpp", "none")
	require.NoError(t, err)

	assert.Equal(t, "cargo:include="+filepath.Join(out, "include")+"\n"+
		"cargo:rerun-if-changed="+filepath.Join(root, "include")+"\n"+
		"cargo:rerun-if-env-changed=AWS_CRT_PREFIX\n"+
		"cargo:rustc-link-lib=demo\n", stdout)

	assert.FileExists(t, filepath.Join(out, "include", "demo", "demo.h"))
	bindings, err := os.ReadFile(filepath.Join(out, "bindings.go"))
	require.NoError(t, err)
	assert.Contains(t, string(bindings), "package demo\n")
	assert.Contains(t, string(bindings), "type DemoPoint = C.struct_demo_point\n")
	assert.Contains(t, string(bindings), "func DemoArea(p *C.struct_demo_point) C.int {\n")
}

func TestRootCommandEnv(t *testing.T) {
	root, out := demoProject(t)
	t.Setenv("CARGO_MANIFEST_DIR", root)
	t.Setenv("OUT_DIR", out)
	t.Setenv("CARGO_CFG_TARGET_OS", "macos")
	stdout, err := execute(t, "--cpp", "none", "--syntax", "cgo")
	require.NoError(t, err)
	assert.Contains(t, stdout, "#cgo LDFLAGS: -ldemo\n")
	assert.Contains(t, stdout, "#cgo LDFLAGS: -framework CoreFoundation\n")
}

func TestRootCommandMissingEnv(t *testing.T) {
	t.Setenv("CARGO_MANIFEST_DIR", "")
	t.Setenv("OUT_DIR", "")
	stdout, err := execute(t)
	require.ErrorIs(t, err, stageerr.ErrConfiguration)
	assert.Contains(t, err.Error(), "CARGO_MANIFEST_DIR")
	assert.Empty(t, stdout)
}

func TestDirectivesCommand(t *testing.T) {
	root, out := demoProject(t)
	stdout, err := execute(t, "directives", "--root", root, "--out-dir", out, "--target-os", "ios")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cargo:rustc-link-lib=demo\n")
	assert.Contains(t, stdout, "cargo:rustc-link-arg=CoreFoundation\n")
	// nothing is generated
	assert.NoFileExists(t, filepath.Join(out, "bindings.go"))
	assert.NoDirExists(t, filepath.Join(out, "include"))
}

func TestSymbolsCommand(t *testing.T) {
	root, out := demoProject(t)
	stdout, err := execute(t, "symbols", "--root", root, "--out-dir", out, "--cpp", "none")
	require.NoError(t, err)
	assert.Contains(t, stdout, "KIND")
	assert.Regexp(t, `function\s+demo_area\s+library\s+yes`, stdout)
	assert.Regexp(t, `type\s+demo_point\s+struct\s+library\s+yes`, stdout)
	assert.NoDirExists(t, filepath.Join(out, "include"))
}

func TestInvalidSyntaxFlag(t *testing.T) {
	root, out := demoProject(t)
	_, err := execute(t, "directives", "--root", root, "--out-dir", out, "--syntax", "make")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "cgobind version "+Version+"\n", stdout)
}
