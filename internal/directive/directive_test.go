package directive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestNewPlan(t *testing.T) {
	plan := NewPlan(Inputs{
		IncludeDir:    "/out/include",
		SourceInclude: "/src/include",
		LinkLibs:      []string{"", " aws-c-sdkutils ", "aws-c-common", "  "},
		TargetOS:      "linux",
		Lookup:        env(map[string]string{"AWS_CRT_PREFIX": "/opt/crt/"}),
	})
	assert.Equal(t, Plan{
		IncludeDir:  "/out/include",
		RerunPaths:  []string{"/src/include"},
		RerunEnv:    []string{"AWS_CRT_PREFIX"},
		SearchPaths: []string{"/opt/crt/lib"},
		Libs:        []string{"aws-c-sdkutils", "aws-c-common"},
	}, plan)
}

func TestNewPlanPrefixUnset(t *testing.T) {
	plan := NewPlan(Inputs{
		IncludeDir: "/out/include",
		PrefixEnv:  "DEMO_PREFIX",
		Lookup:     env(map[string]string{"AWS_CRT_PREFIX": "/ignored"}),
	})
	assert.Equal(t, []string{"DEMO_PREFIX"}, plan.RerunEnv)
	assert.Empty(t, plan.SearchPaths)

	// set but empty would otherwise search /lib
	plan = NewPlan(Inputs{Lookup: env(map[string]string{"AWS_CRT_PREFIX": ""})})
	assert.Equal(t, []string{"AWS_CRT_PREFIX"}, plan.RerunEnv)
	assert.Empty(t, plan.SearchPaths)
}

func TestNewPlanFrameworks(t *testing.T) {
	for _, goos := range []string{"darwin", "macos", "ios"} {
		plan := NewPlan(Inputs{TargetOS: goos, Lookup: env(nil)})
		assert.Equal(t, []string{"-framework", "CoreFoundation"}, plan.LinkArgs, goos)
	}
	for _, goos := range []string{"linux", "windows", ""} {
		plan := NewPlan(Inputs{TargetOS: goos, Lookup: env(nil)})
		assert.Empty(t, plan.LinkArgs, goos)
	}

	plan := NewPlan(Inputs{
		TargetOS:   "linux",
		Frameworks: map[string][]string{"linux": {"Demo"}},
		Lookup:     env(nil),
	})
	assert.Equal(t, []string{"-framework", "Demo"}, plan.LinkArgs)
}

var demoPlan = Plan{
	IncludeDir:  "/out/include",
	RerunPaths:  []string{"/src/include"},
	RerunEnv:    []string{"AWS_CRT_PREFIX"},
	SearchPaths: []string{"/opt/crt/lib"},
	Libs:        []string{"aws-c-sdkutils", "aws-c-common"},
	LinkArgs:    []string{"-framework", "CoreFoundation"},
}

func TestEmitCargo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, demoPlan, SyntaxCargo))
	assert.Equal(t, `cargo:include=/out/include
cargo:rerun-if-changed=/src/include
cargo:rerun-if-env-changed=AWS_CRT_PREFIX
cargo:rustc-link-search=/opt/crt/lib
cargo:rustc-link-lib=aws-c-sdkutils
cargo:rustc-link-lib=aws-c-common
cargo:rustc-link-arg=-framework
cargo:rustc-link-arg=CoreFoundation
`, buf.String())
}

func TestEmitCgo(t *testing.T) {
	plan := demoPlan
	plan.IncludeDir = "/out dir/include"
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, plan, SyntaxCgo))
	assert.Equal(t, `#cgo CFLAGS: '-I/out dir/include'
// rerun-if-changed: /src/include
// rerun-if-env-changed: AWS_CRT_PREFIX
#cgo LDFLAGS: -L/opt/crt/lib
#cgo LDFLAGS: -laws-c-sdkutils
#cgo LDFLAGS: -laws-c-common
#cgo LDFLAGS: -framework CoreFoundation
`, buf.String())
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed")
}

func TestEmitErrors(t *testing.T) {
	require.Error(t, Emit(failWriter{}, demoPlan, SyntaxCargo))
	require.Error(t, Emit(&bytes.Buffer{}, demoPlan, Syntax("make")))
}

func TestParseSyntax(t *testing.T) {
	for in, expect := range map[string]Syntax{"": SyntaxCargo, "cargo": SyntaxCargo, "cgo": SyntaxCgo} {
		s, err := ParseSyntax(in)
		require.NoError(t, err)
		assert.Equal(t, expect, s)
	}
	_, err := ParseSyntax("bazel")
	require.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "-I/usr/include", Quote("-I/usr/include"))
	assert.Equal(t, "'-I/opt/with space'", Quote("-I/opt/with space"))
	assert.Equal(t, `'-Dname=it\'s'`, Quote("-Dname=it's"))
}
