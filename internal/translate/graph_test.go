package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbolino/go-cgobind/internal/allowlist"
)

// demoGraph mirrors a small library whose API mentions a type owned by a
// dependency.
func demoGraph() *Graph {
	return &Graph{Decls: []Decl{
		{Kind: allowlist.Type, Name: "dep_allocator", Form: FormStruct, Complete: true, Origin: OriginDependency},
		{Kind: allowlist.Type, Name: "demo_ctx", Form: FormStruct, Origin: OriginLibrary},
		{Kind: allowlist.Type, Name: "demo_point", Form: FormStruct, Complete: true, Origin: OriginLibrary},
		{Kind: allowlist.Type, Name: "demo_mode", Form: FormEnum, Constants: []string{"DEMO_MODE_FAST"}, Origin: OriginLibrary},
		{Kind: allowlist.Type, Name: "size_t", Form: FormTypedef, Origin: OriginSystem},
		{
			Kind:   allowlist.Function,
			Name:   "demo_init",
			Return: "int",
			Params: []Param{{Name: "ctx", Type: "struct demo_ctx *"}, {Name: "alloc", Type: "struct dep_allocator *"}},
			Refs:   []string{"demo_ctx", "dep_allocator"},
			Origin: OriginLibrary,
		},
		{
			Kind:   allowlist.Function,
			Name:   "demo_size",
			Return: "size_t",
			Refs:   []string{"size_t"},
			Origin: OriginLibrary,
		},
		{Kind: allowlist.Function, Name: "demo_internal", Return: "void", Origin: OriginLibrary},
		{Kind: allowlist.Var, Name: "demo_version", Type: "int", Origin: OriginLibrary},
	}}
}

func names(g *Graph) []string {
	var out []string
	for _, d := range g.Decls {
		out = append(out, d.Kind.String()+" "+d.Name)
	}
	return out
}

func mustSet(t *testing.T, lines allowlist.Lines) *allowlist.Set {
	t.Helper()
	set, err := allowlist.New(lines)
	require.NoError(t, err)
	return set
}

func TestFilterAllowlistOnly(t *testing.T) {
	set := mustSet(t, allowlist.Lines{
		Functions: []string{"demo_init", "demo_size"},
		Types:     []string{"demo_ctx"},
		Vars:      []string{"demo_version"},
	})
	kept, err := demoGraph().Filter(set, FilterOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"type demo_ctx",
		"function demo_init",
		"function demo_size",
		"variable demo_version",
	}, names(kept))
}

func TestFilterKindsAreDisjoint(t *testing.T) {
	// a type pattern never admits a function and vice versa
	set := mustSet(t, allowlist.Lines{
		Functions: []string{"demo_point"},
		Types:     []string{"demo_init", "demo_version"},
	})
	kept, err := demoGraph().Filter(set, FilterOptions{})
	require.NoError(t, err)
	assert.Empty(t, kept.Decls)
}

func TestFilterRecursive(t *testing.T) {
	set := mustSet(t, allowlist.Lines{Functions: []string{"demo_init"}})
	kept, err := demoGraph().Filter(set, FilterOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"type dep_allocator",
		"type demo_ctx",
		"function demo_init",
	}, names(kept))
}

func TestFilterUnreachablePolicy(t *testing.T) {
	set := mustSet(t, allowlist.Lines{
		Functions: []string{"demo_init", "demo_size"},
		Types:     []string{"demo_ctx"},
	})

	kept, err := demoGraph().Filter(set, FilterOptions{Policy: PolicyOmit})
	require.NoError(t, err)
	assert.NotContains(t, names(kept), "type dep_allocator")

	_, err = demoGraph().Filter(set, FilterOptions{Policy: PolicyFail})
	var unreachable *UnreachableError
	require.ErrorAs(t, err, &unreachable)
	// system typedefs such as size_t never trip the policy
	require.Len(t, unreachable.References, 1)
	assert.Contains(t, unreachable.References[0], "function demo_init references dependency type dep_allocator")
	assert.Contains(t, err.Error(), "1 reference(s)")
}

func TestParsePolicy(t *testing.T) {
	for in, expect := range map[string]Policy{"": PolicyOmit, "omit": PolicyOmit, "fail": PolicyFail} {
		p, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, expect, p)
	}
	_, err := ParsePolicy("ignore")
	require.Error(t, err)
}

func TestOriginFunc(t *testing.T) {
	origin := newOriginFunc([]string{"/src/include/demo"}, []string{"/src/include", "/deps/include"})
	assert.Equal(t, OriginLibrary, origin("/src/include/demo/demo.h"))
	assert.Equal(t, OriginDependency, origin("/src/include/other/other.h"))
	assert.Equal(t, OriginDependency, origin("/deps/include/dep/dep_common.h"))
	assert.Equal(t, OriginSystem, origin("/usr/include/stdint.h"))
	assert.Equal(t, OriginSystem, origin("/src/include-extra/x.h"))
	assert.Equal(t, "library", OriginLibrary.String())
	assert.Equal(t, "system", OriginSystem.String())
}
