package allowlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchExact(t *testing.T) {
	set, err := New(Lines{
		Functions: []string{"aws_profile_get_name", "", "# comment", "aws_sdkutils_library_init"},
		Types:     []string{"aws_profile"},
	})
	require.NoError(t, err)

	assert.True(t, set.Match(Function, "aws_profile_get_name"))
	assert.True(t, set.Match(Function, "aws_sdkutils_library_init"))
	// exact names carry no implicit wildcard
	assert.False(t, set.Match(Function, "aws_profile_get_name_v2"))
	assert.False(t, set.Match(Function, "x_aws_profile_get_name"))
	assert.False(t, set.Match(Function, "aws_profile"))

	assert.True(t, set.Match(Type, "aws_profile"))
	assert.False(t, set.Match(Type, "aws_profile_collection"))
	assert.False(t, set.Match(Type, "aws_profile_get_name"))

	// empty list matches nothing
	assert.False(t, set.Match(Var, "aws_profile"))
}

func TestMatchWildcardAndNegation(t *testing.T) {
	set, err := New(Lines{
		Functions: []string{
			"aws_endpoints_.*",
			"!aws_endpoints_.*_release",
			"aws_endpoints_ruleset_release",
		},
	})
	require.NoError(t, err)

	assert.True(t, set.Match(Function, "aws_endpoints_rule_engine_new"))
	assert.False(t, set.Match(Function, "aws_endpoints_rule_engine_release"))
	assert.True(t, set.Match(Function, "aws_endpoints_ruleset_release"))
	assert.False(t, set.Match(Function, "aws_profile_get_name"))
}

func TestNewInvalid(t *testing.T) {
	_, err := New(Lines{Types: []string{"ok", "bad("}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type allowlist")
	assert.Contains(t, err.Error(), "pattern 2")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "functions.txt")
	content := strings.Join([]string{
		"# profile API",
		"aws_profile_.*",
		"",
		"  ! aws_profile_collection_new_from_merge  ",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	patterns, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "aws_profile_.*", patterns[0].String())
	assert.False(t, patterns[0].Negate)
	assert.Equal(t, "!aws_profile_collection_new_from_merge", patterns[1].String())
	assert.True(t, patterns[1].Negate)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Parse(strings.NewReader("ok\n[unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestUnused(t *testing.T) {
	set, err := New(Lines{Types: []string{"aws_profile", "aws_missing", "!aws_profile", "aws_endpoints_.*"}})
	require.NoError(t, err)

	unused := set.Unused(Type, []string{"aws_profile", "aws_endpoints_ruleset"})
	require.Len(t, unused, 1)
	assert.Equal(t, "aws_missing", unused[0].String())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "function", Function.String())
	assert.Equal(t, "type", Type.String())
	assert.Equal(t, "variable", Var.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}
