// Package deps resolves the include directories of upstream native libraries
// from the build environment.
package deps

import (
	"log/slog"
	"os"
	"strings"

	"github.com/kbolino/go-cgobind/internal/stageerr"
)

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// Spec is a declared dependency and its resolved include directory.
type Spec struct {
	Name       string
	EnvKey     string
	IncludeDir string
}

var keyReplacer = strings.NewReplacer("-", "_", ".", "_")

// EnvKey returns the variable holding the include directory of the named
// dependency, e.g. aws-c-common -> DEP_AWS_C_COMMON_INCLUDE.
func EnvKey(name string) string {
	return "DEP_" + strings.ToUpper(keyReplacer.Replace(name)) + "_INCLUDE"
}

// Resolve looks up every declared dependency in order. Blank names are
// skipped and repeated names are resolved once. Any unset or empty variable
// is an error: a missing include path would silently produce wrong bindings.
func Resolve(names []string, lookup LookupFunc) ([]Spec, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	seen := make(map[string]bool)
	var specs []Spec
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		key := EnvKey(name)
		dir, ok := lookup(key)
		if !ok || dir == "" {
			return nil, stageerr.Newf(stageerr.ErrMissingDependency, key, "include directory for %s not set", name)
		}
		slog.Debug("resolved dependency", "name", name, "var", key, "include", dir)
		specs = append(specs, Spec{Name: name, EnvKey: key, IncludeDir: dir})
	}
	return specs, nil
}

// IncludeDirs returns the include directories of specs in order.
func IncludeDirs(specs []Spec) []string {
	dirs := make([]string, len(specs))
	for i, spec := range specs {
		dirs[i] = spec.IncludeDir
	}
	return dirs
}
