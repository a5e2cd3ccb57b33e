// Package directive computes and prints the instructions the enclosing build
// system needs once the stage has run: where the headers are, when to run
// again, and what to link.
package directive

import (
	"log/slog"
	"os"
	"strings"
)

// DefaultPrefixEnv names the variable that points at an installed copy of
// the native libraries.
const DefaultPrefixEnv = "AWS_CRT_PREFIX"

// DefaultFrameworks are the platform frameworks linked per target OS. Both
// the Go and the Cargo spelling of Apple targets are listed.
var DefaultFrameworks = map[string][]string{
	"darwin": {"CoreFoundation"},
	"macos":  {"CoreFoundation"},
	"ios":    {"CoreFoundation"},
}

// Plan is everything the directives communicate, in emission order.
type Plan struct {
	IncludeDir  string
	RerunPaths  []string
	RerunEnv    []string
	SearchPaths []string
	Libs        []string
	LinkArgs    []string
}

// Inputs are the decisions already made by the rest of the stage.
type Inputs struct {
	IncludeDir    string // output include directory to advertise
	SourceInclude string // source include tree watched for changes
	PrefixEnv     string // empty means DefaultPrefixEnv
	LinkLibs      []string
	Frameworks    map[string][]string // nil means DefaultFrameworks
	TargetOS      string
	// Lookup reads the environment; nil means os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// NewPlan computes the link plan. It reads the prefix variable but never
// touches the filesystem.
func NewPlan(in Inputs) Plan {
	lookup := in.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	prefixEnv := in.PrefixEnv
	if prefixEnv == "" {
		prefixEnv = DefaultPrefixEnv
	}
	frameworks := in.Frameworks
	if frameworks == nil {
		frameworks = DefaultFrameworks
	}

	plan := Plan{IncludeDir: in.IncludeDir}
	if in.SourceInclude != "" {
		plan.RerunPaths = append(plan.RerunPaths, in.SourceInclude)
	}
	plan.RerunEnv = append(plan.RerunEnv, prefixEnv)
	if prefix, ok := lookup(prefixEnv); ok && prefix != "" {
		slog.Debug("using library prefix", "var", prefixEnv, "prefix", prefix)
		plan.SearchPaths = append(plan.SearchPaths, strings.TrimSuffix(prefix, "/")+"/lib")
	}
	for _, lib := range in.LinkLibs {
		if lib = strings.TrimSpace(lib); lib != "" {
			plan.Libs = append(plan.Libs, lib)
		}
	}
	for _, fw := range frameworks[in.TargetOS] {
		plan.LinkArgs = append(plan.LinkArgs, "-framework", fw)
	}
	return plan
}
