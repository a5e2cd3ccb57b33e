// Package stage runs the binding build: discovery, dependency resolution,
// materialization, translation and directive emission, in that order.
package stage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/kbolino/go-cgobind/internal/artifact"
	"github.com/kbolino/go-cgobind/internal/config"
	"github.com/kbolino/go-cgobind/internal/deps"
	"github.com/kbolino/go-cgobind/internal/directive"
	"github.com/kbolino/go-cgobind/internal/discover"
	"github.com/kbolino/go-cgobind/internal/stageerr"
	"github.com/kbolino/go-cgobind/internal/translate"
)

// OutIncludeDir is the name of the mirrored include tree below the output
// directory.
const OutIncludeDir = "include"

// Paths are the locations one invocation reads and writes.
type Paths struct {
	SourceInclude string // include root in the project
	OutInclude    string // mirrored include root in the output directory
	Bindings      string // generated bindings file
}

func NewPaths(env config.Env, cfg *config.Config) Paths {
	return Paths{
		SourceInclude: discover.Join(env.Root, cfg.IncludeDir),
		OutInclude:    filepath.Join(env.OutDir, OutIncludeDir),
		Bindings:      filepath.Join(env.OutDir, cfg.BindingsFile),
	}
}

// Plan computes the link plan without touching the filesystem.
func Plan(env config.Env, cfg *config.Config) directive.Plan {
	paths := NewPaths(env, cfg)
	return directive.NewPlan(directive.Inputs{
		IncludeDir:    paths.OutInclude,
		SourceInclude: paths.SourceInclude,
		PrefixEnv:     cfg.PrefixEnv,
		LinkLibs:      cfg.LinkLibs,
		Frameworks:    cfg.Frameworks,
		TargetOS:      env.TargetOS,
	})
}

// Run executes the stage and prints the build directives to w. Nothing is
// printed unless every artifact was written.
func Run(ctx context.Context, env config.Env, cfg *config.Config, tr translate.Translator, w io.Writer) error {
	paths := NewPaths(env, cfg)
	syntax, err := directive.ParseSyntax(cfg.Syntax)
	if err != nil {
		return stageerr.New(stageerr.ErrConfiguration, "syntax", err)
	}

	tree, opts, err := prepare(ctx, env, cfg, paths)
	if err != nil {
		return err
	}

	libDir, err := artifact.Materialize(tree, paths.OutInclude)
	if err != nil {
		return err
	}
	slog.Info("materialized headers", "dir", libDir)

	bindings, err := tr.Translate(ctx, opts)
	if err != nil {
		return stageerr.New(stageerr.ErrGeneration, tree.Dir(), err)
	}
	if err := artifact.WriteFile(paths.Bindings, bindings); err != nil {
		return stageerr.New(stageerr.ErrWrite, paths.Bindings, err)
	}
	slog.Info("wrote bindings", "path", paths.Bindings, "bytes", len(bindings))

	if err := directive.Emit(w, Plan(env, cfg), syntax); err != nil {
		return stageerr.New(stageerr.ErrWrite, "directives", fmt.Errorf("emitting directives: %w", err))
	}
	return nil
}

// prepare discovers the headers, resolves dependencies and builds the
// translator options. It writes nothing.
func prepare(ctx context.Context, env config.Env, cfg *config.Config, paths Paths) (*discover.HeaderTree, translate.Options, error) {
	tree, err := discover.Discover(paths.SourceInclude, cfg.IncludePath)
	if err != nil {
		return nil, translate.Options{}, err
	}
	slog.Info("discovered headers", "dir", tree.Dir(), "headers", len(tree.Headers), "files", len(tree.Files))

	specs, err := deps.Resolve(cfg.Dependencies, nil)
	if err != nil {
		return nil, translate.Options{}, err
	}
	set, err := cfg.AllowlistSet(env.Root)
	if err != nil {
		return nil, translate.Options{}, err
	}
	typeMap, err := cfg.LoadTypeMap(env.Root)
	if err != nil {
		return nil, translate.Options{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, translate.Options{}, err
	}

	depDirs := deps.IncludeDirs(specs)
	return tree, translate.Options{
		IncludePaths:   append([]string{paths.SourceInclude}, depDirs...),
		LibraryDir:     tree.Dir(),
		Headers:        tree.HeaderPaths(),
		Includes:       tree.IncludeNames(),
		CFlagsIncludes: append([]string{paths.OutInclude}, depDirs...),
		Allowlist:      set,
		Recursive:      cfg.Recursive,
		Unreachable:    cfg.Policy(),
		Derive:         cfg.Derive,
		Package:        cfg.Package,
		TypeMap:        typeMap,
	}, nil
}

// Parser parses headers into an unfiltered declaration graph.
type Parser interface {
	Parse(ctx context.Context, opts translate.Options) (*translate.Graph, error)
}

// Symbol is a parsed declaration and whether the allowlist keeps it.
type Symbol struct {
	translate.Decl
	Allowed bool
}

// Symbols parses the library headers and reports every declaration found,
// in header order. Nothing is written.
func Symbols(ctx context.Context, env config.Env, cfg *config.Config, p Parser) ([]Symbol, error) {
	tree, opts, err := prepare(ctx, env, cfg, NewPaths(env, cfg))
	if err != nil {
		return nil, err
	}
	g, err := p.Parse(ctx, opts)
	if err != nil {
		return nil, stageerr.New(stageerr.ErrGeneration, tree.Dir(), err)
	}
	symbols := make([]Symbol, len(g.Decls))
	for i, d := range g.Decls {
		symbols[i] = Symbol{Decl: d, Allowed: opts.Allowlist.Match(d.Kind, d.Name)}
	}
	return symbols, nil
}
