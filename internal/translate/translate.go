// Package translate parses C headers and renders cgo bindings for the
// allowlisted part of their declarations.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"modernc.org/cc/v3"

	"github.com/kbolino/go-cgobind/internal/allowlist"
)

// Options configures one translation.
type Options struct {
	// IncludePaths are searched by the parser: the source include root
	// first, then one directory per dependency.
	IncludePaths []string
	// LibraryDir holds the library's own headers; declarations from there
	// are library declarations, those from IncludePaths dependency ones.
	LibraryDir string
	// Headers are the translation roots, in order.
	Headers []string
	// Includes name the headers in the generated preamble.
	Includes []string
	// CFlagsIncludes are the -I paths of the generated preamble.
	CFlagsIncludes []string
	Allowlist      *allowlist.Set
	// Recursive keeps types reachable from allowlisted declarations even
	// when they are not allowlisted themselves.
	Recursive   bool
	Unreachable Policy
	Derive      Derive
	Package     string
	TypeMap     TypeMap
}

// Translator turns headers into a bindings file.
type Translator interface {
	Translate(ctx context.Context, opts Options) ([]byte, error)
}

// CC translates with the modernc.org/cc/v3 C front end.
type CC struct {
	// CPP is the host C preprocessor used to discover predefined macros and
	// system include paths. Empty disables host probing, which only works
	// for headers that include nothing from the system.
	CPP string
}

// Translate implements Translator.
func (t *CC) Translate(ctx context.Context, opts Options) ([]byte, error) {
	if len(opts.Headers) == 0 {
		return nil, errors.New("no headers to translate")
	}
	if opts.Allowlist == nil {
		opts.Allowlist = &allowlist.Set{}
	}
	graph, err := t.Parse(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slog.Debug("parsed declarations", "count", len(graph.Decls))
	kept, err := graph.Filter(opts.Allowlist, FilterOptions{
		Recursive: opts.Recursive,
		Policy:    opts.Unreachable,
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("allowlisted declarations", "count", len(kept.Decls))
	return Render(kept, RenderOptions{
		Package:      opts.Package,
		IncludePaths: opts.CFlagsIncludes,
		Includes:     opts.Includes,
		Derive:       opts.Derive,
		TypeMap:      opts.TypeMap,
		Policy:       opts.Unreachable,
	})
}

// Parse preprocesses and parses the headers into a declaration graph.
func (t *CC) Parse(ctx context.Context, opts Options) (*Graph, error) {
	var predefined string
	var hostIncludePaths, hostSysIncludePaths []string
	if t.CPP != "" {
		slog.Debug("determining host configuration from C preprocessor", "cpp", t.CPP)
		var err error
		predefined, hostIncludePaths, hostSysIncludePaths, err = cc.HostConfig(t.CPP)
		if err != nil {
			return nil, fmt.Errorf("obtaining host configuration: %w", err)
		}
		slog.Debug("host configuration", "includePaths", hostIncludePaths, "sysIncludePaths", hostSysIncludePaths)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// "@" is the directory of the including file
	includePaths := append([]string{"@"}, opts.IncludePaths...)
	includePaths = append(includePaths, hostIncludePaths...)
	sysIncludePaths := append(append([]string(nil), opts.IncludePaths...), hostSysIncludePaths...)

	var sources []cc.Source
	if predefined != "" {
		sources = append(sources, cc.Source{Name: "__predefined__", Value: predefined})
	}
	for _, header := range opts.Headers {
		slog.Debug("adding translation root", "header", header)
		sources = append(sources, cc.Source{Name: header, DoNotCache: true})
	}
	ast, err := cc.Parse(&cc.Config{}, includePaths, sysIncludePaths, sources)
	if err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}
	var libraryDirs []string
	if opts.LibraryDir != "" {
		libraryDirs = []string{opts.LibraryDir}
	}
	return NewParser(newOriginFunc(libraryDirs, opts.IncludePaths)).Parse(ast)
}
