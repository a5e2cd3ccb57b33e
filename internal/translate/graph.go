package translate

import (
	"fmt"
	"go/token"
	"log/slog"
	"sort"

	"github.com/kbolino/go-cgobind/internal/allowlist"
)

// Form distinguishes the flavors of type declarations.
type Form int

const (
	FormNone Form = iota
	FormStruct
	FormUnion
	FormEnum
	FormTypedef
	FormConst // enumerator of an anonymous enum, exposed as a variable
)

func (f Form) String() string {
	switch f {
	case FormStruct:
		return "struct"
	case FormUnion:
		return "union"
	case FormEnum:
		return "enum"
	case FormTypedef:
		return "typedef"
	case FormConst:
		return "const"
	}
	return ""
}

// Origin classifies the header a declaration came from.
type Origin int

const (
	OriginSystem Origin = iota
	OriginLibrary
	OriginDependency
)

func (o Origin) String() string {
	switch o {
	case OriginLibrary:
		return "library"
	case OriginDependency:
		return "dependency"
	}
	return "system"
}

// Param is a function parameter.
type Param struct {
	Name string
	Type string // C spelling
}

// Decl is one node of the declaration graph.
type Decl struct {
	Kind      allowlist.Kind
	Name      string
	Form      Form
	Complete  bool     // struct or union with a body, or a typedef of one
	Return    string   // function return type, C spelling
	Params    []Param  // function parameters
	Type      string   // variable type, C spelling
	Target    string   // typedef target tag, if it names a struct or union
	Constants []string // enumerators, in declaration order
	Refs      []string // names of types this declaration mentions
	Origin    Origin
	Pos       token.Position
	Err       error // set when the declaration cannot be expressed in Go
}

// Graph is the set of declarations parsed from a translation unit.
type Graph struct {
	Decls []Decl
}

// Types returns the type declarations named name.
func (g *Graph) Types(name string) []int {
	var idx []int
	for i, d := range g.Decls {
		if d.Kind == allowlist.Type && d.Name == name {
			idx = append(idx, i)
		}
	}
	return idx
}

// Names returns the names of all declarations of kind.
func (g *Graph) Names(kind allowlist.Kind) []string {
	var names []string
	for _, d := range g.Decls {
		if d.Kind == kind {
			names = append(names, d.Name)
		}
	}
	return names
}

// Policy decides what happens to a kept declaration that mentions a type
// which was not kept.
type Policy int

const (
	// PolicyOmit leaves the type out of the bindings; wrappers still refer to
	// it through cgo.
	PolicyOmit Policy = iota
	// PolicyFail rejects the graph if the type was declared in a library or
	// dependency header.
	PolicyFail
)

// ParsePolicy accepts "omit" and "fail"; empty means omit.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "omit":
		return PolicyOmit, nil
	case "fail":
		return PolicyFail, nil
	}
	return PolicyOmit, fmt.Errorf("unknown unreachable policy %q (want omit or fail)", s)
}

// FilterOptions configures Graph.Filter.
type FilterOptions struct {
	// Recursive keeps every type reachable from a kept declaration.
	Recursive bool
	Policy    Policy
}

// Filter returns the declarations allowlisted by set, in their original
// order. Only allowlisted names cross the boundary unless opts.Recursive.
func (g *Graph) Filter(set *allowlist.Set, opts FilterOptions) (*Graph, error) {
	kept := make([]bool, len(g.Decls))
	for i, d := range g.Decls {
		kept[i] = set.Match(d.Kind, d.Name)
	}
	if opts.Recursive {
		var queue []int
		for i := range g.Decls {
			if kept[i] {
				queue = append(queue, i)
			}
		}
		for len(queue) > 0 {
			d := g.Decls[queue[0]]
			queue = queue[1:]
			for _, ref := range d.Refs {
				for _, j := range g.Types(ref) {
					if !kept[j] {
						slog.Debug("keeping referenced type", "name", ref, "from", d.Name)
						kept[j] = true
						queue = append(queue, j)
					}
				}
			}
		}
	} else {
		var unreachable []string
		for i, d := range g.Decls {
			if !kept[i] {
				continue
			}
			for _, ref := range d.Refs {
				for _, j := range g.Types(ref) {
					if kept[j] || d.Kind == allowlist.Type && d.Name == ref {
						continue
					}
					target := g.Decls[j]
					if opts.Policy == PolicyFail && target.Origin != OriginSystem {
						unreachable = append(unreachable, fmt.Sprintf("%s %s references %s type %s (%s)",
							d.Kind, d.Name, target.Origin, ref, target.Pos))
					} else {
						slog.Debug("omitting non-allowlisted type", "name", ref, "referenced_by", d.Name)
					}
				}
			}
		}
		if len(unreachable) > 0 {
			sort.Strings(unreachable)
			return nil, &UnreachableError{References: dedupe(unreachable)}
		}
	}
	result := &Graph{}
	for i, d := range g.Decls {
		if kept[i] {
			result.Decls = append(result.Decls, d)
		}
	}
	for _, kind := range []allowlist.Kind{allowlist.Function, allowlist.Type, allowlist.Var} {
		for _, pattern := range set.Unused(kind, g.Names(kind)) {
			slog.Warn("allowlist pattern matched nothing", "kind", kind, "pattern", pattern)
		}
	}
	return result, nil
}

// UnreachableError lists references to types left out of the bindings.
type UnreachableError struct {
	References []string
}

func (e *UnreachableError) Error() string {
	msg := fmt.Sprintf("%d reference(s) to non-allowlisted types", len(e.References))
	for _, r := range e.References {
		msg += "\n\t" + r
	}
	return msg
}

func dedupe(sorted []string) []string {
	var out []string
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
