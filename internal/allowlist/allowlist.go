// Package allowlist decides which C declarations cross into the generated
// bindings.
package allowlist

import (
	"fmt"
	"log/slog"
)

// Kind is the category of a C declaration.
type Kind int

const (
	Function Kind = iota
	Type
	Var
)

func (k Kind) String() string {
	switch k {
	case Function:
		return "function"
	case Type:
		return "type"
	case Var:
		return "variable"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Set holds one pattern list per declaration kind.
type Set struct {
	Functions []Pattern
	Types     []Pattern
	Vars      []Pattern
}

// Lines is the uncompiled form of a Set.
type Lines struct {
	Functions []string
	Types     []string
	Vars      []string
}

// New compiles the pattern lines of each kind.
func New(lines Lines) (*Set, error) {
	var set Set
	var err error
	if set.Functions, err = ParseLines(lines.Functions); err != nil {
		return nil, fmt.Errorf("function allowlist: %w", err)
	}
	if set.Types, err = ParseLines(lines.Types); err != nil {
		return nil, fmt.Errorf("type allowlist: %w", err)
	}
	if set.Vars, err = ParseLines(lines.Vars); err != nil {
		return nil, fmt.Errorf("variable allowlist: %w", err)
	}
	return &set, nil
}

// Patterns returns the list consulted for kind.
func (s *Set) Patterns(kind Kind) []Pattern {
	switch kind {
	case Function:
		return s.Functions
	case Type:
		return s.Types
	case Var:
		return s.Vars
	}
	return nil
}

// Match reports whether name is allowlisted for kind. The last matching
// pattern decides; no match (or an empty list) means excluded.
func (s *Set) Match(kind Kind, name string) bool {
	patterns := s.Patterns(kind)
	if len(patterns) == 0 {
		return false
	}
	include := false
	anyMatch := false
	for _, pattern := range patterns {
		if !pattern.Matches(name) {
			continue
		}
		anyMatch = true
		include = !pattern.Negate
		if pattern.Negate {
			slog.Debug("excluding by negated pattern", "kind", kind, "name", name, "pattern", pattern)
		} else {
			slog.Debug("including by pattern", "kind", kind, "name", name, "pattern", pattern)
		}
	}
	if !anyMatch {
		slog.Debug("excluding unmatched name", "kind", kind, "name", name)
	}
	return include
}

// Unused returns the non-negated patterns of kind that match none of names.
func (s *Set) Unused(kind Kind, names []string) []Pattern {
	var unused []Pattern
	for _, pattern := range s.Patterns(kind) {
		if pattern.Negate {
			continue
		}
		used := false
		for _, name := range names {
			if pattern.Matches(name) {
				used = true
				break
			}
		}
		if !used {
			unused = append(unused, pattern)
		}
	}
	return unused
}
