package directive

import (
	"fmt"
	"io"
	"strings"
)

// Syntax selects the directive dialect.
type Syntax string

const (
	// SyntaxCargo prints cargo:key=value lines for a Cargo build script host.
	SyntaxCargo Syntax = "cargo"
	// SyntaxCgo prints #cgo lines that can be pasted into a cgo preamble.
	SyntaxCgo Syntax = "cgo"
)

func ParseSyntax(s string) (Syntax, error) {
	switch Syntax(s) {
	case "", SyntaxCargo:
		return SyntaxCargo, nil
	case SyntaxCgo:
		return SyntaxCgo, nil
	}
	return "", fmt.Errorf("unknown directive syntax %q (want cargo or cgo)", s)
}

type emitter struct {
	w   io.Writer
	err error
}

func (e *emitter) line(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format+"\n", args...)
}

// Emit writes plan to w, one directive per line.
func Emit(w io.Writer, plan Plan, syntax Syntax) error {
	e := &emitter{w: w}
	switch syntax {
	case SyntaxCargo, "":
		if plan.IncludeDir != "" {
			e.line("cargo:include=%s", plan.IncludeDir)
		}
		for _, p := range plan.RerunPaths {
			e.line("cargo:rerun-if-changed=%s", p)
		}
		for _, v := range plan.RerunEnv {
			e.line("cargo:rerun-if-env-changed=%s", v)
		}
		for _, p := range plan.SearchPaths {
			e.line("cargo:rustc-link-search=%s", p)
		}
		for _, lib := range plan.Libs {
			e.line("cargo:rustc-link-lib=%s", lib)
		}
		for _, arg := range plan.LinkArgs {
			e.line("cargo:rustc-link-arg=%s", arg)
		}
	case SyntaxCgo:
		if plan.IncludeDir != "" {
			e.line("#cgo CFLAGS: %s", Quote("-I"+plan.IncludeDir))
		}
		for _, p := range plan.RerunPaths {
			e.line("// rerun-if-changed: %s", p)
		}
		for _, v := range plan.RerunEnv {
			e.line("// rerun-if-env-changed: %s", v)
		}
		for _, p := range plan.SearchPaths {
			e.line("#cgo LDFLAGS: %s", Quote("-L"+p))
		}
		for _, lib := range plan.Libs {
			e.line("#cgo LDFLAGS: -l%s", lib)
		}
		if len(plan.LinkArgs) > 0 {
			args := make([]string, len(plan.LinkArgs))
			for i, arg := range plan.LinkArgs {
				args[i] = Quote(arg)
			}
			e.line("#cgo LDFLAGS: %s", strings.Join(args, " "))
		}
	default:
		return fmt.Errorf("unknown directive syntax %q", syntax)
	}
	return e.err
}

// Quote protects a #cgo flag containing spaces or quotes the way cgo splits
// flags.
func Quote(arg string) string {
	if strings.ContainsAny(arg, " \t'\"") {
		return "'" + strings.ReplaceAll(arg, "'", `\'`) + "'"
	}
	return arg
}
