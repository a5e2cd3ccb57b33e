package translate

import (
	"bytes"
	"fmt"
	"go/token"
	"log/slog"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"golang.org/x/tools/imports"

	"github.com/kbolino/go-cgobind/internal/allowlist"
	"github.com/kbolino/go-cgobind/internal/directive"
)

// Derive selects helper functions generated for complete struct and union
// types. They change the shape of the bindings, never which symbols appear.
type Derive struct {
	Debug   bool `yaml:"debug"`
	Default bool `yaml:"default"`
	Equal   bool `yaml:"equal"`
}

// RenderOptions configures the generated Go source.
type RenderOptions struct {
	Package      string
	IncludePaths []string // emitted as #cgo CFLAGS: -I<path>
	Includes     []string // emitted as #include <name>
	Derive       Derive
	TypeMap      TypeMap
	Policy       Policy
	Generator    string // named in the generated-code header
}

// GoName converts a C identifier to an exported Go identifier.
func GoName(cName string) string {
	return strcase.ToCamel(strings.ToLower(cName))
}

func paramName(cName string, i int) string {
	name := strcase.ToLowerCamel(cName)
	switch {
	case name == "":
		return fmt.Sprintf("param%d", i)
	case token.IsKeyword(name), name == "unsafe", name == "fmt":
		return name + "_"
	}
	return name
}

type renderer struct {
	opts      RenderOptions
	buf       bytes.Buffer
	names     map[string]string // Go name -> C name that claimed it
	claimed   []string          // names claimed by the declaration being rendered
	useUnsafe bool
	useFmt    bool
}

// Render produces formatted Go source for the declarations of g.
func Render(g *Graph, opts RenderOptions) ([]byte, error) {
	r := &renderer{opts: opts, names: make(map[string]string)}
	decls := sortedDecls(g)

	var body bytes.Buffer
	for _, d := range decls {
		if d.Err != nil {
			if err := r.skip(d, d.Err); err != nil {
				return nil, err
			}
			continue
		}
		r.buf.Reset()
		r.claimed = r.claimed[:0]
		useUnsafe, useFmt := r.useUnsafe, r.useFmt
		var err error
		switch d.Kind {
		case allowlist.Type:
			err = r.renderType(d, g)
		case allowlist.Function:
			err = r.renderFunc(d)
		case allowlist.Var:
			err = r.renderVar(d)
		}
		if err != nil {
			if err := r.skip(d, err); err != nil {
				return nil, err
			}
			r.useUnsafe, r.useFmt = useUnsafe, useFmt
			for _, name := range r.claimed {
				delete(r.names, name)
			}
			continue
		}
		body.Write(r.buf.Bytes())
	}

	var out bytes.Buffer
	generator := opts.Generator
	if generator == "" {
		generator = "cgobind"
	}
	fmt.Fprintf(&out, "// Code generated by %s. DO NOT EDIT.\n\n", generator)
	fmt.Fprintf(&out, "package %s\n\n", opts.Package)
	out.WriteString("/*\n")
	for _, dir := range opts.IncludePaths {
		fmt.Fprintf(&out, "#cgo CFLAGS: %s\n", directive.Quote("-I"+dir))
	}
	for _, name := range opts.Includes {
		fmt.Fprintf(&out, "#include <%s>\n", name)
	}
	out.WriteString("*/\n")
	out.WriteString("import \"C\"\n")
	var pkgs []string
	if r.useFmt {
		pkgs = append(pkgs, "fmt")
	}
	if r.useUnsafe {
		pkgs = append(pkgs, "unsafe")
	}
	switch len(pkgs) {
	case 0:
	case 1:
		fmt.Fprintf(&out, "\nimport %q\n", pkgs[0])
	default:
		out.WriteString("\nimport (\n")
		for _, pkg := range pkgs {
			fmt.Fprintf(&out, "\t%q\n", pkg)
		}
		out.WriteString(")\n")
	}
	out.Write(body.Bytes())

	formatted, err := imports.Process(opts.Package+".go", out.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("formatting generated source: %w", err)
	}
	return formatted, nil
}

// sortedDecls orders declarations by kind and name so output does not
// depend on header order.
func sortedDecls(g *Graph) []Decl {
	decls := append([]Decl(nil), g.Decls...)
	sort.SliceStable(decls, func(i, j int) bool {
		a, b := decls[i], decls[j]
		if a.Kind != b.Kind {
			// types first, then variables, then functions
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Form < b.Form
	})
	return decls
}

func kindOrder(k allowlist.Kind) int {
	switch k {
	case allowlist.Type:
		return 0
	case allowlist.Var:
		return 1
	}
	return 2
}

func (r *renderer) skip(d Decl, err error) error {
	if r.opts.Policy == PolicyFail {
		return fmt.Errorf("%s %s at %s: %w", d.Kind, d.Name, d.Pos, err)
	}
	slog.Warn("skipping declaration", "kind", d.Kind, "name", d.Name, "pos", d.Pos, "error", err)
	return nil
}

// claim reserves a Go identifier for cName.
func (r *renderer) claim(goName, cName string) error {
	if prev, ok := r.names[goName]; ok {
		return fmt.Errorf("Go name %s already used for %s", goName, prev)
	}
	r.names[goName] = cName
	r.claimed = append(r.claimed, goName)
	return nil
}

func (r *renderer) cgoType(cType string) (string, error) {
	goType, err := cgoType(r.opts.TypeMap, cType)
	if err != nil {
		return "", err
	}
	if strings.Contains(goType, unsafePointer) {
		r.useUnsafe = true
	}
	return goType, nil
}

func (r *renderer) renderType(d Decl, g *Graph) error {
	var cgoName string
	switch d.Form {
	case FormStruct:
		cgoName = "C.struct_" + d.Name
	case FormUnion:
		cgoName = "C.union_" + d.Name
	case FormEnum:
		cgoName = "C.enum_" + d.Name
	case FormTypedef:
		// 'typedef struct foo foo;' is covered by the struct alias
		for _, i := range g.Types(d.Name) {
			if f := g.Decls[i].Form; f == FormStruct || f == FormUnion || f == FormEnum {
				slog.Debug("typedef shares its name with a tag", "name", d.Name)
				return nil
			}
		}
		cgoName = "C." + d.Name
	default:
		return fmt.Errorf("unhandled type form %d", d.Form)
	}
	goName := GoName(d.Name)
	if err := r.claim(goName, d.Name); err != nil {
		return err
	}
	fmt.Fprintf(&r.buf, "\n// %s is the C type %s.\n", goName, strings.TrimPrefix(cgoName, "C."))
	fmt.Fprintf(&r.buf, "type %s = %s\n", goName, cgoName)
	if len(d.Constants) > 0 {
		r.buf.WriteString("\nconst (\n")
		for _, c := range d.Constants {
			constName := GoName(c)
			if err := r.claim(constName, c); err != nil {
				return err
			}
			fmt.Fprintf(&r.buf, "\t%s %s = C.%s\n", constName, goName, c)
		}
		r.buf.WriteString(")\n")
	}
	if d.Complete && d.Form != FormEnum {
		if err := r.renderDerives(goName, d.Name); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderDerives(goName, cName string) error {
	derive := r.opts.Derive
	if derive.Default {
		name := "New" + goName
		if err := r.claim(name, cName); err != nil {
			return err
		}
		fmt.Fprintf(&r.buf, "\n// %s returns a zero %s.\n", name, goName)
		fmt.Fprintf(&r.buf, "func %s() %s {\n\treturn %s{}\n}\n", name, goName, goName)
	}
	if derive.Equal {
		name := "Equal" + goName
		if err := r.claim(name, cName); err != nil {
			return err
		}
		fmt.Fprintf(&r.buf, "\n// %s reports whether a and b hold the same fields.\n", name)
		fmt.Fprintf(&r.buf, "func %s(a, b *%s) bool {\n\treturn *a == *b\n}\n", name, goName)
	}
	if derive.Debug {
		name := "Format" + goName
		if err := r.claim(name, cName); err != nil {
			return err
		}
		r.useFmt = true
		fmt.Fprintf(&r.buf, "\n// %s formats v for debugging.\n", name)
		fmt.Fprintf(&r.buf, "func %s(v *%s) string {\n\treturn fmt.Sprintf(\"%s%%+v\", *v)\n}\n", name, goName, goName)
	}
	return nil
}

func (r *renderer) renderFunc(d Decl) error {
	retType, err := r.cgoType(d.Return)
	if err != nil {
		return fmt.Errorf("converting return type '%s': %w", d.Return, err)
	}
	params := make([]string, len(d.Params))
	args := make([]string, len(d.Params))
	used := make(map[string]bool, len(d.Params))
	for i, p := range d.Params {
		goType, err := r.cgoType(p.Type)
		if err != nil {
			return fmt.Errorf("converting type '%s' of parameter %d: %w", p.Type, i+1, err)
		} else if goType == "" {
			return fmt.Errorf("parameter %d has type void", i+1)
		}
		name := paramName(p.Name, i+1)
		// distinct C names can camel-case to the same Go name
		for base, n := name, 2; used[name]; n++ {
			name = fmt.Sprintf("%s%d", base, n)
		}
		used[name] = true
		params[i] = name + " " + goType
		args[i] = name
	}
	goName := GoName(d.Name)
	if err := r.claim(goName, d.Name); err != nil {
		return err
	}
	fmt.Fprintf(&r.buf, "\n// %s calls %s.\n", goName, d.Name)
	call := fmt.Sprintf("C.%s(%s)", d.Name, strings.Join(args, ", "))
	if retType == "" {
		fmt.Fprintf(&r.buf, "func %s(%s) {\n\t%s\n}\n", goName, strings.Join(params, ", "), call)
	} else {
		fmt.Fprintf(&r.buf, "func %s(%s) %s {\n\treturn %s\n}\n", goName, strings.Join(params, ", "), retType, call)
	}
	return nil
}

func (r *renderer) renderVar(d Decl) error {
	goName := GoName(d.Name)
	if err := r.claim(goName, d.Name); err != nil {
		return err
	}
	if d.Form == FormConst {
		fmt.Fprintf(&r.buf, "\n// %s is the C constant %s.\n", goName, d.Name)
		fmt.Fprintf(&r.buf, "const %s = C.%s\n", goName, d.Name)
		return nil
	}
	goType, err := r.cgoType(d.Type)
	if err != nil {
		return fmt.Errorf("converting type '%s': %w", d.Type, err)
	} else if goType == "" {
		return fmt.Errorf("variable has type void")
	}
	fmt.Fprintf(&r.buf, "\n// %s returns the value of %s.\n", goName, d.Name)
	fmt.Fprintf(&r.buf, "func %s() %s {\n\treturn C.%s\n}\n", goName, goType, d.Name)
	return nil
}
