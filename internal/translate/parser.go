package translate

import (
	"errors"
	"fmt"
	"go/token"
	"path/filepath"
	"strings"

	"modernc.org/cc/v3"

	"github.com/kbolino/go-cgobind/internal/allowlist"
	"github.com/kbolino/go-cgobind/internal/logutil"
)

const Anonymous = "(anonymous)"

// originFunc classifies the file a declaration was found in.
type originFunc func(fileName string) Origin

// newOriginFunc returns an originFunc treating files below libraryDirs as
// library headers, files below dependencyDirs as dependency headers, and
// everything else as system headers.
func newOriginFunc(libraryDirs, dependencyDirs []string) originFunc {
	under := func(fileName string, dirs []string) bool {
		for _, dir := range dirs {
			rel, err := filepath.Rel(dir, fileName)
			if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}
	return func(fileName string) Origin {
		if !filepath.IsAbs(fileName) {
			if abs, err := filepath.Abs(fileName); err == nil {
				fileName = abs
			}
		}
		switch {
		case under(fileName, libraryDirs):
			return OriginLibrary
		case under(fileName, dependencyDirs):
			return OriginDependency
		}
		return OriginSystem
	}
}

// position converts the position of n to a go/token position.
func position(n cc.Node) token.Position {
	p := n.Position()
	return token.Position{Filename: p.Filename, Offset: p.Offset, Line: p.Line, Column: p.Column}
}

// Parser turns a parsed translation unit into a declaration graph.
type Parser struct {
	origin originFunc
	graph  Graph
	// struct and union tags seen with a body
	complete map[string]bool
	// index of each declaration by kind, form and name
	index map[declKey]int
}

type declKey struct {
	kind allowlist.Kind
	form Form
	name string
}

func NewParser(origin originFunc) *Parser {
	if origin == nil {
		origin = func(string) Origin { return OriginLibrary }
	}
	return &Parser{
		origin:   origin,
		complete: make(map[string]bool),
		index:    make(map[declKey]int),
	}
}

// add records d unless it redeclares a known name; a definition replaces an
// earlier forward declaration.
func (p *Parser) add(d Decl, pos token.Position) {
	d.Pos = pos
	d.Origin = p.origin(pos.Filename)
	key := declKey{d.Kind, d.Form, d.Name}
	if i, ok := p.index[key]; ok {
		if d.Complete && !p.graph.Decls[i].Complete {
			logutil.Trace("found definition", "kind", d.Kind, "name", d.Name, "pos", pos)
			p.graph.Decls[i] = d
		}
		return
	}
	logutil.Trace("found declaration", "kind", d.Kind, "name", d.Name, "pos", pos)
	p.index[key] = len(p.graph.Decls)
	p.graph.Decls = append(p.graph.Decls, d)
}

// Parse walks every external declaration of ast.
func (p *Parser) Parse(ast *cc.AST) (*Graph, error) {
	// translation_unit
	//   : external_declaration
	//   | translation_unit external_declaration
	//   ;
	for tu := ast.TranslationUnit; tu != nil; tu = tu.TranslationUnit {
		// external_declaration
		//   : function_definition
		//   | declaration
		//   ;
		decln := tu.ExternalDeclaration.Declaration
		if decln == nil {
			// function definition, not mere declaration
			continue
		}
		if err := p.parseDeclaration(decln); err != nil {
			return nil, fmt.Errorf("parsing declaration at position %s: %w", tu.Position(), err)
		}
	}
	// typedefs of tags defined later in the unit
	for i := range p.graph.Decls {
		d := &p.graph.Decls[i]
		if d.Form == FormTypedef && d.Target != "" && p.complete[d.Target] {
			d.Complete = true
		}
	}
	return &p.graph, nil
}

func (p *Parser) parseDeclaration(decln *cc.Declaration) error {
	// declaration
	//   : declaration_specifiers ';'
	//   | declaration_specifiers init_declarator_list ';'
	//   ;
	typedef := false
	var anonEnum *cc.EnumSpecifier
	var target string
	var body *cc.StructDeclarationList
	// declaration_specifiers
	//   : storage_class_specifier
	//   | storage_class_specifier declaration_specifiers
	//   | type_specifier
	//   | type_specifier declaration_specifiers
	//   | type_qualifier
	//   | type_qualifier declaration_specifiers
	//   ;
	for ds := decln.DeclarationSpecifiers; ds != nil; ds = ds.DeclarationSpecifiers {
		if sc := ds.StorageClassSpecifier; sc != nil && sc.Case == cc.StorageClassSpecifierTypedef {
			typedef = true
		}
		ts := ds.TypeSpecifier
		if ts == nil {
			continue
		}
		switch ts.Case {
		case cc.TypeSpecifierEnum:
			es := ts.EnumSpecifier
			if es.EnumeratorList == nil {
				continue
			}
			if es.Token2.String() == "" {
				anonEnum = es
				continue
			}
			p.parseEnum(es)
		case cc.TypeSpecifierStructOrUnion:
			sus := ts.StructOrUnionSpecifier
			tag := sus.Token.String()
			if sus.StructDeclarationList != nil {
				body = sus.StructDeclarationList
				if tag != "" {
					p.parseStruct(sus)
				}
			}
			if tag != "" {
				target = tag
			}
		}
	}
	idl := decln.InitDeclaratorList
	if idl == nil {
		// no declarator; enum, struct and union bodies were recorded above
		if anonEnum != nil {
			p.parseAnonEnum(anonEnum)
		}
		p.parseTags(decln)
		return nil
	}
	// init_declarator_list
	//   : init_declarator
	//   | init_declarator_list ',' init_declarator
	//   ;
	for ; idl != nil; idl = idl.InitDeclaratorList {
		// init_declarator
		//   : declarator
		//   | declarator '=' initializer
		//   ;
		idecl := idl.InitDeclarator
		if idecl == nil {
			continue
		}
		decl := idecl.Declarator
		if typedef {
			p.parseTypedef(decln, decl, target, body, anonEnum)
			continue
		}
		if idecl.Initializer != nil {
			// definitions do not belong in public headers
			continue
		}
		if err := p.parseDeclarator(decln, decl); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseTypedef(decln *cc.Declaration, decl *cc.Declarator, target string, body *cc.StructDeclarationList, anonEnum *cc.EnumSpecifier) {
	d := Decl{
		Kind: allowlist.Type,
		Name: decl.Name().String(),
		Form: FormTypedef,
	}
	// only a plain (non-pointer) alias of a struct or union inherits its body
	if decl.Pointer == nil && decl.DirectDeclarator.Case == cc.DirectDeclaratorIdent {
		if target != "" {
			d.Target = target
		}
		d.Complete = body != nil
		if anonEnum != nil {
			d.Constants = enumerators(anonEnum)
		}
	}
	var refs typeName
	if target == "" && body != nil {
		memberRefs(&refs, body)
	} else if _, err := returnTypeName(&refs, decln.DeclarationSpecifiers, nil); err != nil {
		logutil.Trace("typedef references not resolved", "name", d.Name, "error", err)
	}
	d.Refs = refs.refs
	p.add(d, position(decl))
}

func (p *Parser) parseDeclarator(decln *cc.Declaration, decl *cc.Declarator) error {
	// declarator
	//   : pointer direct_declarator
	//   | direct_declarator
	//   ;
	// direct_declarator
	//   : IDENTIFIER
	//   | '(' declarator ')'
	//   | direct_declarator '[' constant_expression ']'
	//   | direct_declarator '[' ']'
	//   | direct_declarator '(' parameter_type_list ')'
	//   | direct_declarator '(' identifier_list ')'
	//   | direct_declarator '(' ')'
	//   ;
	name := decl.Name().String()
	ddecl := decl.DirectDeclarator
	switch ddecl.Case {
	case cc.DirectDeclaratorFuncParam:
		d := Decl{Kind: allowlist.Function, Name: name}
		var refs typeName
		// parameter_type_list
		//   : parameter_list
		//   | parameter_list ',' ELLIPSIS
		//   ;
		switch ddecl.ParameterTypeList.Case {
		case cc.ParameterTypeListList:
			params, err := makeFuncParams(&refs, ddecl.ParameterTypeList.ParameterList)
			if err != nil {
				d.Err = fmt.Errorf("cannot resolve parameters: %w", err)
			}
			d.Params = params
		case cc.ParameterTypeListVar:
			d.Err = errors.New("function requires varargs support")
		}
		if ddecl.DirectDeclarator != nil && ddecl.DirectDeclarator.Case != cc.DirectDeclaratorIdent {
			d.Err = errors.New("function returns a function pointer or array")
		}
		returnType, err := returnTypeName(&refs, decln.DeclarationSpecifiers, decl.Pointer)
		if err != nil && d.Err == nil {
			d.Err = fmt.Errorf("cannot resolve return type: %w", err)
		}
		d.Return = returnType
		d.Refs = refs.refs
		p.add(d, position(decl))
	case cc.DirectDeclaratorFuncIdent:
		// f() is treated as f(void); K&R identifier lists are not supported
		d := Decl{Kind: allowlist.Function, Name: name}
		if ddecl.IdentifierList != nil {
			d.Err = errors.New("function has no prototype")
		}
		var refs typeName
		returnType, err := returnTypeName(&refs, decln.DeclarationSpecifiers, decl.Pointer)
		if err != nil && d.Err == nil {
			d.Err = fmt.Errorf("cannot resolve return type: %w", err)
		}
		d.Return = returnType
		d.Refs = refs.refs
		p.add(d, position(decl))
	case cc.DirectDeclaratorIdent:
		var refs typeName
		varType, err := returnTypeName(&refs, decln.DeclarationSpecifiers, decl.Pointer)
		d := Decl{Kind: allowlist.Var, Name: name, Type: varType, Refs: refs.refs}
		if err != nil {
			d.Err = fmt.Errorf("cannot resolve type: %w", err)
		}
		p.add(d, position(decl))
	default:
		p.add(Decl{
			Kind: allowlist.Var,
			Name: name,
			Err:  fmt.Errorf("unsupported declarator %s", ddecl.Case),
		}, position(decl))
	}
	return nil
}

func (p *Parser) parseEnum(es *cc.EnumSpecifier) {
	// enum_specifier
	//   : ENUM '{' enumerator_list '}'
	//   | ENUM IDENTIFIER '{' enumerator_list '}'
	//   | ENUM IDENTIFIER
	//   ;
	p.add(Decl{
		Kind:      allowlist.Type,
		Name:      es.Token2.String(),
		Form:      FormEnum,
		Constants: enumerators(es),
	}, position(es))
}

// parseAnonEnum exposes the enumerators of an untagged, untypedef'd enum as
// constants matched against the variable allowlist.
func (p *Parser) parseAnonEnum(es *cc.EnumSpecifier) {
	logutil.Trace("found enum", "name", Anonymous, "pos", es.Position())
	for _, name := range enumerators(es) {
		p.add(Decl{Kind: allowlist.Var, Name: name, Form: FormConst}, position(es))
	}
}

func enumerators(es *cc.EnumSpecifier) []string {
	// enumerator_list
	//   : enumerator
	//   | enumerator_list ',' enumerator
	//   ;
	// enumerator
	//   : IDENTIFIER
	//   | IDENTIFIER '=' constant_expression
	//   ;
	var constants []string
	for el := es.EnumeratorList; el != nil; el = el.EnumeratorList {
		constants = append(constants, el.Enumerator.Token.String())
	}
	return constants
}

func (p *Parser) parseStruct(sus *cc.StructOrUnionSpecifier) {
	tag := sus.Token.String()
	form := FormStruct
	if sus.StructOrUnion.Case == cc.StructOrUnionUnion {
		form = FormUnion
	}
	var refs typeName
	memberRefs(&refs, sus.StructDeclarationList)
	p.complete[tag] = true
	p.add(Decl{
		Kind:     allowlist.Type,
		Name:     tag,
		Form:     form,
		Complete: true,
		Refs:     refs.refs,
	}, position(sus))
}

// parseTags records forward declarations such as 'struct aws_profile;' so
// opaque types can be allowlisted.
func (p *Parser) parseTags(decln *cc.Declaration) {
	for ds := decln.DeclarationSpecifiers; ds != nil; ds = ds.DeclarationSpecifiers {
		ts := ds.TypeSpecifier
		if ts == nil || ts.Case != cc.TypeSpecifierStructOrUnion {
			continue
		}
		sus := ts.StructOrUnionSpecifier
		tag := sus.Token.String()
		if sus.StructDeclarationList != nil || tag == "" {
			continue
		}
		form := FormStruct
		if sus.StructOrUnion.Case == cc.StructOrUnionUnion {
			form = FormUnion
		}
		p.add(Decl{Kind: allowlist.Type, Name: tag, Form: form}, position(sus))
	}
}
