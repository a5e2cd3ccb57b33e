package translate

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/cc/v3"
)

// typeName accumulates the C spelling of a type along with the names of the
// struct, union, enum and typedef types it mentions.
type typeName struct {
	strings.Builder
	refs []string
}

func (t *typeName) ref(name string) {
	if name == "" {
		return
	}
	for _, r := range t.refs {
		if r == name {
			return
		}
	}
	t.refs = append(t.refs, name)
}

// setFuncPointer replaces the spelling with funcPointer. The pointee's
// types are not references: cgo never needs them.
func (t *typeName) setFuncPointer() {
	t.Reset()
	t.WriteString(funcPointer)
	t.refs = nil
}

func (t *typeName) result() string {
	return strings.TrimSpace(t.String())
}

func makeFuncParams(dst *typeName, paramList *cc.ParameterList) ([]Param, error) {
	var params []Param
	// parameter_list
	//   : parameter_declaration
	//   | parameter_list ',' parameter_declaration
	//   ;
	for pl := paramList; pl != nil; pl = pl.ParameterList {
		// parameter_declaration
		//   : declaration_specifiers declarator
		//   | declaration_specifiers abstract_declarator
		//   | declaration_specifiers
		//   ;
		pd := pl.ParameterDeclaration
		var paramType typeName
		var name string
		if err := writeDeclSpec(&paramType, pd.DeclarationSpecifiers); err != nil {
			return nil, err
		}
		if decl := pd.Declarator; decl != nil {
			// declarator
			//   : pointer direct_declarator
			//   | direct_declarator
			//   ;
			if err := writePointer(&paramType, decl.Pointer); err != nil {
				return nil, err
			}
			if dirDecl := decl.DirectDeclarator; dirDecl != nil {
				var err error
				if name, err = writeParamDeclarator(&paramType, dirDecl); err != nil {
					return nil, fmt.Errorf("parameter %s: %w", decl.Name(), err)
				}
			}
		}
		if absDecl := pd.AbstractDeclarator; absDecl != nil {
			// abstract_declarator
			//   : pointer
			//   | direct_abstract_declarator
			//   | pointer direct_abstract_declarator
			//   ;
			if err := writePointer(&paramType, absDecl.Pointer); err != nil {
				return nil, err
			}
			if dirAbsDecl := absDecl.DirectAbstractDeclarator; dirAbsDecl != nil {
				if err := writeParamAbstractDeclarator(&paramType, dirAbsDecl); err != nil {
					return nil, fmt.Errorf("parameter %d: %w", len(params)+1, err)
				}
			}
		}
		for _, r := range paramType.refs {
			dst.ref(r)
		}
		params = append(params, Param{
			Name: name,
			Type: paramType.result(),
		})
	}
	// f(void) takes no parameters
	if len(params) == 1 && params[0].Name == "" && params[0].Type == "void" {
		return nil, nil
	}
	return params, nil
}

// funcPointer is the spelling given to function pointer parameters. cgo
// passes every function pointer as *[0]byte, so the signature is dropped.
const funcPointer = "void (*)()"

// writeParamDeclarator handles the direct declarator of a named parameter.
// Arrays decay to pointers and function pointers are spelled as funcPointer.
func writeParamDeclarator(dst *typeName, dirDecl *cc.DirectDeclarator) (string, error) {
	// direct_declarator
	//   : IDENTIFIER
	//   | '(' declarator ')'
	//   | direct_declarator '[' constant_expression ']'
	//   | direct_declarator '[' ']'
	//   | direct_declarator '(' parameter_type_list ')'
	//   | direct_declarator '(' identifier_list ')'
	//   | direct_declarator '(' ')'
	//   ;
	switch dirDecl.Case {
	case cc.DirectDeclaratorIdent:
		return dirDecl.Token.String(), nil
	case cc.DirectDeclaratorArr, cc.DirectDeclaratorStaticArr, cc.DirectDeclaratorArrStatic, cc.DirectDeclaratorStar:
		inner := dirDecl.DirectDeclarator
		if inner == nil || inner.Case != cc.DirectDeclaratorIdent {
			return "", errors.New("multi-dimensional array parameter")
		}
		dst.WriteRune('*')
		return inner.Token.String(), nil
	case cc.DirectDeclaratorFuncParam, cc.DirectDeclaratorFuncIdent:
		// a parameter of function type decays to a function pointer too
		inner := dirDecl.DirectDeclarator
		switch {
		case inner == nil:
		case inner.Case == cc.DirectDeclaratorIdent:
			dst.setFuncPointer()
			return inner.Token.String(), nil
		case inner.Case == cc.DirectDeclaratorDecl:
			// only (*name); (**name) and (*name[4]) are not plain function pointers
			fp := inner.Declarator
			if fp == nil || fp.Pointer == nil || fp.Pointer.Pointer != nil ||
				fp.DirectDeclarator == nil || fp.DirectDeclarator.Case != cc.DirectDeclaratorIdent {
				break
			}
			dst.setFuncPointer()
			return fp.DirectDeclarator.Token.String(), nil
		}
		return "", errors.New("unhandled function parameter declarator")
	}
	return "", fmt.Errorf("unhandled direct_declarator case %s", dirDecl.Case)
}

// writeParamAbstractDeclarator is writeParamDeclarator for unnamed parameters.
func writeParamAbstractDeclarator(dst *typeName, dirAbsDecl *cc.DirectAbstractDeclarator) error {
	// direct_abstract_declarator
	//   : '(' abstract_declarator ')'
	//   | '[' ']'
	//   | '[' constant_expression ']'
	//   | direct_abstract_declarator '[' ']'
	//   | direct_abstract_declarator '[' constant_expression ']'
	//   | '(' ')'
	//   | '(' parameter_type_list ')'
	//   | direct_abstract_declarator '(' ')'
	//   | direct_abstract_declarator '(' parameter_type_list ')'
	//   ;
	switch dirAbsDecl.Case {
	case cc.DirectAbstractDeclaratorArr, cc.DirectAbstractDeclaratorStaticArr, cc.DirectAbstractDeclaratorArrStatic, cc.DirectAbstractDeclaratorArrStar:
		if dirAbsDecl.DirectAbstractDeclarator != nil {
			return errors.New("multi-dimensional array parameter")
		}
		dst.WriteRune('*')
		return nil
	case cc.DirectAbstractDeclaratorFunc:
		inner := dirAbsDecl.DirectAbstractDeclarator
		if inner == nil || inner.Case != cc.DirectAbstractDeclaratorDecl || inner.AbstractDeclarator == nil {
			return errors.New("unhandled function parameter declarator")
		}
		if fp := inner.AbstractDeclarator; fp.Pointer == nil || fp.Pointer.Pointer != nil || fp.DirectAbstractDeclarator != nil {
			return errors.New("unhandled function parameter declarator")
		}
		dst.setFuncPointer()
		return nil
	}
	return fmt.Errorf("unhandled direct_abstract_declarator case %s", dirAbsDecl.Case)
}

func returnTypeName(dst *typeName, declSpec *cc.DeclarationSpecifiers, pointer *cc.Pointer) (string, error) {
	var result typeName
	if err := writeDeclSpec(&result, declSpec); err != nil {
		return "", err
	}
	if err := writePointer(&result, pointer); err != nil {
		return "", err
	}
	for _, r := range result.refs {
		dst.ref(r)
	}
	return result.result(), nil
}

func writeDeclSpec(dst *typeName, declSpec *cc.DeclarationSpecifiers) error {
	// declaration_specifiers
	//   : storage_class_specifier
	//   | storage_class_specifier declaration_specifiers
	//   | type_specifier
	//   | type_specifier declaration_specifiers
	//   | type_qualifier
	//   | type_qualifier declaration_specifiers
	//   ;
	for ds := declSpec; ds != nil; ds = ds.DeclarationSpecifiers {
		// ignore storage_class_specifier
		if ts := ds.TypeSpecifier; ts != nil {
			if err := writeTypeSpec(dst, ts); err != nil {
				return err
			}
		}
		if tq := ds.TypeQualifier; tq != nil {
			if err := writeTypeQual(dst, tq); err != nil {
				return err
			}
		}
	}
	return nil
}

func writePointer(dst *typeName, pointer *cc.Pointer) error {
	// pointer
	//   : '*'
	//   | '*' type_qualifier_list
	//   | '*' pointer
	//   | '*' type_qualifier_list pointer
	//   ;
	for p := pointer; p != nil; p = p.Pointer {
		dst.WriteRune('*')
		if tql := p.TypeQualifiers; tql != nil {
			if err := writeTypeQualList(dst, tql); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeTypeQual(dst *typeName, typeQual *cc.TypeQualifier) error {
	// type_qualifier
	//   : CONST
	//   | RESTRICT
	//   | VOLATILE
	//   ;
	switch typeQual.Case {
	case cc.TypeQualifierConst:
		dst.WriteString("const ")
	case cc.TypeQualifierRestrict:
		dst.WriteString("restrict ")
	case cc.TypeQualifierVolatile:
		dst.WriteString("volatile ")
	default:
		return fmt.Errorf("unhandled type_qualifier case %s", typeQual.Case)
	}
	return nil
}

func writeTypeSpec(dst *typeName, typeSpec *cc.TypeSpecifier) error {
	// type_specifier
	//   : VOID
	//   | CHAR
	//   | SHORT
	//   | INT
	//   | LONG
	//   | FLOAT
	//   | DOUBLE
	//   | SIGNED
	//   | UNSIGNED
	//   | BOOL
	//   | COMPLEX
	//   | IMAGINARY
	//   | struct_or_union_specifier
	//   | enum_specifier
	//   | TYPE_NAME
	// ;
	switch typeSpec.Case {
	case cc.TypeSpecifierVoid:
		dst.WriteString("void ")
	case cc.TypeSpecifierChar:
		dst.WriteString("char ")
	case cc.TypeSpecifierShort:
		dst.WriteString("short ")
	case cc.TypeSpecifierInt:
		dst.WriteString("int ")
	case cc.TypeSpecifierLong:
		dst.WriteString("long ")
	case cc.TypeSpecifierFloat:
		dst.WriteString("float ")
	case cc.TypeSpecifierDouble:
		dst.WriteString("double ")
	case cc.TypeSpecifierSigned:
		dst.WriteString("signed ")
	case cc.TypeSpecifierUnsigned:
		dst.WriteString("unsigned ")
	case cc.TypeSpecifierBool:
		dst.WriteString("bool ")
	case cc.TypeSpecifierComplex:
		dst.WriteString("complex ")
	case cc.TypeSpecifierStructOrUnion:
		// struct_or_union_specifier
		//   : struct_or_union IDENTIFIER '{' struct_declaration_list '}'
		//   | struct_or_union '{' struct_declaration_list '}'
		//   | struct_or_union IDENTIFIER
		//   ;
		sus := typeSpec.StructOrUnionSpecifier
		tag := sus.Token.String()
		if tag == "" {
			return errors.New("anonymous struct_or_union_specifier")
		}
		switch sus.StructOrUnion.Case {
		case cc.StructOrUnionStruct:
			dst.WriteString("struct ")
		case cc.StructOrUnionUnion:
			dst.WriteString("union ")
		default:
			return fmt.Errorf("unhandled struct_or_union case %s", sus.StructOrUnion.Case)
		}
		dst.WriteString(tag)
		dst.WriteRune(' ')
		dst.ref(tag)
	case cc.TypeSpecifierEnum:
		// enum_specifier
		//   : ENUM '{' enumerator_list '}'
		//   | ENUM IDENTIFIER '{' enumerator_list '}'
		//   | ENUM '{' enumerator_list ',' '}'
		//   | ENUM IDENTIFIER '{' enumerator_list ',' '}'
		//   | ENUM IDENTIFIER
		//   ;
		tag := typeSpec.EnumSpecifier.Token2.String()
		if tag == "" {
			return errors.New("anonymous enum_specifier")
		}
		dst.WriteString("enum ")
		dst.WriteString(tag)
		dst.WriteRune(' ')
		dst.ref(tag)
	case cc.TypeSpecifierTypedefName:
		name := typeSpec.Token.String()
		dst.WriteString(name)
		dst.WriteRune(' ')
		dst.ref(name)
	default:
		return fmt.Errorf("unhandled type_specifier case %s", typeSpec.Case)
	}
	return nil
}

func writeTypeQualList(dst *typeName, typeQualList *cc.TypeQualifiers) error {
	// type_qualifier_list
	//   : type_qualifier
	//   | type_qualifier_list type_qualifier
	//   ;
	for tql := typeQualList; tql != nil; tql = tql.TypeQualifiers {
		if tq := tql.TypeQualifier; tq != nil {
			if err := writeTypeQual(dst, tq); err != nil {
				return err
			}
		}
	}
	return nil
}

// memberRefs collects the types named by the members of a struct or union
// body, descending into nested anonymous bodies.
func memberRefs(dst *typeName, list *cc.StructDeclarationList) {
	// struct_declaration_list
	//   : struct_declaration
	//   | struct_declaration_list struct_declaration
	//   ;
	for sdl := list; sdl != nil; sdl = sdl.StructDeclarationList {
		sd := sdl.StructDeclaration
		if sd == nil {
			continue
		}
		// specifier_qualifier_list
		//   : type_specifier specifier_qualifier_list
		//   | type_specifier
		//   | type_qualifier specifier_qualifier_list
		//   | type_qualifier
		//   ;
		for sql := sd.SpecifierQualifierList; sql != nil; sql = sql.SpecifierQualifierList {
			ts := sql.TypeSpecifier
			if ts == nil {
				continue
			}
			switch ts.Case {
			case cc.TypeSpecifierStructOrUnion:
				sus := ts.StructOrUnionSpecifier
				dst.ref(sus.Token.String())
				memberRefs(dst, sus.StructDeclarationList)
			case cc.TypeSpecifierEnum:
				dst.ref(ts.EnumSpecifier.Token2.String())
			case cc.TypeSpecifierTypedefName:
				dst.ref(ts.Token.String())
			}
		}
	}
}
