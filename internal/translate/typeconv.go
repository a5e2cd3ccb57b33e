package translate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// TypeMap overrides the cgo spelling of C types, keyed by the C type with
// qualifiers removed (e.g. "const char *" is looked up as "char *").
type TypeMap map[string]string

const unsafePointer = "unsafe.Pointer"

// cgoType converts the C spelling of a type to the Go expression naming it
// through cgo. An empty result means void.
func cgoType(typeMap TypeMap, cType string) (string, error) {
	if cType == funcPointer {
		return "*[0]byte", nil
	}
	cType = stripQualifiers(cType)
	if mapping, ok := typeMap[cType]; ok {
		return mapping, nil
	}
	if strings.HasSuffix(cType, "*") {
		elem := strings.TrimSpace(strings.TrimSuffix(cType, "*"))
		if elem == "void" {
			return unsafePointer, nil
		}
		elemType, err := cgoType(typeMap, elem)
		if err != nil {
			return "", fmt.Errorf("resolving type '%s': %w", elem, err)
		}
		return "*" + elemType, nil
	}
	words := strings.Fields(cType)
	if len(words) == 2 && isTagKeyword(words[0]) {
		return "C." + words[0] + "_" + words[1], nil
	}
	if builtin, ok, err := builtinType(words); ok || err != nil {
		return builtin, err
	}
	if len(words) == 1 && !isTagKeyword(words[0]) {
		return "C." + words[0], nil
	}
	return "", fmt.Errorf("unhandled C type '%s'", cType)
}

func isTagKeyword(word string) bool {
	return word == "struct" || word == "union" || word == "enum"
}

func stripQualifiers(cType string) string {
	var b strings.Builder
	for _, word := range strings.Fields(strings.ReplaceAll(cType, "*", " * ")) {
		switch word {
		case "const", "volatile", "restrict":
			continue
		case "*":
			b.WriteString(" *")
			continue
		}
		if b.Len() > 0 {
			b.WriteRune(' ')
		}
		b.WriteString(word)
	}
	return strings.TrimSpace(b.String())
}

// builtinType maps arithmetic type specifiers, in any order, to cgo's names.
func builtinType(words []string) (string, bool, error) {
	var signed, unsigned, short, char, integer, float, double, boolean, void, complex bool
	long := 0
	for _, word := range words {
		switch word {
		case "signed":
			signed = true
		case "unsigned":
			unsigned = true
		case "short":
			short = true
		case "long":
			long++
		case "char":
			char = true
		case "int":
			integer = true
		case "float":
			float = true
		case "double":
			double = true
		case "bool", "_Bool":
			boolean = true
		case "void":
			void = true
		case "complex", "_Complex":
			complex = true
		default:
			return "", false, nil
		}
	}
	switch {
	case void:
		return "", true, nil
	case boolean:
		return "C.bool", true, nil
	case complex && float:
		return "C.complexfloat", true, nil
	case complex && double && long == 0:
		return "C.complexdouble", true, nil
	case double && long == 0:
		return "C.double", true, nil
	case double || complex:
		return "", true, fmt.Errorf("unsupported C type '%s'", strings.Join(words, " "))
	case float:
		return "C.float", true, nil
	case char && signed:
		return "C.schar", true, nil
	case char && unsigned:
		return "C.uchar", true, nil
	case char:
		return "C.char", true, nil
	case short && unsigned:
		return "C.ushort", true, nil
	case short:
		return "C.short", true, nil
	case long == 1 && unsigned:
		return "C.ulong", true, nil
	case long == 1:
		return "C.long", true, nil
	case long == 2 && unsigned:
		return "C.ulonglong", true, nil
	case long == 2:
		return "C.longlong", true, nil
	case unsigned:
		return "C.uint", true, nil
	case integer || signed:
		return "C.int", true, nil
	}
	return "", false, nil
}

// ParseTypeMap reads type overrides from a CSV file with records of the
// form 'ctype,cgotype'; comment lines start with #.
func ParseTypeMap(fileName string) (TypeMap, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()
	return readTypeMap(file)
}

func readTypeMap(r io.Reader) (TypeMap, error) {
	typeMap := make(TypeMap)
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = 2
	reader.ReuseRecord = true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("CSV read error: %w", err)
		}
		typeMap[stripQualifiers(record[0])] = strings.TrimSpace(record[1])
	}
	return typeMap, nil
}
