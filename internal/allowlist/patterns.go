package allowlist

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Pattern matches whole symbol names. A pattern written as a plain name
// matches only that name; wildcards must be spelled out (e.g. aws_.*).
type Pattern struct {
	Regexp *regexp.Regexp
	Negate bool
}

func (p Pattern) String() string {
	src := strings.TrimSuffix(strings.TrimPrefix(p.Regexp.String(), "^(?:"), ")$")
	if p.Negate {
		return "!" + src
	}
	return src
}

// Matches reports whether the pattern matches all of name.
func (p Pattern) Matches(name string) bool {
	return p.Regexp.MatchString(name)
}

// Compile compiles a single pattern line. Blank lines and comment lines
// starting with # yield ok == false.
func Compile(line string) (pattern Pattern, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return Pattern{}, false, nil
	}
	if line[0] == '!' {
		pattern.Negate = true
		line = strings.TrimSpace(line[1:])
	}
	re, err := regexp.Compile("^(?:" + line + ")$")
	if err != nil {
		return Pattern{}, false, err
	}
	pattern.Regexp = re
	return pattern, true, nil
}

// ParseLines compiles one pattern per element of lines.
func ParseLines(lines []string) ([]Pattern, error) {
	var patterns []Pattern
	for i, line := range lines {
		pattern, ok, err := Compile(line)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %d: %w", i+1, err)
		} else if ok {
			patterns = append(patterns, pattern)
		}
	}
	return patterns, nil
}

// Parse reads patterns one per line; empty lines are ignored, comment lines
// start with #, and negated lines with !.
func Parse(r io.Reader) ([]Pattern, error) {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	var patterns []Pattern
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		pattern, ok, err := Compile(string(line))
		if err != nil {
			return nil, fmt.Errorf("compiling line %d: %w", lineNum, err)
		} else if ok {
			patterns = append(patterns, pattern)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return patterns, nil
}

// ParseFile reads patterns from fileName in the format accepted by Parse.
func ParseFile(fileName string) ([]Pattern, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}
