// Package config loads the declarative description of a binding build and
// the environment it runs in.
package config

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/kbolino/go-cgobind/internal/allowlist"
	"github.com/kbolino/go-cgobind/internal/directive"
	"github.com/kbolino/go-cgobind/internal/stageerr"
	"github.com/kbolino/go-cgobind/internal/translate"
)

const (
	DefaultFile         = "cgobind.yaml"
	DefaultIncludeDir   = "include"
	DefaultBindingsFile = "bindings.go"
	DefaultCPP          = "cpp"

	// NoCPP as the cpp setting disables host preprocessor probing.
	NoCPP = "none"
)

// DefaultDerive applies to derive keys the config file leaves out.
var DefaultDerive = translate.Derive{Debug: true, Default: true, Equal: true}

// Allowlist holds pattern lines per declaration kind.
type Allowlist struct {
	Functions []string `yaml:"functions"`
	Types     []string `yaml:"types"`
	Vars      []string `yaml:"vars"`
}

// AllowlistFiles names pattern files, one pattern per line, relative to the
// project root.
type AllowlistFiles struct {
	Functions string `yaml:"functions"`
	Types     string `yaml:"types"`
	Vars      string `yaml:"vars"`
}

// Config is the build-time configuration of one library.
type Config struct {
	Package        string              `yaml:"package"`
	LinkLibs       []string            `yaml:"link_libs"`
	IncludeDir     string              `yaml:"include_dir"`  // source include root, relative to the project root
	IncludePath    string              `yaml:"include_path"` // library subpath below the include root
	Dependencies   []string            `yaml:"dependencies"`
	Allowlist      Allowlist           `yaml:"allowlist"`
	AllowlistFiles AllowlistFiles      `yaml:"allowlist_files"`
	Derive         translate.Derive    `yaml:"derive"`
	Recursive      bool                `yaml:"recursive"`
	Unreachable    string              `yaml:"unreachable"`
	TypeMap        string              `yaml:"typemap"`
	PrefixEnv      string              `yaml:"prefix_env"`
	Frameworks     map[string][]string `yaml:"frameworks"`
	Syntax         string              `yaml:"syntax"`
	BindingsFile   string              `yaml:"bindings_file"`
	CPP            string              `yaml:"cpp"`
}

// Load reads and validates the configuration at fileName.
func Load(fileName string) (*Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, stageerr.New(stageerr.ErrConfiguration, fileName, fmt.Errorf("reading config: %w", err))
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, stageerr.New(stageerr.ErrConfiguration, fileName, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration, fills in defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Derive: DefaultDerive}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	c.IncludePath = strings.Trim(c.IncludePath, "/")
	if c.IncludeDir == "" {
		c.IncludeDir = DefaultIncludeDir
	}
	if c.BindingsFile == "" {
		c.BindingsFile = DefaultBindingsFile
	}
	if c.PrefixEnv == "" {
		c.PrefixEnv = directive.DefaultPrefixEnv
	}
	if c.CPP == "" {
		c.CPP = DefaultCPP
	}
	if c.Frameworks == nil {
		c.Frameworks = directive.DefaultFrameworks
	}
	if c.Package == "" {
		c.Package = packageName(path.Base(c.IncludePath))
	}
}

// Validate reports the first problem with c.
func (c *Config) Validate() error {
	if c.IncludePath == "" || c.IncludePath == "." {
		return errors.New("include_path is required")
	}
	for _, elem := range strings.Split(c.IncludePath, "/") {
		if elem == ".." {
			return fmt.Errorf("include_path %q leaves the include directory", c.IncludePath)
		}
	}
	if !token.IsIdentifier(c.Package) || token.IsKeyword(c.Package) {
		return fmt.Errorf("package %q is not a valid Go package name", c.Package)
	}
	if filepath.Base(c.BindingsFile) != c.BindingsFile {
		return fmt.Errorf("bindings_file %q must be a plain file name", c.BindingsFile)
	}
	if _, err := translate.ParsePolicy(c.Unreachable); err != nil {
		return err
	}
	if _, err := directive.ParseSyntax(c.Syntax); err != nil {
		return err
	}
	return nil
}

// Policy returns the unreachable-reference policy.
func (c *Config) Policy() translate.Policy {
	p, _ := translate.ParsePolicy(c.Unreachable)
	return p
}

// Preprocessor returns the host C preprocessor, or "" if probing is off.
func (c *Config) Preprocessor() string {
	if c.CPP == NoCPP {
		return ""
	}
	return c.CPP
}

// AllowlistSet compiles the inline patterns followed by those of the
// pattern files, which are resolved against root.
func (c *Config) AllowlistSet(root string) (*allowlist.Set, error) {
	set, err := allowlist.New(allowlist.Lines{
		Functions: c.Allowlist.Functions,
		Types:     c.Allowlist.Types,
		Vars:      c.Allowlist.Vars,
	})
	if err != nil {
		return nil, stageerr.New(stageerr.ErrConfiguration, "allowlist", err)
	}
	for _, f := range []struct {
		file string
		dst  *[]allowlist.Pattern
	}{
		{c.AllowlistFiles.Functions, &set.Functions},
		{c.AllowlistFiles.Types, &set.Types},
		{c.AllowlistFiles.Vars, &set.Vars},
	} {
		if f.file == "" {
			continue
		}
		fileName := resolve(root, f.file)
		patterns, err := allowlist.ParseFile(fileName)
		if err != nil {
			return nil, stageerr.New(stageerr.ErrConfiguration, fileName, err)
		}
		*f.dst = append(*f.dst, patterns...)
	}
	return set, nil
}

// LoadTypeMap reads the type map file, if one is configured.
func (c *Config) LoadTypeMap(root string) (translate.TypeMap, error) {
	if c.TypeMap == "" {
		return nil, nil
	}
	fileName := resolve(root, c.TypeMap)
	typeMap, err := translate.ParseTypeMap(fileName)
	if err != nil {
		return nil, stageerr.New(stageerr.ErrConfiguration, fileName, err)
	}
	return typeMap, nil
}

func resolve(root, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(root, filepath.FromSlash(name))
}

// packageName derives a Go package name from a directory name.
func packageName(dir string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(dir) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || unicode.IsDigit(rune(name[0])) || token.IsKeyword(name) {
		return "bindings"
	}
	return name
}
